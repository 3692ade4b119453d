package tui

import (
	"fmt"
	"strings"

	"datalens/domain/analysis"
	"datalens/domain/dataset"
	"datalens/internal/chart"
	"datalens/internal/execution"
	"datalens/internal/report"
	"datalens/internal/session"
	"datalens/internal/tour"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const (
	chartRows       = 14
	maxNumericLines = 6
)

// View renders the workspace
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	st := m.session.State()

	var sections []string
	sections = append(sections, m.headerView(st))

	if st.AccessDenied {
		sections = append(sections,
			panelStyle.Render(errorStyle.Render("You do not have access to this dataset.")),
			mutedStyle.Render("ctrl+c to quit"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if st.Err != "" {
		sections = append(sections, errorStyle.Render(st.Err)+mutedStyle.Render("  (esc to dismiss, ctrl+l to retry)"))
	}
	if m.flash != "" {
		sections = append(sections, flashStyle.Render(m.flash))
	}

	anchor := m.tourAnchor()
	sections = append(sections, m.panel(m.overviewView(st), anchor == "dataset" || anchor == "clean-toggle"))

	ex := m.exec.State()
	if ex.View == execution.ViewResults && ex.Result != nil {
		sections = append(sections, panelStyle.Render(m.resultView(ex)))
	} else {
		sections = append(sections, m.panel(m.configView(ex, anchor), isConfigAnchor(anchor)))
	}

	sections = append(sections, m.panel(m.chartView(st), anchor == "chart"))
	sections = append(sections, m.panel(m.notesView(), anchor == "notes"))

	if step, idx, ok := m.tour.Current(); ok {
		sections = append(sections, tourView(step, idx))
	} else {
		sections = append(sections, m.help.View(keys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) headerView(st session.State) string {
	title := string(st.DatasetID)
	if st.Dataset != nil && st.Dataset.Title != "" {
		title = st.Dataset.Title
	}
	badge := rawBadge.Render("raw")
	if st.Clean {
		badge = cleanBadge.Render("cleaned")
	}
	line := titleStyle.Render(title) + " " + badge
	switch {
	case st.Loading:
		line += " " + m.spinner.View() + mutedStyle.Render("Loading dataset")
	case st.Cleaning:
		line += " " + m.spinner.View() + mutedStyle.Render("Updating dataset")
	}
	return line
}

func (m Model) panel(content string, highlight bool) string {
	style := panelStyle
	if highlight {
		style = highlightPanelStyle
	}
	return style.Width(m.panelWidth()).Render(content)
}

func (m Model) panelWidth() int {
	w := m.width - 2
	if w < 40 {
		w = 40
	}
	return w
}

func (m Model) tourAnchor() string {
	if step, _, ok := m.tour.Current(); ok {
		return step.Anchor
	}
	return ""
}

func isConfigAnchor(anchor string) bool {
	switch anchor {
	case "calc-type", "operation", "columns", "filter", "run":
		return true
	}
	return false
}

func (m Model) overviewView(st session.State) string {
	ov := st.Dataset
	if ov == nil {
		return mutedStyle.Render("No dataset loaded")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d   %s %d   %s %d\n",
		mutedStyle.Render("Rows"), ov.Stats.TotalRows,
		mutedStyle.Render("Duplicates"), ov.Stats.DuplicateRows,
		mutedStyle.Render("Missing"), ov.MissingTotal())

	cols := make([]string, 0, len(ov.Schema))
	for _, c := range ov.Schema {
		cols = append(cols, analysis.ColumnLabel(c.Name, c.Type))
	}
	b.WriteString(mutedStyle.Render("Columns ") + strings.Join(cols, ", "))

	for i, n := range ov.Stats.Numeric {
		if i == maxNumericLines {
			fmt.Fprintf(&b, "\n%s", mutedStyle.Render(fmt.Sprintf("… %d more numeric columns", len(ov.Stats.Numeric)-i)))
			break
		}
		b.WriteString("\n" + numericLine(n))
	}
	return b.String()
}

func numericLine(n dataset.NumericSummary) string {
	parts := []string{labelStyle.Render(n.Column)}
	for _, name := range []string{"mean", "std", "min", "50%", "max"} {
		if v, ok := n.Get(name); ok {
			parts = append(parts, fmt.Sprintf("%s %.4g", name, v))
		}
	}
	return strings.Join(parts, "  ")
}

func (m Model) configView(ex execution.State, anchor string) string {
	cfg := m.config.State()
	st := m.session.State()
	var lines []string

	for _, f := range m.fields() {
		if f == fieldNotes || f == fieldChart {
			continue
		}
		label := labelStyle.Render(f.label())
		if f == m.focus || (anchor != "" && f.anchor() == anchor) {
			label = focusedLabelStyle.Render(f.label())
		}

		var value string
		switch f {
		case fieldClean:
			value = "raw"
			if st.Clean {
				value = "cleaned"
			}
			value = valueStyle.Render(value) + mutedStyle.Render("  (enter or ctrl+t to switch)")
			if st.Busy() {
				value = disabledStyle.Render(value)
			}
		case fieldFilterValue:
			value = m.filterInput.View()
		case fieldRun:
			value = m.runView(ex)
		default:
			value = m.selectorView(f, cfg)
		}
		lines = append(lines, label+value)
	}

	if ex.Err != "" {
		lines = append(lines, "", errorStyle.Render(ex.Err))
	}
	if ex.Result != nil {
		lines = append(lines, mutedStyle.Render("Previous result kept; ctrl+r to run again"))
	}
	return strings.Join(lines, "\n")
}

func (m Model) selectorView(f field, cfg analysis.Config) string {
	opts := m.options(f, cfg)
	current := selected(f, cfg)
	text := opts[0].label
	for _, o := range opts {
		if o.value == current {
			text = o.label
			break
		}
	}
	switch {
	case len(opts) < 2:
		return disabledStyle.Render(text)
	case f == m.focus:
		return valueStyle.Render("‹ " + text + " ›")
	case current == "":
		return mutedStyle.Render(text)
	}
	return valueStyle.Render(text)
}

func (m Model) runView(ex execution.State) string {
	if ex.Pending {
		return m.spinner.View() + mutedStyle.Render("Running analysis")
	}
	button := "[ Run analysis ]"
	if !m.exec.CanSubmit() {
		return disabledStyle.Render(button)
	}
	if m.focus == fieldRun {
		return focusedLabelStyle.UnsetWidth().Render(button)
	}
	return valueStyle.Render(button)
}

func (m Model) resultView(ex execution.State) string {
	res := ex.Result
	label := string(res.Operation())
	if spec, ok := analysis.Lookup(res.Operation()); ok {
		label = spec.Label
	}

	lines := []string{titleStyle.Render(label)}
	if req := ex.Request; req != nil {
		cols := req.Column
		if cols == "" {
			cols = req.Column1 + ", " + req.Column2
		}
		line := mutedStyle.Render("Columns ") + cols
		if req.Filter != nil {
			line += mutedStyle.Render(fmt.Sprintf("  where %s %s %s", req.Filter.Column, req.Filter.Operator, req.Filter.Value))
		}
		lines = append(lines, line)
	}
	for _, s := range report.Summary(res) {
		lines = append(lines, valueStyle.Render(s))
	}

	pres := analysis.PresentationOf(res)
	meta := res.Metadata()
	if chi, ok := res.(analysis.ChiSquare); ok && pres.Table && len(chi.Rows) > 0 {
		lines = append(lines, contingencyTable(chi))
	}
	if pres.Plot && meta.Plot != "" {
		lines = append(lines, mutedStyle.Render("Plot available in the HTML report"))
	}
	if meta.Note != "" {
		lines = append(lines, mutedStyle.Render(meta.Note))
	}
	lines = append(lines, "", mutedStyle.Render("esc to return to configuration"))
	return strings.Join(lines, "\n")
}

func contingencyTable(chi analysis.ChiSquare) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(append([]string{""}, chi.Columns...)...)
	for _, row := range chi.Rows {
		cells := []string{row.Label}
		for _, n := range row.Counts {
			cells = append(cells, chart.FormatCount(n))
		}
		t.Row(cells...)
	}
	return t.String()
}

func (m Model) chartView(st session.State) string {
	cols := st.Dataset.CategoricalColumns()
	if len(cols) == 0 {
		return mutedStyle.Render("No categorical columns to chart")
	}
	d, kind, ok := m.session.ActiveDistribution()
	if !ok {
		return mutedStyle.Render("No category selected")
	}

	label := labelStyle.Render("Chart")
	if m.focus == fieldChart {
		label = focusedLabelStyle.Render("Chart")
	}
	header := fmt.Sprintf("%s%s  %s", label, valueStyle.Render(d.Column), mutedStyle.Render(string(kind)+"  (ctrl+g category, ctrl+b style, ctrl+e export)"))

	width := m.panelWidth() - 4
	if width > 100 {
		width = 100
	}
	grid := NewGridSurface(width, chartRows)
	chart.Render(grid, d, kind)
	return header + "\n" + grid.String()
}

func (m Model) notesView() string {
	label := labelStyle.Render("Notes")
	if m.focus == fieldNotes {
		label = focusedLabelStyle.Render("Notes")
	}
	out := label + "\n" + m.notesInput.View()
	if m.notesErr != "" {
		out += "\n" + errorStyle.Render(m.notesErr)
	}
	return out
}

func tourView(step tour.Step, idx int) string {
	body := fmt.Sprintf("%s\n%s\n\n%s",
		titleStyle.Render(fmt.Sprintf("Step %d/%d · %s", idx+1, len(tour.Steps), step.Title)),
		step.Body,
		mutedStyle.Render("enter next · ← back · esc skip"))
	return tourStyle.Render(body)
}
