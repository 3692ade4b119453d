// Package tui is the terminal analysis workspace: dataset overview, the
// analysis configuration form, results, the category chart, notes and the
// guided tour, driven by bubbletea.
package tui

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"datalens/domain/analysis"
	"datalens/domain/core"
	"datalens/internal"
	"datalens/internal/chart"
	"datalens/internal/config"
	"datalens/internal/debounce"
	"datalens/internal/errors"
	"datalens/internal/execution"
	"datalens/internal/export"
	"datalens/internal/session"
	"datalens/internal/tour"
	"datalens/ports"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Deps wires the workspace to its collaborators. Store and Exports may be nil.
type Deps struct {
	Context   context.Context
	DatasetID core.DatasetID
	Gateway   ports.DatasetGateway
	Store     ports.StateStore
	Exports   *export.Store
	UI        config.UIConfig
	Logger    *internal.Logger
}

type field int

const (
	fieldClean field = iota
	fieldCalcType
	fieldOperation
	fieldColumn
	fieldColumn1
	fieldColumn2
	fieldFilterColumn
	fieldFilterOperator
	fieldFilterValue
	fieldRun
	fieldNotes
	fieldChart
)

// anchor maps a field to the tour anchor it belongs to
func (f field) anchor() string {
	switch f {
	case fieldClean:
		return "clean-toggle"
	case fieldCalcType:
		return "calc-type"
	case fieldOperation:
		return "operation"
	case fieldColumn, fieldColumn1, fieldColumn2:
		return "columns"
	case fieldFilterColumn, fieldFilterOperator, fieldFilterValue:
		return "filter"
	case fieldRun:
		return "run"
	case fieldNotes:
		return "notes"
	case fieldChart:
		return "chart"
	}
	return ""
}

func (f field) label() string {
	switch f {
	case fieldClean:
		return "Data"
	case fieldCalcType:
		return "Calculation"
	case fieldOperation:
		return "Operation"
	case fieldColumn:
		return "Column"
	case fieldColumn1:
		return "Column 1"
	case fieldColumn2:
		return "Column 2"
	case fieldFilterColumn:
		return "Filter column"
	case fieldFilterOperator:
		return "Operator"
	case fieldFilterValue:
		return "Filter value"
	case fieldRun:
		return "Run"
	case fieldNotes:
		return "Notes"
	case fieldChart:
		return "Chart"
	}
	return ""
}

type option struct {
	value string
	label string
}

// Messages delivered to Update
type (
	sessionMsg struct {
		state session.State
		err   error
	}
	execMsg struct {
		state execution.State
		err   error
	}
	tourMsg          struct{ open bool }
	filterSettledMsg struct{ value string }
	notesSettledMsg  struct{ notes string }
	notesSavedMsg    struct {
		notes string
		err   error
	}
	exportedMsg struct {
		path string
		err  error
	}
)

// Model is the workspace bubbletea model
type Model struct {
	ctx     context.Context
	id      core.DatasetID
	config  *analysis.Store
	session *session.Controller
	exec    *execution.Executor
	tour    *tour.Tour
	exports *export.Store
	ui      config.UIConfig
	logger  *internal.Logger

	filter *debounce.Value[string]
	notes  *debounce.Debouncer[string]

	// events carries debounced updates from timer goroutines into Update
	events   chan tea.Msg
	done     chan struct{}
	stopOnce *sync.Once

	filterInput textinput.Model
	notesInput  textarea.Model
	spinner     spinner.Model
	help        help.Model

	focus      field
	width      int
	height     int
	flash      string
	notesErr   string
	savedNotes string
	restored   bool
	quitting   bool
}

// New builds the workspace for deps.DatasetID
func New(deps Deps) Model {
	ctx := deps.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := deps.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}

	store := analysis.NewStore(analysis.Config{})
	ctrl := session.NewController(deps.DatasetID, deps.Gateway, deps.Store, store, logger)

	m := Model{
		ctx:      ctx,
		id:       deps.DatasetID,
		config:   store,
		session:  ctrl,
		exec:     execution.NewExecutor(deps.Gateway, ctrl, logger),
		tour:     tour.New(deps.Store, logger),
		exports:  deps.Exports,
		ui:       deps.UI,
		logger:   logger.With("Workspace"),
		events:   make(chan tea.Msg, 16),
		done:     make(chan struct{}),
		stopOnce: &sync.Once{},
		focus:    fieldCalcType,
		width:    100,
	}

	events, done := m.events, m.done
	send := func(msg tea.Msg) {
		select {
		case events <- msg:
		case <-done:
		}
	}
	m.filter = debounce.NewValue("", deps.UI.FilterDebounce, func(v string) {
		send(filterSettledMsg{value: v})
	})
	m.notes = debounce.New(deps.UI.NotesDebounce, func(v string) {
		send(notesSettledMsg{notes: v})
	})

	ti := textinput.New()
	ti.Placeholder = "value"
	ti.Prompt = ""
	ti.CharLimit = 200
	ti.Width = 30
	m.filterInput = ti

	ta := textarea.New()
	ta.Placeholder = "Notes for this dataset"
	ta.ShowLineNumbers = false
	ta.SetWidth(80)
	ta.SetHeight(4)
	m.notesInput = ta

	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot))
	m.help = help.New()
	return m
}

// Init loads the dataset, opens the tour on a first visit and starts
// listening for debounced updates
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.beginTour(), m.spinner.Tick, m.listen())
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		st, err := m.session.Load(m.ctx)
		return sessionMsg{state: st, err: err}
	}
}

func (m Model) beginTour() tea.Cmd {
	return func() tea.Msg {
		return tourMsg{open: m.tour.Begin(m.ctx)}
	}
}

// listen waits for the next debounced update; Update re-arms it after each one
func (m Model) listen() tea.Cmd {
	events, done := m.events, m.done
	return func() tea.Msg {
		select {
		case msg := <-events:
			return msg
		case <-done:
			return nil
		}
	}
}

func (m Model) persistNotes(notes string) tea.Cmd {
	return func() tea.Msg {
		return notesSavedMsg{notes: notes, err: m.session.PersistNotes(m.ctx, notes)}
	}
}

// Update handles one message
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		w := msg.Width - 6
		if w < 20 {
			w = 20
		}
		if w > 100 {
			w = 100
		}
		m.notesInput.SetWidth(w)
		return m, nil

	case sessionMsg:
		if msg.err != nil && errors.HasCode(msg.err, errors.CodeBusy) {
			m.flash = errors.UserMessage(msg.err)
		}
		if msg.err == nil && !m.restored && msg.state.Dataset != nil {
			m.restored = true
			if m.notesInput.Value() == "" {
				notes := m.config.State().Notes
				m.notesInput.SetValue(notes)
				m.savedNotes = notes
			}
		}
		return m, nil

	case execMsg:
		if msg.err != nil && errors.HasCode(msg.err, errors.CodeBusy) {
			m.flash = errors.UserMessage(msg.err)
		}
		return m, nil

	case tourMsg:
		return m, nil

	case filterSettledMsg:
		m.logger.Trace("filter value settled: %q", msg.value)
		return m, m.listen()

	case notesSettledMsg:
		return m, tea.Batch(m.listen(), m.persistNotes(msg.notes))

	case notesSavedMsg:
		if msg.err != nil {
			m.notesErr = errors.UserMessage(msg.err)
		} else {
			m.notesErr = ""
			m.savedNotes = msg.notes
		}
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.flash = "Export failed: " + msg.err.Error()
		} else {
			m.flash = "Chart saved to " + msg.path
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		return m.quit()
	}

	if m.tour.Active() {
		switch {
		case key.Matches(msg, tourKeys.Next):
			m.tour.Next(m.ctx)
		case key.Matches(msg, tourKeys.Prev):
			m.tour.Prev()
		case key.Matches(msg, tourKeys.Skip):
			m.tour.Skip(m.ctx)
		}
		return m, nil
	}

	st := m.session.State()
	if st.AccessDenied {
		return m, nil
	}
	m.flash = ""

	switch {
	case key.Matches(msg, keys.Tour):
		m.tour.Restart()
		return m, nil
	case key.Matches(msg, keys.Reload):
		if st.Busy() {
			m.flash = session.MsgBusy
			return m, nil
		}
		m.exec.Reset()
		return m, m.load()
	case key.Matches(msg, keys.Run):
		return m.run()
	case key.Matches(msg, keys.Clean):
		return m.toggleClean()
	case key.Matches(msg, keys.Category):
		m.cycleCategory(1)
		return m, nil
	case key.Matches(msg, keys.ChartType):
		m.toggleChartType()
		return m, nil
	case key.Matches(msg, keys.Export):
		return m.exportChart()
	case key.Matches(msg, keys.Next):
		return m, m.moveFocus(1)
	case key.Matches(msg, keys.Prev):
		return m, m.moveFocus(-1)
	case key.Matches(msg, keys.Back):
		if m.exec.State().View == execution.ViewResults {
			m.exec.BackToConfigure()
		} else {
			m.session.DismissError()
		}
		return m, nil
	}

	switch m.focus {
	case fieldFilterValue:
		return m.updateFilterInput(msg)
	case fieldNotes:
		return m.updateNotesInput(msg)
	case fieldClean:
		if key.Matches(msg, keys.Activate) {
			return m.toggleClean()
		}
	case fieldRun:
		if key.Matches(msg, keys.Activate) {
			return m.run()
		}
	case fieldChart:
		switch {
		case key.Matches(msg, keys.Left):
			m.cycleCategory(-1)
		case key.Matches(msg, keys.Right):
			m.cycleCategory(1)
		case key.Matches(msg, keys.Activate):
			m.toggleChartType()
		}
	default:
		switch {
		case key.Matches(msg, keys.Left):
			m.cycleOption(m.focus, -1)
		case key.Matches(msg, keys.Right), key.Matches(msg, keys.Activate):
			m.cycleOption(m.focus, 1)
		}
		m.ensureFocusVisible()
	}
	return m, nil
}

func (m Model) updateFilterInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	before := m.filterInput.Value()
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	if v := m.filterInput.Value(); v != before {
		m.config.Dispatch(analysis.FilterValueAction(v))
		m.filter.Set(v)
	}
	return m, cmd
}

func (m Model) updateNotesInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	before := m.notesInput.Value()
	var cmd tea.Cmd
	m.notesInput, cmd = m.notesInput.Update(msg)
	if v := m.notesInput.Value(); v != before {
		m.config.Dispatch(analysis.NotesAction(v))
		m.notes.Push(v)
	}
	return m, cmd
}

// run submits the current configuration with the settled filter value
func (m Model) run() (tea.Model, tea.Cmd) {
	if !m.exec.CanSubmit() {
		if m.exec.State().Pending {
			m.flash = execution.MsgPending
		} else {
			m.flash = execution.MsgDatasetBusy
		}
		return m, nil
	}
	cfg := m.config.State()
	filterValue := m.filter.Get()
	return m, func() tea.Msg {
		st, err := m.exec.Submit(m.ctx, m.id, cfg, filterValue)
		return execMsg{state: st, err: err}
	}
}

func (m Model) toggleClean() (tea.Model, tea.Cmd) {
	if m.session.Busy() {
		m.flash = session.MsgBusy
		return m, nil
	}
	return m, func() tea.Msg {
		st, err := m.session.ToggleClean(m.ctx)
		return sessionMsg{state: st, err: err}
	}
}

func (m *Model) cycleCategory(dir int) {
	st := m.session.State()
	if st.Dataset == nil {
		return
	}
	cols := st.Dataset.CategoricalColumns()
	if len(cols) == 0 {
		return
	}
	idx := indexOf(cols, st.Chart.ActiveCategory)
	if idx < 0 {
		idx = 0
	} else {
		idx = (idx + dir + len(cols)) % len(cols)
	}
	if _, err := m.session.SetActiveCategory(cols[idx]); err != nil {
		m.logger.Warn("failed to select category %s: %v", cols[idx], err)
	}
}

func (m *Model) toggleChartType() {
	next := session.ChartPie
	if m.session.State().Chart.ChartType == session.ChartPie {
		next = session.ChartBar
	}
	if _, err := m.session.SetChartType(next); err != nil {
		m.logger.Warn("failed to switch chart type: %v", err)
	}
}

func (m Model) exportChart() (tea.Model, tea.Cmd) {
	if m.exports == nil {
		m.flash = "No export directory configured"
		return m, nil
	}
	d, kind, ok := m.session.ActiveDistribution()
	if !ok {
		m.flash = "No category to export"
		return m, nil
	}
	return m, func() tea.Msg {
		var buf bytes.Buffer
		if err := chart.RenderPNG(&buf, d, kind, m.ui.ChartWidth, m.ui.ChartHeight); err != nil {
			return exportedMsg{err: err}
		}
		path, err := m.exports.Put(m.ctx, export.ChartKey(m.id, d.Column, string(kind)), buf.Bytes())
		return exportedMsg{path: path, err: err}
	}
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.exec.Reset()
	m.filter.Stop()
	m.notes.Stop()
	m.stopOnce.Do(func() { close(m.done) })

	if notes := m.notesInput.Value(); m.restored && notes != m.savedNotes {
		return m, tea.Sequence(m.persistNotes(notes), tea.Quit)
	}
	return m, tea.Quit
}

// fields lists the focusable fields for the current configuration
func (m Model) fields() []field {
	out := []field{fieldClean, fieldCalcType, fieldOperation}
	cfg := m.config.State()
	if spec, ok := analysis.Lookup(cfg.Operation); ok {
		if spec.Columns == 1 {
			out = append(out, fieldColumn)
		} else {
			out = append(out, fieldColumn1, fieldColumn2)
		}
	}
	return append(out, fieldFilterColumn, fieldFilterOperator, fieldFilterValue, fieldRun, fieldNotes, fieldChart)
}

func (m *Model) moveFocus(dir int) tea.Cmd {
	fields := m.fields()
	idx := indexOf(fields, m.focus)
	if idx < 0 {
		idx = 0
	}
	return m.setFocus(fields[(idx+dir+len(fields))%len(fields)])
}

func (m *Model) setFocus(f field) tea.Cmd {
	m.focus = f
	m.filterInput.Blur()
	m.notesInput.Blur()
	switch f {
	case fieldFilterValue:
		return m.filterInput.Focus()
	case fieldNotes:
		return m.notesInput.Focus()
	}
	return nil
}

// ensureFocusVisible moves focus back to the operation selector when the
// focused column selector disappears after an operation change
func (m *Model) ensureFocusVisible() {
	if indexOf(m.fields(), m.focus) < 0 {
		m.setFocus(fieldOperation)
	}
}

// options lists the choices of a selector field. The first option is always
// the unset value.
func (m Model) options(f field, cfg analysis.Config) []option {
	var schemaOpts []analysis.ColumnOption
	if ds := m.session.State().Dataset; ds != nil {
		switch f {
		case fieldColumn, fieldColumn1, fieldColumn2:
			schemaOpts = analysis.EligibleColumns(cfg.Operation, ds.Schema)
		case fieldFilterColumn:
			schemaOpts = analysis.AllColumns(ds.Schema)
		}
	}

	var out []option
	switch f {
	case fieldCalcType:
		out = append(out, option{"", "Select calculation type"})
		for _, c := range analysis.Categories() {
			out = append(out, option{string(c), calcLabel(c)})
		}
	case fieldOperation:
		out = append(out, option{"", "Select operation"})
		for _, spec := range analysis.OperationsFor(cfg.CalcType) {
			out = append(out, option{string(spec.Name), spec.Label})
		}
	case fieldColumn, fieldColumn1, fieldColumn2:
		out = append(out, option{"", "Select column"})
		for _, c := range schemaOpts {
			out = append(out, option{c.Value, c.Label})
		}
	case fieldFilterColumn:
		out = append(out, option{"", "No filter"})
		for _, c := range schemaOpts {
			out = append(out, option{c.Value, c.Label})
		}
	case fieldFilterOperator:
		out = append(out, option{"", "Select operator"})
		for _, o := range analysis.FilterOperators() {
			out = append(out, option{string(o.Value), o.Label})
		}
	}
	return out
}

func selected(f field, cfg analysis.Config) string {
	switch f {
	case fieldCalcType:
		return string(cfg.CalcType)
	case fieldOperation:
		return string(cfg.Operation)
	case fieldColumn:
		return cfg.Column
	case fieldColumn1:
		return cfg.Column1
	case fieldColumn2:
		return cfg.Column2
	case fieldFilterColumn:
		return cfg.FilterColumn
	case fieldFilterOperator:
		return string(cfg.FilterOperator)
	}
	return ""
}

func (m *Model) cycleOption(f field, dir int) {
	cfg := m.config.State()
	opts := m.options(f, cfg)
	if len(opts) < 2 {
		return
	}
	idx := 0
	for i, o := range opts {
		if o.value == selected(f, cfg) {
			idx = i
			break
		}
	}
	v := opts[(idx+dir+len(opts))%len(opts)].value

	switch f {
	case fieldCalcType:
		m.config.Dispatch(analysis.CalcTypeAction(analysis.CalcType(v)))
	case fieldOperation:
		m.config.Dispatch(analysis.OperationAction(analysis.Operation(v)))
	case fieldColumn:
		m.config.Dispatch(analysis.ColumnAction(v))
	case fieldColumn1:
		m.config.Dispatch(analysis.Column1Action(v))
	case fieldColumn2:
		m.config.Dispatch(analysis.Column2Action(v))
	case fieldFilterColumn:
		m.config.Dispatch(analysis.FilterColumnAction(v))
	case fieldFilterOperator:
		m.config.Dispatch(analysis.FilterOperatorAction(analysis.FilterOperator(v)))
	}
}

func calcLabel(c analysis.CalcType) string {
	s := string(c)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func indexOf[T comparable](list []T, v T) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}
