// Package report renders a dataset overview and an analysis result as
// Markdown and HTML.
package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"datalens/domain/analysis"
	"datalens/domain/dataset"
	"datalens/internal/chart"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Input is everything a report can show. Overview and Result are optional.
type Input struct {
	Overview  *dataset.Overview
	Request   *analysis.Request
	Result    analysis.Result
	ChartPNG  []byte
	ChartName string
	Notes     string
	Generated time.Time
}

// Markdown renders in as a Markdown document
func Markdown(in Input) string {
	var b strings.Builder

	title := "Analysis report"
	if in.Overview != nil && in.Overview.Title != "" {
		title = in.Overview.Title
	}
	fmt.Fprintf(&b, "# %s\n\n", escape(title))
	if !in.Generated.IsZero() {
		fmt.Fprintf(&b, "_Generated %s_\n\n", in.Generated.UTC().Format(time.RFC1123))
	}

	if ov := in.Overview; ov != nil {
		writeOverview(&b, ov)
	}
	if len(in.ChartPNG) > 0 {
		fmt.Fprintf(&b, "## Distribution: %s\n\n", escape(in.ChartName))
		fmt.Fprintf(&b, "![%s](data:image/png;base64,%s)\n\n", escape(in.ChartName), base64.StdEncoding.EncodeToString(in.ChartPNG))
	}
	if in.Result != nil {
		writeResult(&b, in.Request, in.Result)
	}
	if strings.TrimSpace(in.Notes) != "" {
		b.WriteString("## Notes\n\n")
		b.WriteString(in.Notes)
		b.WriteString("\n")
	}
	return b.String()
}

// HTML renders in as a complete HTML page
func HTML(in Input) []byte {
	md := Markdown(in)
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	title := "Analysis report"
	if in.Overview != nil && in.Overview.Title != "" {
		title = in.Overview.Title
	}
	r := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML([]byte(md), p, r)
}

func writeOverview(b *strings.Builder, ov *dataset.Overview) {
	variant := "raw"
	if ov.Normalized {
		variant = "cleaned"
	}
	b.WriteString("## Dataset\n\n")
	b.WriteString("| Rows | Duplicates | Missing cells | Variant |\n|---:|---:|---:|---|\n")
	fmt.Fprintf(b, "| %d | %d | %d | %s |\n\n", ov.Stats.TotalRows, ov.Stats.DuplicateRows, ov.MissingTotal(), variant)

	if len(ov.Schema) > 0 {
		b.WriteString("| Column | Type |\n|---|---|\n")
		for _, c := range ov.Schema {
			fmt.Fprintf(b, "| %s | %s |\n", escape(c.Name), c.Type)
		}
		b.WriteString("\n")
	}

	if len(ov.Stats.Numeric) > 0 {
		b.WriteString("### Numeric columns\n\n")
		for _, n := range ov.Stats.Numeric {
			parts := make([]string, 0, len(n.Stats))
			for _, s := range n.Stats {
				parts = append(parts, fmt.Sprintf("%s %s", s.Name, formatFloat(s.Value)))
			}
			fmt.Fprintf(b, "- **%s**: %s\n", escape(n.Column), strings.Join(parts, ", "))
		}
		b.WriteString("\n")
	}
}

func writeResult(b *strings.Builder, req *analysis.Request, res analysis.Result) {
	op := res.Operation()
	label := string(op)
	if spec, ok := analysis.Lookup(op); ok {
		label = spec.Label
	}
	fmt.Fprintf(b, "## %s\n\n", label)

	if req != nil {
		cols := req.Column
		if cols == "" {
			cols = req.Column1 + ", " + req.Column2
		}
		fmt.Fprintf(b, "Columns: %s", escape(cols))
		if req.Filter != nil {
			fmt.Fprintf(b, " (where %s %s %s)", escape(req.Filter.Column), req.Filter.Operator, escape(req.Filter.Value))
		}
		b.WriteString("\n\n")
	}

	for _, line := range Summary(res) {
		fmt.Fprintf(b, "- %s\n", line)
	}
	b.WriteString("\n")

	pres := analysis.PresentationOf(res)
	meta := res.Metadata()
	if pres.Plot && meta.Plot != "" {
		fmt.Fprintf(b, "![%s plot](%s)\n\n", label, meta.Plot)
	}
	if chi, ok := res.(analysis.ChiSquare); ok && pres.Table && len(chi.Rows) > 0 {
		writeContingency(b, chi)
	}
	if meta.Note != "" {
		fmt.Fprintf(b, "> %s\n\n", meta.Note)
	}
}

// Summary lists the numeric outputs of res as short lines
func Summary(res analysis.Result) []string {
	switch r := res.(type) {
	case analysis.Descriptive:
		return []string{fmt.Sprintf("%s: %s", r.Op, formatFloat(r.Value))}
	case analysis.Mode:
		return []string{"mode: " + strings.Join(r.Values, ", ")}
	case analysis.TTest:
		return []string{"t statistic: " + formatFloat(r.TStatistic), "p-value: " + formatFloat(r.PValue)}
	case analysis.ANOVA:
		return []string{"F statistic: " + formatFloat(r.FStatistic), "p-value: " + formatFloat(r.PValue)}
	case analysis.ChiSquare:
		return []string{
			"chi-square: " + formatFloat(r.Chi2),
			"p-value: " + formatFloat(r.PValue),
			fmt.Sprintf("degrees of freedom: %d", r.DoF),
		}
	case analysis.Correlation:
		return []string{fmt.Sprintf("%s correlation: %s", r.Op, formatFloat(r.Coefficient)), "p-value: " + formatFloat(r.PValue)}
	}
	return nil
}

func writeContingency(b *strings.Builder, chi analysis.ChiSquare) {
	var buf bytes.Buffer
	buf.WriteString("| |")
	for _, c := range chi.Columns {
		buf.WriteString(" " + escape(c) + " |")
	}
	buf.WriteString("\n|---|")
	for range chi.Columns {
		buf.WriteString("---:|")
	}
	buf.WriteString("\n")
	for _, row := range chi.Rows {
		buf.WriteString("| " + escape(row.Label) + " |")
		for _, n := range row.Counts {
			buf.WriteString(" " + chart.FormatCount(n) + " |")
		}
		buf.WriteString("\n")
	}
	b.WriteString(buf.String())
	b.WriteString("\n")
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.4g", v)
}

func escape(s string) string {
	return strings.NewReplacer("|", "\\|", "*", "\\*", "_", "\\_", "[", "\\[", "]", "\\]").Replace(s)
}
