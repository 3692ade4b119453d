package devbackend

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"sort"
	"strings"

	"datalens/domain/analysis"
	"datalens/domain/dataset"
	"datalens/internal/chart"
	"datalens/internal/errors"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	plotWidth  = 640
	plotHeight = 360
)

// Perform runs req against t. Input problems (unknown columns, wrong types,
// too little data) are INVALID_INPUT errors whose message is meant for the
// user.
func Perform(t *Table, req analysis.Request) (analysis.Result, error) {
	if req.Normalize {
		t = Normalize(t)
	}
	total := len(t.Rows)
	if req.Filter != nil {
		filtered, err := applyFilter(t, *req.Filter)
		if err != nil {
			return nil, err
		}
		t = filtered
	}
	schema := Schema(t)

	res, err := compute(t, schema, req)
	if err != nil {
		return nil, err
	}
	if req.Filter != nil {
		res = withNote(res, fmt.Sprintf("Filtered to %d of %d rows where %s %s %s",
			len(t.Rows), total, req.Filter.Column, req.Filter.Operator, req.Filter.Value))
	}
	return res, nil
}

func compute(t *Table, schema dataset.Schema, req analysis.Request) (analysis.Result, error) {
	switch req.Operation {
	case analysis.OpMean, analysis.OpMedian:
		values, err := numericColumn(t, schema, req.Column)
		if err != nil {
			return nil, err
		}
		var v float64
		if req.Operation == analysis.OpMean {
			v, err = stats.Mean(values)
		} else {
			v, err = stats.Median(values)
		}
		if err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("Cannot compute %s of %s", req.Operation, req.Column))
		}
		return analysis.Descriptive{Op: req.Operation, Value: v}, nil

	case analysis.OpMode:
		return mode(t, req.Column)
	case analysis.OpTTest:
		return tTest(t, schema, req.Column1, req.Column2)
	case analysis.OpANOVA:
		return anova(t, schema, req.Column1, req.Column2)
	case analysis.OpChiSquare:
		return chiSquare(t, req.Column1, req.Column2)
	case analysis.OpPearson, analysis.OpSpearman:
		return correlation(t, schema, req.Operation, req.Column1, req.Column2)
	}
	return nil, errors.InvalidInput("Unsupported operation: " + string(req.Operation))
}

func columnNotFound(column string) error {
	return errors.InvalidInput(fmt.Sprintf("Column '%s' not found", column))
}

func numericColumn(t *Table, schema dataset.Schema, column string) ([]float64, error) {
	typ, ok := schema.Type(column)
	if !ok {
		return nil, columnNotFound(column)
	}
	if !isNumericType(typ) {
		return nil, errors.InvalidInput(fmt.Sprintf("Column '%s' is not numeric", column))
	}
	cells, _ := t.Column(column)
	values := numbers(cells)
	if len(values) == 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("Column '%s' has no values", column))
	}
	return values, nil
}

func mode(t *Table, column string) (analysis.Result, error) {
	cells, ok := t.Column(column)
	if !ok {
		return nil, columnNotFound(column)
	}
	buckets := countValues(cells)
	if len(buckets) == 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("Column '%s' has no values", column))
	}
	best := 0.0
	for _, b := range buckets {
		best = math.Max(best, b.Count)
	}
	var values []string
	for _, b := range buckets {
		if b.Count == best {
			values = append(values, b.Label)
		}
	}
	return analysis.Mode{Values: values}, nil
}

// tTest is Welch's two-sample t-test between two numeric columns
func tTest(t *Table, schema dataset.Schema, col1, col2 string) (analysis.Result, error) {
	a, err := numericColumn(t, schema, col1)
	if err != nil {
		return nil, err
	}
	b, err := numericColumn(t, schema, col2)
	if err != nil {
		return nil, err
	}
	if len(a) < 2 || len(b) < 2 {
		return nil, errors.InvalidInput("A t-test needs at least two values in each column")
	}
	ma, _ := stats.Mean(a)
	mb, _ := stats.Mean(b)
	va, _ := stats.SampleVariance(a)
	vb, _ := stats.SampleVariance(b)
	na, nb := float64(len(a)), float64(len(b))

	se2 := va/na + vb/nb
	if se2 == 0 {
		return nil, errors.InvalidInput("A t-test is undefined when both columns are constant")
	}
	tStat := (ma - mb) / math.Sqrt(se2)
	df := se2 * se2 / ((va/na)*(va/na)/(na-1) + (vb/nb)*(vb/nb)/(nb-1))
	p := twoSidedT(tStat, df)

	plot := meansPlot("mean", []string{col1, col2}, []float64{ma, mb})
	return analysis.TTest{
		TStatistic: tStat,
		PValue:     p,
		Meta:       analysis.Meta{Plot: plot, Note: "Welch's t-test (unequal variances)"},
	}, nil
}

// anova groups the numeric column by the other one when it is categorical;
// with two numeric columns each column is one group
func anova(t *Table, schema dataset.Schema, col1, col2 string) (analysis.Result, error) {
	typ1, ok := schema.Type(col1)
	if !ok {
		return nil, columnNotFound(col1)
	}
	typ2, ok := schema.Type(col2)
	if !ok {
		return nil, columnNotFound(col2)
	}

	var labels []string
	var groups [][]float64
	switch {
	case isNumericType(typ1) && isNumericType(typ2):
		a, _ := numericColumn(t, schema, col1)
		b, _ := numericColumn(t, schema, col2)
		labels = []string{col1, col2}
		groups = [][]float64{a, b}
	case isNumericType(typ1):
		labels, groups = groupBy(t, col1, col2)
	case isNumericType(typ2):
		labels, groups = groupBy(t, col2, col1)
	default:
		return nil, errors.InvalidInput("ANOVA needs at least one numeric column")
	}

	k := len(groups)
	n := 0
	grand := 0.0
	for _, g := range groups {
		n += len(g)
		for _, v := range g {
			grand += v
		}
	}
	if k < 2 || n-k < 1 {
		return nil, errors.InvalidInput("ANOVA needs at least two groups with values")
	}
	grand /= float64(n)

	means := make([]float64, k)
	ssb, ssw := 0.0, 0.0
	for i, g := range groups {
		m, _ := stats.Mean(g)
		means[i] = m
		ssb += float64(len(g)) * (m - grand) * (m - grand)
		for _, v := range g {
			ssw += (v - m) * (v - m)
		}
	}
	if ssw == 0 {
		return nil, errors.InvalidInput("ANOVA is undefined when every group is constant")
	}
	d1, d2 := float64(k-1), float64(n-k)
	f := (ssb / d1) / (ssw / d2)
	p := distuv.F{D1: d1, D2: d2}.Survival(f)

	return analysis.ANOVA{
		FStatistic: f,
		PValue:     p,
		Meta:       analysis.Meta{Plot: meansPlot("mean", labels, means)},
	}, nil
}

// groupBy splits the numeric cells of value by the paired cell of group, in
// first-seen group order
func groupBy(t *Table, value, group string) ([]string, [][]float64) {
	vi, gi := t.Index(value), t.Index(group)
	index := map[string]int{}
	var labels []string
	var groups [][]float64
	for _, row := range t.Rows {
		label := row[gi]
		v, ok := parseNumber(row[vi])
		if label == "" || !ok {
			continue
		}
		i, seen := index[label]
		if !seen {
			i = len(labels)
			index[label] = i
			labels = append(labels, label)
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], v)
	}
	return labels, groups
}

func chiSquare(t *Table, col1, col2 string) (analysis.Result, error) {
	i1, i2 := t.Index(col1), t.Index(col2)
	if i1 < 0 {
		return nil, columnNotFound(col1)
	}
	if i2 < 0 {
		return nil, columnNotFound(col2)
	}

	rowIndex, colIndex := map[string]int{}, map[string]int{}
	var rowLabels, colLabels []string
	var counts [][]float64
	for _, row := range t.Rows {
		a, b := row[i1], row[i2]
		if a == "" || b == "" {
			continue
		}
		r, ok := rowIndex[a]
		if !ok {
			r = len(rowLabels)
			rowIndex[a] = r
			rowLabels = append(rowLabels, a)
			counts = append(counts, make([]float64, len(colLabels)))
		}
		c, ok := colIndex[b]
		if !ok {
			c = len(colLabels)
			colIndex[b] = c
			colLabels = append(colLabels, b)
			for j := range counts {
				counts[j] = append(counts[j], 0)
			}
		}
		counts[r][c]++
	}
	if len(rowLabels) < 2 || len(colLabels) < 2 {
		return nil, errors.InvalidInput("A chi-square test needs at least two categories in each column")
	}

	rowTotals := make([]float64, len(rowLabels))
	colTotals := make([]float64, len(colLabels))
	n := 0.0
	for r := range counts {
		for c, v := range counts[r] {
			rowTotals[r] += v
			colTotals[c] += v
			n += v
		}
	}
	chi2 := 0.0
	lowExpected := false
	for r := range counts {
		for c, observed := range counts[r] {
			expected := rowTotals[r] * colTotals[c] / n
			if expected < 5 {
				lowExpected = true
			}
			chi2 += (observed - expected) * (observed - expected) / expected
		}
	}
	dof := (len(rowLabels) - 1) * (len(colLabels) - 1)
	p := distuv.ChiSquared{K: float64(dof)}.Survival(chi2)

	rows := make([]analysis.ContingencyRow, len(rowLabels))
	for r, label := range rowLabels {
		rows[r] = analysis.ContingencyRow{Label: label, Counts: counts[r]}
	}
	meta := analysis.Meta{Plot: meansPlot("count", rowLabels, rowTotals)}
	if lowExpected {
		meta.Note = "Some expected counts are below 5; the chi-square approximation may be inaccurate"
	}
	return analysis.ChiSquare{
		Chi2:    chi2,
		PValue:  p,
		DoF:     dof,
		Columns: colLabels,
		Rows:    rows,
		Meta:    meta,
	}, nil
}

func correlation(t *Table, schema dataset.Schema, op analysis.Operation, col1, col2 string) (analysis.Result, error) {
	for _, col := range []string{col1, col2} {
		typ, ok := schema.Type(col)
		if !ok {
			return nil, columnNotFound(col)
		}
		if !isNumericType(typ) {
			return nil, errors.InvalidInput(fmt.Sprintf("Column '%s' is not numeric", col))
		}
	}
	i1, i2 := t.Index(col1), t.Index(col2)
	var x, y []float64
	for _, row := range t.Rows {
		a, okA := parseNumber(row[i1])
		b, okB := parseNumber(row[i2])
		if okA && okB {
			x = append(x, a)
			y = append(y, b)
		}
	}
	if len(x) < 3 {
		return nil, errors.InvalidInput("A correlation needs at least three rows with both values present")
	}
	if op == analysis.OpSpearman {
		x, y = ranks(x), ranks(y)
	}
	sx, _ := stats.StandardDeviationPopulation(x)
	sy, _ := stats.StandardDeviationPopulation(y)
	if sx == 0 || sy == 0 {
		return nil, errors.InvalidInput("A correlation is undefined when a column is constant")
	}
	r, err := stats.Pearson(x, y)
	if err != nil || math.IsNaN(r) {
		return nil, errors.InvalidInput("A correlation is undefined when a column is constant")
	}

	r = math.Max(-1, math.Min(1, r))
	n := float64(len(x))
	p := 0.0
	if math.Abs(r) < 1 {
		tStat := r * math.Sqrt((n-2)/(1-r*r))
		p = twoSidedT(tStat, n-2)
	}
	return analysis.Correlation{
		Op:          op,
		Coefficient: r,
		PValue:      p,
		Meta:        analysis.Meta{Note: fmt.Sprintf("Computed on %d paired rows", len(x))},
	}, nil
}

// ranks assigns 1-based ranks, averaging ties
func ranks(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	out := make([]float64, len(values))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}

func twoSidedT(tStat, df float64) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.Survival(math.Abs(tStat))
}

// meansPlot renders a bar chart of labelled values as a PNG data URI. It
// returns "" when rendering fails; the plot is optional.
func meansPlot(stat string, labels []string, values []float64) string {
	d := dataset.Distribution{Column: stat}
	for i, l := range labels {
		d.Buckets = append(d.Buckets, dataset.Bucket{Label: l, Count: values[i]})
	}
	var buf bytes.Buffer
	if err := chart.RenderPNG(&buf, d, chart.Bar, plotWidth, plotHeight); err != nil {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func withNote(res analysis.Result, note string) analysis.Result {
	add := func(m analysis.Meta) analysis.Meta {
		if m.Note == "" {
			m.Note = note
		} else {
			m.Note = strings.TrimSuffix(m.Note, ".") + ". " + note
		}
		return m
	}
	switch r := res.(type) {
	case analysis.Descriptive:
		r.Meta = add(r.Meta)
		return r
	case analysis.Mode:
		r.Meta = add(r.Meta)
		return r
	case analysis.TTest:
		r.Meta = add(r.Meta)
		return r
	case analysis.ANOVA:
		r.Meta = add(r.Meta)
		return r
	case analysis.ChiSquare:
		r.Meta = add(r.Meta)
		return r
	case analysis.Correlation:
		r.Meta = add(r.Meta)
		return r
	}
	return res
}

// applyFilter keeps rows whose filter cell satisfies the condition. Numbers
// compare numerically when both sides parse; otherwise text compares
// lexically. Rows with a missing filter cell are dropped.
func applyFilter(t *Table, f analysis.Filter) (*Table, error) {
	idx := t.Index(f.Column)
	if idx < 0 {
		return nil, columnNotFound(f.Column)
	}
	want, wantNum := parseNumber(f.Value)

	var rows [][]string
	for _, row := range t.Rows {
		cell := row[idx]
		if cell == "" {
			continue
		}
		var cmp int
		if got, ok := parseNumber(cell); ok && wantNum {
			switch {
			case got < want:
				cmp = -1
			case got > want:
				cmp = 1
			}
		} else {
			cmp = strings.Compare(cell, f.Value)
		}
		if matches(f.Operator, cmp) {
			rows = append(rows, row)
		}
	}
	return t.withRows(rows), nil
}

func matches(op analysis.FilterOperator, cmp int) bool {
	switch op {
	case analysis.FilterEq:
		return cmp == 0
	case analysis.FilterNotEq:
		return cmp != 0
	case analysis.FilterGt:
		return cmp > 0
	case analysis.FilterGte:
		return cmp >= 0
	case analysis.FilterLt:
		return cmp < 0
	case analysis.FilterLte:
		return cmp <= 0
	}
	return true
}
