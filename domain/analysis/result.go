package analysis

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// Meta is carried by every result: an optional plot image reference (URL or
// data URI) and an optional accuracy or caveat note.
type Meta struct {
	Plot string
	Note string
}

// Result is the outcome of one perform call. The concrete type is chosen by
// the operation family.
type Result interface {
	Operation() Operation
	Metadata() Meta
	isResult()
}

// Descriptive is the result of mean and median
type Descriptive struct {
	Op    Operation
	Value float64
	Meta
}

// Mode lists the most frequent values; ties produce several
type Mode struct {
	Values []string
	Meta
}

// TTest is the result of a two-sample t-test
type TTest struct {
	TStatistic float64
	PValue     float64
	Meta
}

// ANOVA is the result of a one-way analysis of variance
type ANOVA struct {
	FStatistic float64
	PValue     float64
	Meta
}

// ContingencyRow is one row of a contingency table, cells in column order
type ContingencyRow struct {
	Label  string
	Counts []float64
}

// ChiSquare is the result of a chi-square independence test
type ChiSquare struct {
	Chi2    float64
	PValue  float64
	DoF     int
	Columns []string
	Rows    []ContingencyRow
	Meta
}

// Correlation is the result of pearson and spearman
type Correlation struct {
	Op          Operation
	Coefficient float64
	PValue      float64
	Meta
}

func (r Descriptive) Operation() Operation { return r.Op }
func (Mode) Operation() Operation          { return OpMode }
func (TTest) Operation() Operation         { return OpTTest }
func (ANOVA) Operation() Operation         { return OpANOVA }
func (ChiSquare) Operation() Operation     { return OpChiSquare }
func (r Correlation) Operation() Operation { return r.Op }

func (r Descriptive) Metadata() Meta { return r.Meta }
func (r Mode) Metadata() Meta        { return r.Meta }
func (r TTest) Metadata() Meta       { return r.Meta }
func (r ANOVA) Metadata() Meta       { return r.Meta }
func (r ChiSquare) Metadata() Meta   { return r.Meta }
func (r Correlation) Metadata() Meta { return r.Meta }

func (Descriptive) isResult() {}
func (Mode) isResult()        {}
func (TTest) isResult()       {}
func (ANOVA) isResult()       {}
func (ChiSquare) isResult()   {}
func (Correlation) isResult() {}

// PresentationOf returns what the result view shows for r
func PresentationOf(r Result) Presentation {
	spec, _ := Lookup(r.Operation())
	return spec.Presentation
}

// DecodeResult parses a successful perform body for op
func DecodeResult(op Operation, body []byte) (Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid %s result JSON", op)
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, fmt.Errorf("%s result must be a JSON object", op)
	}
	meta := Meta{Plot: root.Get("plot").String(), Note: root.Get("note").String()}

	switch op {
	case OpMean, OpMedian:
		v, err := requireNumber(root, "result")
		if err != nil {
			return nil, err
		}
		return Descriptive{Op: op, Value: v, Meta: meta}, nil

	case OpMode:
		res := root.Get("result")
		if !res.Exists() {
			return nil, fmt.Errorf("mode result missing field %q", "result")
		}
		var values []string
		if res.IsArray() {
			res.ForEach(func(_, v gjson.Result) bool {
				values = append(values, v.String())
				return true
			})
		} else {
			values = []string{res.String()}
		}
		return Mode{Values: values, Meta: meta}, nil

	case OpTTest:
		t, err := requireNumber(root, "t_statistic")
		if err != nil {
			return nil, err
		}
		return TTest{TStatistic: t, PValue: root.Get("p_value").Float(), Meta: meta}, nil

	case OpANOVA:
		f, err := requireNumber(root, "f_statistic")
		if err != nil {
			return nil, err
		}
		return ANOVA{FStatistic: f, PValue: root.Get("p_value").Float(), Meta: meta}, nil

	case OpChiSquare:
		chi2, err := requireNumber(root, "chi2")
		if err != nil {
			return nil, err
		}
		out := ChiSquare{
			Chi2:   chi2,
			PValue: root.Get("p_value").Float(),
			DoF:    int(root.Get("dof").Int()),
			Meta:   meta,
		}
		out.Columns, out.Rows = decodeContingency(root.Get("contingency_table"))
		return out, nil

	case OpPearson, OpSpearman:
		c, err := requireNumber(root, "correlation")
		if err != nil {
			return nil, err
		}
		return Correlation{Op: op, Coefficient: c, PValue: root.Get("p_value").Float(), Meta: meta}, nil
	}
	return nil, fmt.Errorf("unsupported operation %q", op)
}

func requireNumber(root gjson.Result, field string) (float64, error) {
	v := root.Get(field)
	if v.Type != gjson.Number {
		return 0, fmt.Errorf("result missing numeric field %q", field)
	}
	return v.Float(), nil
}

// decodeContingency reads {row: {col: n}} keeping row order and the order in
// which columns first appear.
func decodeContingency(table gjson.Result) ([]string, []ContingencyRow) {
	var columns []string
	seen := map[string]int{}
	type cell struct {
		col string
		n   float64
	}
	var raw [][]cell
	var labels []string

	table.ForEach(func(row, cols gjson.Result) bool {
		labels = append(labels, row.String())
		var cells []cell
		cols.ForEach(func(col, n gjson.Result) bool {
			name := col.String()
			if _, ok := seen[name]; !ok {
				seen[name] = len(columns)
				columns = append(columns, name)
			}
			cells = append(cells, cell{name, n.Float()})
			return true
		})
		raw = append(raw, cells)
		return true
	})

	rows := make([]ContingencyRow, len(labels))
	for i, label := range labels {
		counts := make([]float64, len(columns))
		for _, c := range raw[i] {
			counts[seen[c.col]] = c.n
		}
		rows[i] = ContingencyRow{Label: label, Counts: counts}
	}
	return columns, rows
}
