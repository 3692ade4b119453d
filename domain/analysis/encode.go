package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeResult writes res as a perform response body, the inverse of
// DecodeResult. Contingency rows and columns keep their order. Non-finite
// numbers are rejected since JSON cannot carry them.
func EncodeResult(res Result) ([]byte, error) {
	e := &encoder{}
	e.buf.WriteByte('{')
	switch r := res.(type) {
	case Descriptive:
		e.field("result", r.Value)
	case Mode:
		values := r.Values
		if values == nil {
			values = []string{}
		}
		e.field("result", values)
	case TTest:
		e.field("t_statistic", r.TStatistic)
		e.field("p_value", r.PValue)
	case ANOVA:
		e.field("f_statistic", r.FStatistic)
		e.field("p_value", r.PValue)
	case ChiSquare:
		e.field("chi2", r.Chi2)
		e.field("p_value", r.PValue)
		e.field("dof", r.DoF)
		e.key("contingency_table")
		e.buf.WriteByte('{')
		for i, row := range r.Rows {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			e.value(row.Label)
			e.buf.WriteString(":{")
			for j, col := range r.Columns {
				if j > 0 {
					e.buf.WriteByte(',')
				}
				e.value(col)
				e.buf.WriteByte(':')
				n := 0.0
				if j < len(row.Counts) {
					n = row.Counts[j]
				}
				e.value(n)
			}
			e.buf.WriteByte('}')
		}
		e.buf.WriteByte('}')
	case Correlation:
		e.field("correlation", r.Coefficient)
		e.field("p_value", r.PValue)
	default:
		return nil, fmt.Errorf("unsupported result type %T", res)
	}
	meta := res.Metadata()
	if meta.Plot != "" {
		e.field("plot", meta.Plot)
	}
	if meta.Note != "" {
		e.field("note", meta.Note)
	}
	e.buf.WriteByte('}')
	if e.err != nil {
		return nil, fmt.Errorf("encode %s result: %w", res.Operation(), e.err)
	}
	return e.buf.Bytes(), nil
}

type encoder struct {
	buf    bytes.Buffer
	fields int
	err    error
}

func (e *encoder) key(k string) {
	if e.fields > 0 {
		e.buf.WriteByte(',')
	}
	e.fields++
	e.value(k)
	e.buf.WriteByte(':')
}

func (e *encoder) field(k string, v interface{}) {
	e.key(k)
	e.value(v)
}

func (e *encoder) value(v interface{}) {
	if e.err != nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		e.err = err
		return
	}
	e.buf.Write(b)
}
