package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"

	"datalens/domain/core"

	"github.com/tidwall/gjson"
)

// ParseOverview decodes a details payload. JSON objects are walked in
// document order so schema columns and categorical buckets keep the order
// the backend sent them in.
func ParseOverview(body []byte) (*Overview, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid dataset overview JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, fmt.Errorf("dataset overview must be a JSON object")
	}

	ov := &Overview{
		DatasetID:  core.DatasetID(root.Get("dataset_id").String()),
		Title:      root.Get("title").String(),
		Normalized: root.Get("normalized").Bool(),
	}

	root.Get("schema").ForEach(func(key, value gjson.Result) bool {
		ov.Schema = append(ov.Schema, Column{Name: key.String(), Type: value.String()})
		return true
	})

	stats := root.Get("overview")
	ov.Stats.TotalRows = int(stats.Get("total_rows").Int())
	ov.Stats.DuplicateRows = int(stats.Get("duplicate_rows").Int())

	stats.Get("missing_values").ForEach(func(key, value gjson.Result) bool {
		ov.Stats.MissingValues = append(ov.Stats.MissingValues, ColumnCount{Column: key.String(), Count: int(value.Int())})
		return true
	})

	stats.Get("numeric_stats").ForEach(func(column, block gjson.Result) bool {
		summary := NumericSummary{Column: column.String()}
		block.ForEach(func(name, value gjson.Result) bool {
			summary.Stats = append(summary.Stats, NamedValue{Name: name.String(), Value: value.Float()})
			return true
		})
		ov.Stats.Numeric = append(ov.Stats.Numeric, summary)
		return true
	})

	stats.Get("categorical_stats").ForEach(func(column, block gjson.Result) bool {
		dist := Distribution{Column: column.String()}
		block.ForEach(func(label, count gjson.Result) bool {
			dist.Buckets = append(dist.Buckets, Bucket{Label: label.String(), Count: count.Float()})
			return true
		})
		ov.Stats.Categorical = append(ov.Stats.Categorical, dist)
		return true
	})

	return ov, nil
}

// UnmarshalJSON implements json.Unmarshaler using ParseOverview
func (o *Overview) UnmarshalJSON(data []byte) error {
	parsed, err := ParseOverview(data)
	if err != nil {
		return err
	}
	*o = *parsed
	return nil
}

// MarshalJSON writes the wire payload with ordered objects
func (o *Overview) MarshalJSON() ([]byte, error) {
	w := &objectWriter{}
	w.open()
	w.field("dataset_id", o.DatasetID.String())
	w.field("title", o.Title)

	w.key("schema")
	w.open()
	for _, c := range o.Schema {
		w.field(c.Name, c.Type)
	}
	w.close()

	w.key("overview")
	w.open()
	w.field("total_rows", o.Stats.TotalRows)
	w.field("duplicate_rows", o.Stats.DuplicateRows)

	w.key("missing_values")
	w.open()
	for _, m := range o.Stats.MissingValues {
		w.field(m.Column, m.Count)
	}
	w.close()

	w.key("numeric_stats")
	w.open()
	for _, n := range o.Stats.Numeric {
		w.key(n.Column)
		w.open()
		for _, s := range n.Stats {
			w.field(s.Name, s.Value)
		}
		w.close()
	}
	w.close()

	w.key("categorical_stats")
	w.open()
	for _, d := range o.Stats.Categorical {
		w.key(d.Column)
		w.open()
		for _, b := range d.Buckets {
			w.field(b.Label, b.Count)
		}
		w.close()
	}
	w.close()
	w.close()

	w.field("normalized", o.Normalized)
	w.close()
	return w.bytes()
}

// objectWriter emits JSON objects field by field so key order is explicit
type objectWriter struct {
	buf   bytes.Buffer
	first []bool
	err   error
}

func (w *objectWriter) open() {
	w.buf.WriteByte('{')
	w.first = append(w.first, true)
}

func (w *objectWriter) close() {
	w.buf.WriteByte('}')
	w.first = w.first[:len(w.first)-1]
	if len(w.first) > 0 {
		w.first[len(w.first)-1] = false
	}
}

func (w *objectWriter) key(k string) {
	top := len(w.first) - 1
	if !w.first[top] {
		w.buf.WriteByte(',')
	}
	w.first[top] = false
	w.value(k)
	w.buf.WriteByte(':')
}

func (w *objectWriter) field(k string, v interface{}) {
	w.key(k)
	w.value(v)
}

func (w *objectWriter) value(v interface{}) {
	if w.err != nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		w.err = err
		return
	}
	w.buf.Write(b)
}

func (w *objectWriter) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}
