package dataset

import (
	"datalens/domain/core"
)

// Declared column types as reported by the backend schema
const (
	TypeInt64   = "int64"
	TypeFloat64 = "float64"
	TypeObject  = "object"
	TypeBool    = "bool"
	TypeDate    = "datetime64[ns]"
)

// Column is one schema entry: a column name and its declared type
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema lists columns in the order the backend declared them
type Schema []Column

// Type returns the declared type of name
func (s Schema) Type(name string) (string, bool) {
	for _, c := range s {
		if c.Name == name {
			return c.Type, true
		}
	}
	return "", false
}

// Names returns the column names in schema order
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Bucket is one category value and its occurrence count
type Bucket struct {
	Label string  `json:"label"`
	Count float64 `json:"count"`
}

// Distribution is the categorical breakdown of one column, in data order
type Distribution struct {
	Column  string   `json:"column"`
	Buckets []Bucket `json:"buckets"`
}

// Len returns the number of categories
func (d Distribution) Len() int {
	return len(d.Buckets)
}

// Total sums all bucket counts
func (d Distribution) Total() float64 {
	total := 0.0
	for _, b := range d.Buckets {
		total += b.Count
	}
	return total
}

// Max returns the largest bucket count, 0 when empty
func (d Distribution) Max() float64 {
	max := 0.0
	for i, b := range d.Buckets {
		if i == 0 || b.Count > max {
			max = b.Count
		}
	}
	return max
}

// NamedValue is one named statistic, e.g. ("mean", 41.2)
type NamedValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// NumericSummary holds the numeric statistics of one column
type NumericSummary struct {
	Column string       `json:"column"`
	Stats  []NamedValue `json:"stats"`
}

// Get returns the statistic called name
func (n NumericSummary) Get(name string) (float64, bool) {
	for _, s := range n.Stats {
		if s.Name == name {
			return s.Value, true
		}
	}
	return 0, false
}

// ColumnCount pairs a column with a count, used for missing values
type ColumnCount struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
}

// Stats is the overview block of a dataset payload
type Stats struct {
	TotalRows     int
	DuplicateRows int
	MissingValues []ColumnCount
	Numeric       []NumericSummary
	Categorical   []Distribution
}

// Overview is an immutable snapshot of a dataset as served by the details
// endpoint. A new fetch replaces it wholesale. Its JSON form is the wire
// payload (see codec.go), not the Go field layout.
type Overview struct {
	DatasetID  core.DatasetID
	Title      string
	Schema     Schema
	Stats      Stats
	Normalized bool
}

// CategoricalColumns returns the columns with a categorical distribution, in
// payload order
func (o *Overview) CategoricalColumns() []string {
	if o == nil {
		return nil
	}
	cols := make([]string, len(o.Stats.Categorical))
	for i, d := range o.Stats.Categorical {
		cols[i] = d.Column
	}
	return cols
}

// Distribution returns the categorical distribution of column
func (o *Overview) Distribution(column string) (Distribution, bool) {
	if o == nil {
		return Distribution{}, false
	}
	for _, d := range o.Stats.Categorical {
		if d.Column == column {
			return d, true
		}
	}
	return Distribution{}, false
}

// HasCategory reports whether column has a categorical distribution
func (o *Overview) HasCategory(column string) bool {
	_, ok := o.Distribution(column)
	return ok
}

// MissingTotal sums missing cells across all columns
func (o *Overview) MissingTotal() int {
	if o == nil {
		return 0
	}
	total := 0
	for _, m := range o.Stats.MissingValues {
		total += m.Count
	}
	return total
}
