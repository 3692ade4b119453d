package analysis

import (
	"fmt"
	"strings"

	"datalens/domain/dataset"
)

// ColumnOption is one selectable column. Value is what gets dispatched, Label
// is what gets shown.
type ColumnOption struct {
	Value string
	Label string
	Type  string
}

// ColumnLabel renders a column with its declared type, e.g. "age (int64)"
func ColumnLabel(name, typ string) string {
	return fmt.Sprintf("%s (%s)", name, typ)
}

// StripTypeHint removes a trailing " (type)" hint added by ColumnLabel
func StripTypeHint(label string) string {
	if !strings.HasSuffix(label, ")") {
		return label
	}
	idx := strings.LastIndex(label, " (")
	if idx < 0 {
		return label
	}
	return label[:idx]
}

// EligibleColumns returns the schema columns op accepts, in schema order.
// An unset or unknown operation yields no columns.
func EligibleColumns(op Operation, schema dataset.Schema) []ColumnOption {
	spec, ok := Lookup(op)
	if !ok {
		return nil
	}
	var out []ColumnOption
	for _, c := range schema {
		if spec.AcceptsType(c.Type) {
			out = append(out, option(c))
		}
	}
	return out
}

// AllColumns returns every schema column; the filter selector does not
// depend on the operation.
func AllColumns(schema dataset.Schema) []ColumnOption {
	out := make([]ColumnOption, 0, len(schema))
	for _, c := range schema {
		out = append(out, option(c))
	}
	return out
}

func option(c dataset.Column) ColumnOption {
	return ColumnOption{Value: c.Name, Label: ColumnLabel(c.Name, c.Type), Type: c.Type}
}
