// Package analysis holds the analysis workspace domain: the operation
// catalog, the configuration reducer, column eligibility, request building
// and the result variants returned by the perform endpoint.
package analysis

import (
	"datalens/domain/dataset"
)

// CalcType is the calculation category an operation belongs to
type CalcType string

const (
	CalcNone        CalcType = ""
	CalcDescriptive CalcType = "descriptive"
	CalcInferential CalcType = "inferential"
	CalcCorrelation CalcType = "correlation"
)

// Operation names one statistical computation understood by the backend
type Operation string

const (
	OpMean      Operation = "mean"
	OpMedian    Operation = "median"
	OpMode      Operation = "mode"
	OpTTest     Operation = "t_test"
	OpChiSquare Operation = "chi_square"
	OpANOVA     Operation = "anova"
	OpPearson   Operation = "pearson"
	OpSpearman  Operation = "spearman"
)

// AnyType accepts every declared column type
const AnyType = "any"

// Presentation says which parts of a result view an operation fills
type Presentation struct {
	Numeric bool
	Plot    bool
	Table   bool
}

// OperationSpec is one catalog row
type OperationSpec struct {
	Name         Operation
	Label        string
	Category     CalcType
	Columns      int
	Accepts      []string
	Presentation Presentation
}

// AcceptsType reports whether a column of declared type typ is eligible
func (s OperationSpec) AcceptsType(typ string) bool {
	for _, a := range s.Accepts {
		if a == AnyType || a == typ {
			return true
		}
	}
	return false
}

var (
	numericOnly   = []string{dataset.TypeInt64, dataset.TypeFloat64}
	numericOnlyUI = Presentation{Numeric: true}
	withPlot      = Presentation{Numeric: true, Plot: true}
)

var catalog = []OperationSpec{
	{Name: OpMean, Label: "Mean", Category: CalcDescriptive, Columns: 1, Accepts: numericOnly, Presentation: numericOnlyUI},
	{Name: OpMedian, Label: "Median", Category: CalcDescriptive, Columns: 1, Accepts: numericOnly, Presentation: numericOnlyUI},
	{Name: OpMode, Label: "Mode", Category: CalcDescriptive, Columns: 1, Accepts: []string{AnyType}, Presentation: numericOnlyUI},
	{Name: OpTTest, Label: "T-Test", Category: CalcInferential, Columns: 2, Accepts: numericOnly, Presentation: withPlot},
	{Name: OpChiSquare, Label: "Chi-Square", Category: CalcInferential, Columns: 2,
		Accepts:      []string{dataset.TypeObject, dataset.TypeInt64},
		Presentation: Presentation{Numeric: true, Plot: true, Table: true}},
	{Name: OpANOVA, Label: "ANOVA", Category: CalcInferential, Columns: 2,
		Accepts:      []string{dataset.TypeInt64, dataset.TypeFloat64, dataset.TypeObject},
		Presentation: withPlot},
	{Name: OpPearson, Label: "Pearson", Category: CalcCorrelation, Columns: 2, Accepts: numericOnly, Presentation: withPlot},
	{Name: OpSpearman, Label: "Spearman", Category: CalcCorrelation, Columns: 2, Accepts: numericOnly, Presentation: withPlot},
}

// Lookup returns the catalog entry for op
func Lookup(op Operation) (OperationSpec, bool) {
	for _, spec := range catalog {
		if spec.Name == op {
			return spec, true
		}
	}
	return OperationSpec{}, false
}

// Catalog returns a copy of the full operation catalog
func Catalog() []OperationSpec {
	out := make([]OperationSpec, len(catalog))
	copy(out, catalog)
	return out
}

// Categories lists the calculation categories in display order
func Categories() []CalcType {
	return []CalcType{CalcDescriptive, CalcInferential, CalcCorrelation}
}

// OperationsFor returns the operations belonging to category
func OperationsFor(category CalcType) []OperationSpec {
	var out []OperationSpec
	for _, spec := range catalog {
		if spec.Category == category {
			out = append(out, spec)
		}
	}
	return out
}

// FilterOperator is a row filter comparison
type FilterOperator string

const (
	FilterNone  FilterOperator = ""
	FilterEq    FilterOperator = "="
	FilterNotEq FilterOperator = "!="
	FilterGt    FilterOperator = ">"
	FilterGte   FilterOperator = ">="
	FilterLt    FilterOperator = "<"
	FilterLte   FilterOperator = "<="
)

// FilterOption pairs an operator with its display label
type FilterOption struct {
	Value FilterOperator
	Label string
}

// FilterOperators lists the supported filter operators in display order
func FilterOperators() []FilterOption {
	return []FilterOption{
		{FilterEq, "Equals"},
		{FilterNotEq, "Not equal"},
		{FilterGt, "Greater than"},
		{FilterGte, "Greater than or equal"},
		{FilterLt, "Less than"},
		{FilterLte, "Less than or equal"},
	}
}

// ParseFilterOperator validates a raw operator string
func ParseFilterOperator(s string) (FilterOperator, bool) {
	for _, opt := range FilterOperators() {
		if string(opt.Value) == s {
			return opt.Value, true
		}
	}
	return FilterNone, s == ""
}
