package analysis

import (
	"net/url"
	"strconv"
)

// User-facing validation messages
const (
	MsgSelectOperation  = "Please select an operation"
	MsgSelectColumn     = "Please select a column"
	MsgSelectTwoColumns = "Please select two columns"
)

// Filter is a row filter attached to a request
type Filter struct {
	Column   string
	Operator FilterOperator
	Value    string
}

// Request is a validated perform call
type Request struct {
	Operation Operation
	Normalize bool
	Column    string
	Column1   string
	Column2   string
	Filter    *Filter
}

// Validate checks that cfg names an operation and the columns it needs.
// Only presence is checked; whether a column exists is left to the backend.
func Validate(cfg Config) error {
	if cfg.Operation == "" {
		return incomplete(MsgSelectOperation)
	}
	arity := 2
	if spec, ok := Lookup(cfg.Operation); ok {
		arity = spec.Columns
	}
	if arity == 1 {
		if cfg.Column == "" {
			return incomplete(MsgSelectColumn)
		}
		return nil
	}
	if cfg.Column1 == "" || cfg.Column2 == "" {
		return incomplete(MsgSelectTwoColumns)
	}
	return nil
}

// BuildRequest validates cfg and turns it into a Request. filterValue is the
// debounced filter value; cfg.FilterValue is ignored so a half-typed value is
// never sent.
func BuildRequest(cfg Config, filterValue string) (Request, error) {
	if err := Validate(cfg); err != nil {
		return Request{}, err
	}
	req := Request{Operation: cfg.Operation, Normalize: cfg.Clean}
	if spec, ok := Lookup(cfg.Operation); ok && spec.Columns == 1 {
		req.Column = cfg.Column
	} else {
		req.Column1, req.Column2 = cfg.Column1, cfg.Column2
	}
	if cfg.FilterColumn != "" && cfg.FilterOperator != FilterNone && filterValue != "" {
		req.Filter = &Filter{Column: cfg.FilterColumn, Operator: cfg.FilterOperator, Value: filterValue}
	}
	return req, nil
}

// Query encodes the request as perform endpoint query parameters
func (r Request) Query() url.Values {
	q := url.Values{}
	q.Set("operation", string(r.Operation))
	q.Set("normalize", strconv.FormatBool(r.Normalize))
	if r.Column != "" {
		q.Set("column", r.Column)
	} else {
		q.Set("column1", r.Column1)
		q.Set("column2", r.Column2)
	}
	if r.Filter != nil {
		q.Set("filter_column", r.Filter.Column)
		q.Set("filter_operator", string(r.Filter.Operator))
		q.Set("filter_value", r.Filter.Value)
	}
	return q
}

// ParseRequest reads perform query parameters back into a Request. The
// development backend uses it to serve the perform endpoint.
func ParseRequest(q url.Values) (Request, error) {
	req := Request{
		Operation: Operation(q.Get("operation")),
		Column:    q.Get("column"),
		Column1:   q.Get("column1"),
		Column2:   q.Get("column2"),
	}
	if _, ok := Lookup(req.Operation); !ok {
		return Request{}, invalidRequest("Unsupported operation: " + string(req.Operation))
	}
	if raw := q.Get("normalize"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Request{}, invalidRequest("normalize must be true or false")
		}
		req.Normalize = b
	}
	if col := q.Get("filter_column"); col != "" {
		op, ok := ParseFilterOperator(q.Get("filter_operator"))
		if !ok || op == FilterNone {
			return Request{}, invalidRequest("Unsupported filter operator: " + q.Get("filter_operator"))
		}
		if val := q.Get("filter_value"); val != "" {
			req.Filter = &Filter{Column: col, Operator: op, Value: val}
		}
	}
	cfg := Config{Operation: req.Operation, Column: req.Column, Column1: req.Column1, Column2: req.Column2}
	if err := Validate(cfg); err != nil {
		return Request{}, invalidRequest(err.Error())
	}
	return req, nil
}
