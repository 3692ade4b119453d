package devbackend

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"datalens/domain/core"
	"datalens/domain/dataset"

	"github.com/montanaflynn/stats"
)

// maxCategories bounds categorical_stats; text columns with more distinct
// values (ids, free text) are left out
const maxCategories = 50

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
}

// InferType returns the declared type for a column of raw cells. Missing
// cells are ignored; an all-missing column is an object column.
func InferType(values []string) string {
	isInt, isFloat, isBool, isDate := true, true, true, true
	present := 0
	for _, v := range values {
		if v == "" {
			continue
		}
		present++
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, ok := parseNumber(v); !ok {
				isFloat = false
			}
		}
		if isBool {
			switch strings.ToLower(v) {
			case "true", "false":
			default:
				isBool = false
			}
		}
		if isDate {
			isDate = parseDate(v)
		}
	}
	switch {
	case present == 0:
		return dataset.TypeObject
	case isInt:
		return dataset.TypeInt64
	case isFloat:
		return dataset.TypeFloat64
	case isBool:
		return dataset.TypeBool
	case isDate:
		return dataset.TypeDate
	}
	return dataset.TypeObject
}

func parseNumber(v string) (float64, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseDate(v string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

func isNumericType(typ string) bool {
	return typ == dataset.TypeInt64 || typ == dataset.TypeFloat64
}

// Schema infers the column types of t in header order
func Schema(t *Table) dataset.Schema {
	schema := make(dataset.Schema, len(t.Headers))
	for i, h := range t.Headers {
		col, _ := t.Column(h)
		schema[i] = dataset.Column{Name: h, Type: InferType(col)}
	}
	return schema
}

// Normalize drops duplicate rows, keeping the first occurrence, and fills
// missing cells: numeric columns with the column median, all others with the
// most frequent value. Types are inferred before filling so a fill never
// changes a column's type.
func Normalize(t *Table) *Table {
	schema := Schema(t)

	seen := make(map[core.Hash]bool, len(t.Rows))
	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		h := core.HashRow(row)
		if seen[h] {
			continue
		}
		seen[h] = true
		rows = append(rows, append([]string(nil), row...))
	}

	for j, col := range schema {
		var fill string
		values := make([]string, len(rows))
		for i, row := range rows {
			values[i] = row[j]
		}
		if isNumericType(col.Type) {
			nums := numbers(values)
			if len(nums) == 0 {
				continue
			}
			median, err := stats.Median(nums)
			if err != nil {
				continue
			}
			if col.Type == dataset.TypeInt64 {
				fill = strconv.FormatInt(int64(math.Round(median)), 10)
			} else {
				fill = strconv.FormatFloat(median, 'f', -1, 64)
			}
		} else {
			buckets := countValues(values)
			if len(buckets) == 0 {
				continue
			}
			best := buckets[0]
			for _, b := range buckets[1:] {
				if b.Count > best.Count {
					best = b
				}
			}
			fill = best.Label
		}
		for _, row := range rows {
			if row[j] == "" {
				row[j] = fill
			}
		}
	}
	return t.withRows(rows)
}

// BuildOverview computes the details payload for t, normalizing it first
// when normalize is set
func BuildOverview(t *Table, normalize bool) *dataset.Overview {
	if normalize {
		t = Normalize(t)
	}
	schema := Schema(t)
	ov := &dataset.Overview{
		DatasetID:  t.ID,
		Title:      t.Title,
		Schema:     schema,
		Normalized: normalize,
	}
	ov.Stats.TotalRows = len(t.Rows)
	ov.Stats.DuplicateRows = countDuplicates(t.Rows)

	for j, col := range schema {
		values := make([]string, len(t.Rows))
		missing := 0
		for i, row := range t.Rows {
			values[i] = row[j]
			if row[j] == "" {
				missing++
			}
		}
		ov.Stats.MissingValues = append(ov.Stats.MissingValues, dataset.ColumnCount{Column: col.Name, Count: missing})

		switch {
		case isNumericType(col.Type):
			if summary, ok := describe(col.Name, numbers(values)); ok {
				ov.Stats.Numeric = append(ov.Stats.Numeric, summary)
			}
		case col.Type == dataset.TypeObject || col.Type == dataset.TypeBool:
			buckets := countValues(values)
			if len(buckets) > 0 && len(buckets) <= maxCategories {
				ov.Stats.Categorical = append(ov.Stats.Categorical, dataset.Distribution{Column: col.Name, Buckets: buckets})
			}
		}
	}
	return ov
}

func countDuplicates(rows [][]string) int {
	seen := make(map[core.Hash]bool, len(rows))
	dups := 0
	for _, row := range rows {
		h := core.HashRow(row)
		if seen[h] {
			dups++
			continue
		}
		seen[h] = true
	}
	return dups
}

// describe returns count, mean, std, min, quartiles and max
func describe(column string, data []float64) (dataset.NumericSummary, bool) {
	if len(data) == 0 {
		return dataset.NumericSummary{}, false
	}
	mean, _ := stats.Mean(data)
	std := 0.0
	if len(data) > 1 {
		std, _ = stats.StandardDeviationSample(data)
	}
	min, _ := stats.Min(data)
	max, _ := stats.Max(data)

	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	return dataset.NumericSummary{
		Column: column,
		Stats: []dataset.NamedValue{
			{Name: "count", Value: float64(len(data))},
			{Name: "mean", Value: mean},
			{Name: "std", Value: std},
			{Name: "min", Value: min},
			{Name: "25%", Value: quantile(sorted, 0.25)},
			{Name: "50%", Value: quantile(sorted, 0.5)},
			{Name: "75%", Value: quantile(sorted, 0.75)},
			{Name: "max", Value: max},
		},
	}, true
}

// quantile interpolates linearly between closest ranks of sorted data
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// numbers parses the numeric cells of values, skipping missing and
// unparseable ones
func numbers(values []string) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := parseNumber(v); ok {
			out = append(out, f)
		}
	}
	return out
}

// countValues counts non-missing values in first-seen order
func countValues(values []string) []dataset.Bucket {
	index := map[string]int{}
	var buckets []dataset.Bucket
	for _, v := range values {
		if v == "" {
			continue
		}
		i, ok := index[v]
		if !ok {
			i = len(buckets)
			index[v] = i
			buckets = append(buckets, dataset.Bucket{Label: v})
		}
		buckets[i].Count++
	}
	return buckets
}
