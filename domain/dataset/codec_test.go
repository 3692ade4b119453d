package dataset

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
  "dataset_id": 7,
  "title": "Regional sales",
  "schema": {"region": "object", "units": "int64", "price": "float64", "channel": "object"},
  "overview": {
    "total_rows": 15,
    "duplicate_rows": 2,
    "missing_values": {"region": 0, "units": 1, "price": 3},
    "numeric_stats": {"units": {"mean": 4.5, "max": 9}, "price": {"mean": 12.25}},
    "categorical_stats": {
      "region": {"south": 5, "north": 10},
      "channel": {"web": 9, "store": 6}
    }
  },
  "normalized": true
}`

func TestParseOverviewKeepsDocumentOrder(t *testing.T) {
	ov, err := ParseOverview([]byte(samplePayload))
	require.NoError(t, err)

	assert.Equal(t, "7", ov.DatasetID.String())
	assert.Equal(t, "Regional sales", ov.Title)
	assert.True(t, ov.Normalized)
	assert.Equal(t, []string{"region", "units", "price", "channel"}, ov.Schema.Names())
	assert.Equal(t, []string{"region", "channel"}, ov.CategoricalColumns())

	region, ok := ov.Distribution("region")
	require.True(t, ok)
	assert.Equal(t, []Bucket{{"south", 5}, {"north", 10}}, region.Buckets)
	assert.Equal(t, 15.0, region.Total())
	assert.Equal(t, 10.0, region.Max())

	assert.Equal(t, 15, ov.Stats.TotalRows)
	assert.Equal(t, 2, ov.Stats.DuplicateRows)
	assert.Equal(t, 4, ov.MissingTotal())

	units := ov.Stats.Numeric[0]
	mean, ok := units.Get("mean")
	assert.True(t, ok)
	assert.Equal(t, 4.5, mean)

	typ, ok := ov.Schema.Type("price")
	assert.True(t, ok)
	assert.Equal(t, TypeFloat64, typ)
}

func TestParseOverviewRejectsGarbage(t *testing.T) {
	_, err := ParseOverview([]byte(`{"schema":`))
	assert.Error(t, err)

	_, err = ParseOverview([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestOverviewWireRoundTripPreservesOrder(t *testing.T) {
	ov, err := ParseOverview([]byte(samplePayload))
	require.NoError(t, err)

	encoded, err := json.Marshal(ov)
	require.NoError(t, err)

	var decoded Overview
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, *ov, decoded)
}

func TestEmptyOverviewHasNoCategories(t *testing.T) {
	ov, err := ParseOverview([]byte(`{"dataset_id":"x","schema":{},"overview":{},"normalized":false}`))
	require.NoError(t, err)
	assert.Empty(t, ov.CategoricalColumns())
	assert.False(t, ov.HasCategory("region"))

	var nilOverview *Overview
	assert.Nil(t, nilOverview.CategoricalColumns())
}
