package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResultVariants(t *testing.T) {
	res, err := DecodeResult(OpMean, []byte(`{"result": 41.5, "note": "3 rows dropped"}`))
	require.NoError(t, err)
	assert.Equal(t, Descriptive{Op: OpMean, Value: 41.5, Meta: Meta{Note: "3 rows dropped"}}, res)
	assert.Equal(t, Presentation{Numeric: true}, PresentationOf(res))

	res, err = DecodeResult(OpMode, []byte(`{"result": ["north", 3]}`))
	require.NoError(t, err)
	assert.Equal(t, Mode{Values: []string{"north", "3"}}, res)

	res, err = DecodeResult(OpMode, []byte(`{"result": "south"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"south"}, res.(Mode).Values)

	res, err = DecodeResult(OpTTest, []byte(`{"t_statistic": -2.1, "p_value": 0.04, "plot": "data:image/png;base64,AA=="}`))
	require.NoError(t, err)
	assert.Equal(t, TTest{TStatistic: -2.1, PValue: 0.04, Meta: Meta{Plot: "data:image/png;base64,AA=="}}, res)

	res, err = DecodeResult(OpANOVA, []byte(`{"f_statistic": 5.5, "p_value": 0.01}`))
	require.NoError(t, err)
	assert.Equal(t, OpANOVA, res.Operation())

	res, err = DecodeResult(OpSpearman, []byte(`{"correlation": 0.8, "p_value": 0.001}`))
	require.NoError(t, err)
	assert.Equal(t, Correlation{Op: OpSpearman, Coefficient: 0.8, PValue: 0.001}, res)
	assert.True(t, PresentationOf(res).Plot)
}

func TestDecodeChiSquareKeepsTableOrder(t *testing.T) {
	body := `{
	  "chi2": 4.2, "p_value": 0.12, "dof": 2,
	  "contingency_table": {
	    "south": {"web": 3, "store": 1},
	    "north": {"store": 4, "web": 2, "phone": 1}
	  }
	}`
	res, err := DecodeResult(OpChiSquare, []byte(body))
	require.NoError(t, err)

	chi := res.(ChiSquare)
	assert.Equal(t, 2, chi.DoF)
	assert.Equal(t, []string{"web", "store", "phone"}, chi.Columns)
	assert.Equal(t, []ContingencyRow{
		{Label: "south", Counts: []float64{3, 1, 0}},
		{Label: "north", Counts: []float64{2, 4, 1}},
	}, chi.Rows)
	assert.True(t, PresentationOf(chi).Table)
}

func TestDecodeResultErrors(t *testing.T) {
	_, err := DecodeResult(OpMean, []byte(`{"result": "n/a"}`))
	assert.Error(t, err)

	_, err = DecodeResult(OpPearson, []byte(`{"p_value": 0.2}`))
	assert.Error(t, err)

	_, err = DecodeResult(OpMode, []byte(`{}`))
	assert.Error(t, err)

	_, err = DecodeResult("kurtosis", []byte(`{"result": 1}`))
	assert.Error(t, err)

	_, err = DecodeResult(OpMean, []byte(`not json`))
	assert.Error(t, err)
}
