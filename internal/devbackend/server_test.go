package devbackend

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"testing"

	"datalens/adapters/api"
	"datalens/domain/analysis"
	"datalens/domain/core"
	"datalens/domain/dataset"
	"datalens/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	tables := map[core.DatasetID]*Table{
		"visits": fixture(t),
		"n":      numbersTable(t),
		"secret": numbersTable(t),
	}
	opts.Restricted = append(opts.Restricted, "secret")
	s, err := New(tables, opts)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, buf.Bytes()
}

func TestDetailsEndpoint(t *testing.T) {
	ts := newTestServer(t, Options{})

	status, body := get(t, ts.URL+"/datasets/details/visits/?normalize=true")
	require.Equal(t, http.StatusOK, status)
	ov, err := dataset.ParseOverview(body)
	require.NoError(t, err)
	assert.Equal(t, core.DatasetID("visits"), ov.DatasetID)
	assert.True(t, ov.Normalized)
	assert.Equal(t, []string{"ward", "age", "stay", "admitted", "smoker"}, ov.Schema.Names())

	status, _ = get(t, ts.URL+"/datasets/details/secret/")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = get(t, ts.URL+"/datasets/details/unknown/")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = get(t, ts.URL+"/datasets/details/visits/?normalize=maybe")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPerformEndpointErrorsCarryMessage(t *testing.T) {
	ts := newTestServer(t, Options{})

	status, body := get(t, ts.URL+"/datasets/perform/n/?operation=mean&column=group")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Column 'group' is not numeric", gjson.GetBytes(body, "error").String())

	status, body = get(t, ts.URL+"/datasets/perform/n/?operation=median")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, analysis.MsgSelectColumn, gjson.GetBytes(body, "error").String())
}

func TestTokenRequired(t *testing.T) {
	ts := newTestServer(t, Options{Token: "s3cret"})
	status, _ := get(t, ts.URL+"/datasets/details/visits/")
	assert.Equal(t, http.StatusUnauthorized, status)

	client := api.NewClient(api.ClientConfig{BaseURL: ts.URL, Token: "s3cret"}, nil)
	_, err := client.Overview(context.Background(), "visits", false)
	assert.NoError(t, err)
}

func TestClientRoundTrip(t *testing.T) {
	ts := newTestServer(t, Options{})
	client := api.NewClient(api.ClientConfig{BaseURL: ts.URL}, nil)
	ctx := context.Background()

	ov, err := client.Overview(ctx, "visits", false)
	require.NoError(t, err)
	assert.Equal(t, 1, ov.Stats.DuplicateRows)
	assert.Equal(t, []string{"ward", "smoker"}, ov.CategoricalColumns())

	_, err = client.Overview(ctx, "secret", false)
	assert.True(t, errors.HasCode(err, errors.CodeAccessDenied))

	res, err := client.Perform(ctx, "n", analysis.Request{Operation: analysis.OpChiSquare, Column1: "group", Column2: "h"})
	require.NoError(t, err)
	chi := res.(analysis.ChiSquare)
	assert.Equal(t, []string{"x", "y"}, chi.Columns)
	assert.Equal(t, "a", chi.Rows[0].Label)
	assert.Contains(t, chi.Plot, "data:image/png;base64,")

	req := analysis.Request{
		Operation: analysis.OpMean, Column: "a",
		Filter: &analysis.Filter{Column: "a", Operator: analysis.FilterLte, Value: "2"},
	}
	res, err = client.Perform(ctx, "n", req)
	require.NoError(t, err)
	assert.Equal(t, 1.5, res.(analysis.Descriptive).Value)

	_, err = client.Perform(ctx, "n", analysis.Request{Operation: analysis.OpPearson, Column1: "a", Column2: "group"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeAnalysisFailed))
	assert.Equal(t, "Column 'group' is not numeric", errors.UserMessage(err))
}

func TestDownloadIsEncryptedCSV(t *testing.T) {
	key := bytes.Repeat([]byte{7}, KeySize)
	ts := newTestServer(t, Options{Key: key})
	client := api.NewClient(api.ClientConfig{BaseURL: ts.URL}, nil)

	sealed, err := client.Download(context.Background(), "visits", []string{"ward", "age"}, true)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "ward")

	plain, err := Decrypt(key, sealed)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(plain)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"ward", "age"}, records[0])
	assert.Len(t, records, 5)

	_, err = Decrypt(bytes.Repeat([]byte{8}, KeySize), sealed)
	assert.Error(t, err)

	_, err = client.Download(context.Background(), "visits", []string{"nope"}, false)
	assert.Error(t, err)
}

func TestNewRejectsShortKey(t *testing.T) {
	_, err := New(nil, Options{Key: []byte("short")})
	assert.Error(t, err)
}
