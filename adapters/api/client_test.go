package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"datalens/domain/analysis"
	"datalens/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{BaseURL: srv.URL, Token: "secret"}, nil)
}

func TestOverviewSendsNormalizeAndParses(t *testing.T) {
	var seen *http.Request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = r
		w.Write([]byte(`{"dataset_id": 12, "title": "t", "schema": {"a": "int64"},
			"overview": {"categorical_stats": {"region": {"north": 10, "south": 5}}}, "normalized": true}`))
	})

	ov, err := client.Overview(context.Background(), "12", true)
	require.NoError(t, err)

	assert.Equal(t, "/datasets/details/12/", seen.URL.Path)
	assert.Equal(t, "true", seen.URL.Query().Get("normalize"))
	assert.Equal(t, "Bearer secret", seen.Header.Get("Authorization"))
	assert.NotEmpty(t, seen.Header.Get("X-Request-ID"))
	assert.True(t, ov.Normalized)
	assert.Equal(t, []string{"region"}, ov.CategoricalColumns())
}

func TestOverviewForbiddenIsAccessDenied(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.Overview(context.Background(), "9", false)
	require.Error(t, err)
	assert.Equal(t, errors.CodeAccessDenied, errors.GetCode(err))
}

func TestOverviewServerErrorIsFetchFailed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "boom"}`))
	})

	_, err := client.Overview(context.Background(), "9", false)
	require.Error(t, err)
	assert.Equal(t, errors.CodeFetchFailed, errors.GetCode(err))
	assert.Equal(t, MsgLoadFailed, errors.UserMessage(err))
}

func TestOverviewUnreachable(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1"}, nil)
	_, err := client.Overview(context.Background(), "1", false)
	require.Error(t, err)
	assert.Equal(t, MsgLoadFailed, errors.UserMessage(err))
}

func TestPerformDecodesResult(t *testing.T) {
	var query string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/datasets/perform/3/", r.URL.Path)
		query = r.URL.RawQuery
		w.Write([]byte(`{"correlation": 0.5, "p_value": 0.02}`))
	})

	req := analysis.Request{Operation: analysis.OpPearson, Column1: "a", Column2: "b"}
	res, err := client.Perform(context.Background(), "3", req)
	require.NoError(t, err)

	assert.Equal(t, analysis.Correlation{Op: analysis.OpPearson, Coefficient: 0.5, PValue: 0.02}, res)
	assert.Contains(t, query, "column1=a")
	assert.Contains(t, query, "operation=pearson")
}

func TestPerformSurfacesBackendErrorVerbatim(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "Column 'age' not found"}`))
	})

	_, err := client.Perform(context.Background(), "3", analysis.Request{Operation: analysis.OpMean, Column: "age"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeAnalysisFailed, errors.GetCode(err))
	assert.Equal(t, "Column 'age' not found", errors.UserMessage(err))
}

func TestPerformFallsBackToGenericMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>bad gateway</html>`))
	})

	_, err := client.Perform(context.Background(), "3", analysis.Request{Operation: analysis.OpMean, Column: "age"})
	require.Error(t, err)
	assert.Equal(t, MsgAnalysisFailed, errors.UserMessage(err))
}

func TestDownloadReturnsBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a,b", r.URL.Query().Get("columns"))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte{0x01, 0x02})
	})

	body, err := client.Download(context.Background(), "3", []string{"a", "b"}, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, body)
}
