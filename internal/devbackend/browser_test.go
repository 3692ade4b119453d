package devbackend

import (
	"context"
	"net/http"
	"testing"

	"datalens/internal/export"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportBrowser(t *testing.T) {
	store, err := export.NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	_, err = store.Put(ctx, "7/reports/mean.html", "<h1>mean</h1>")
	require.NoError(t, err)
	_, err = store.Put(ctx, "8/charts/region-bar.png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)

	ts := newTestServer(t, Options{Exports: store})

	status, body := get(t, ts.URL+"/exports/")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `href="files/7/reports/mean.html"`)
	assert.Contains(t, string(body), "8/charts/region-bar.png")

	status, body = get(t, ts.URL+"/exports/?dataset=7")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "7/reports/mean.html")
	assert.NotContains(t, string(body), "region-bar")

	resp, err := http.Get(ts.URL + "/exports/files/7/reports/mean.html")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))

	status, body = get(t, ts.URL+"/exports/files/7/reports/mean.html")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "<h1>mean</h1>", string(body))

	status, _ = get(t, ts.URL+"/exports/files/7/reports/missing.html")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestExportBrowserEmpty(t *testing.T) {
	store, err := export.NewStore(t.TempDir())
	require.NoError(t, err)
	ts := newTestServer(t, Options{Exports: store})

	status, body := get(t, ts.URL+"/exports/")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "No exports yet.")
}

func TestExportBrowserNotMountedWithoutStore(t *testing.T) {
	ts := newTestServer(t, Options{})
	status, _ := get(t, ts.URL+"/exports/")
	assert.Equal(t, http.StatusNotFound, status)
}
