package devbackend

import (
	"html/template"
	"io"
	"net/http"
	"strings"

	"datalens/domain/core"
	"datalens/internal"
	"datalens/internal/export"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var browserIndex = template.Must(template.New("index").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>datalens exports</title></head>
<body>
<h1>Exports</h1>
{{if .}}<ul>
{{range .}}<li><a href="files/{{.}}">{{.}}</a></li>
{{end}}</ul>{{else}}<p>No exports yet.</p>{{end}}
</body>
</html>
`))

// exportBrowser serves the export directory read-only, so charts and HTML
// reports written by the workspace can be opened in a browser
type exportBrowser struct {
	store  *export.Store
	logger *internal.Logger
}

// ExportBrowser returns the handler for the export directory. It expects to
// be mounted with its prefix stripped.
func ExportBrowser(store *export.Store, logger *internal.Logger) http.Handler {
	b := &exportBrowser{store: store, logger: logger.With("Exports")}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/", b.handleIndex)
	r.Get("/files/*", b.handleFile)
	return r
}

// handleIndex lists stored keys; ?dataset= narrows to one dataset
func (b *exportBrowser) handleIndex(w http.ResponseWriter, r *http.Request) {
	prefix := ""
	if id := strings.TrimSpace(r.URL.Query().Get("dataset")); id != "" {
		prefix = id + "/"
	}
	keys, err := b.store.List(r.Context(), prefix)
	if err != nil {
		b.logger.Error("Failed to list exports: %v", err)
		http.Error(w, "Failed to list exports", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := browserIndex.Execute(w, keys); err != nil {
		b.logger.Warn("Failed to render export index: %v", err)
	}
}

func (b *exportBrowser) handleFile(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	rc, err := b.store.Get(r.Context(), key)
	if err != nil {
		if core.IsNotFoundError(err) {
			http.Error(w, "Export not found", http.StatusNotFound)
			return
		}
		b.logger.Debug("Rejected export key %q: %v", key, err)
		http.Error(w, "Invalid export key", http.StatusBadRequest)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", export.ContentType(key))
	if _, err := io.Copy(w, rc); err != nil {
		b.logger.Warn("Failed to send export %s: %v", key, err)
	}
}
