package devbackend

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"datalens/domain/analysis"
	"datalens/domain/core"
	"datalens/internal"
	"datalens/internal/errors"
	"datalens/internal/export"

	"github.com/gin-gonic/gin"
)

// Options configures a Server
type Options struct {
	// Restricted datasets answer 403 on every endpoint
	Restricted []string
	// Token, when set, must be presented as a Bearer token
	Token string
	// Key encrypts downloads; a random key is generated when nil
	Key []byte
	// Exports, when set, is browsable under /exports/
	Exports *export.Store
	Logger  *internal.Logger
}

// Server is the development backend
type Server struct {
	router     *gin.Engine
	tables     map[core.DatasetID]*Table
	restricted map[core.DatasetID]bool
	token      string
	key        []byte
	aead       cipher.AEAD
	exports    *export.Store
	logger     *internal.Logger
}

// New builds the router over tables
func New(tables map[core.DatasetID]*Table, opts Options) (*Server, error) {
	key := opts.Key
	if key == nil {
		key = make([]byte, KeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, errors.Wrap(err, "failed to generate download key")
		}
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:     gin.New(),
		tables:     tables,
		restricted: make(map[core.DatasetID]bool, len(opts.Restricted)),
		token:      opts.Token,
		key:        key,
		aead:       aead,
		exports:    opts.Exports,
		logger:     opts.Logger.With("DevBackend"),
	}
	for _, id := range opts.Restricted {
		s.restricted[core.DatasetID(id)] = true
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery(), s.requestLogger())
	if s.token != "" {
		s.router.Use(s.requireToken())
	}

	datasets := s.router.Group("/datasets")
	datasets.GET("/details/:id/", s.handleDetails)
	datasets.GET("/perform/:id/", s.handlePerform)
	datasets.GET("/download/:id/", s.handleDownload)

	if s.exports != nil {
		browser := http.StripPrefix("/exports", ExportBrowser(s.exports, s.logger))
		s.router.GET("/exports/*path", gin.WrapH(browser))
	}
}

// Handler exposes the router for httptest and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Key returns the download encryption key
func (s *Server) Key() []byte {
	return s.key
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening on %s (%d datasets)", addr, len(s.tables))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("%s %s -> %d in %s (request %s)",
			c.Request.Method, c.Request.URL.RequestURI(), c.Writer.Status(),
			time.Since(start).Round(time.Microsecond), c.GetHeader("X-Request-ID"))
	}
}

func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer "+s.token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// lookup resolves the :id parameter, writing 403 or 404 when it cannot
func (s *Server) lookup(c *gin.Context) (*Table, bool) {
	id, err := core.ParseDatasetID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	if s.restricted[id] {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this dataset"})
		return nil, false
	}
	t, ok := s.tables[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dataset not found"})
		return nil, false
	}
	return t, true
}

func normalizeParam(c *gin.Context) (bool, bool) {
	raw := c.Query("normalize")
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "normalize must be true or false"})
		return false, false
	}
	return v, true
}

func (s *Server) handleDetails(c *gin.Context) {
	t, ok := s.lookup(c)
	if !ok {
		return
	}
	normalize, ok := normalizeParam(c)
	if !ok {
		return
	}
	body, err := BuildOverview(t, normalize).MarshalJSON()
	if err != nil {
		s.logger.Error("Failed to encode overview of %s: %v", t.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode dataset"})
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

func (s *Server) handlePerform(c *gin.Context) {
	t, ok := s.lookup(c)
	if !ok {
		return
	}
	req, err := analysis.ParseRequest(c.Request.URL.Query())
	if err != nil {
		err = errors.WithCode(errors.CodeInvalidInput, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": errors.UserMessage(err)})
		return
	}

	res, err := Perform(t, req)
	if err != nil {
		if errors.HasCode(err, errors.CodeInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errors.UserMessage(err)})
			return
		}
		s.logger.Error("Perform %s on %s failed: %v", req.Operation, t.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis failed"})
		return
	}
	body, err := analysis.EncodeResult(res)
	if err != nil {
		s.logger.Warn("Perform %s on %s produced an unencodable result: %v", req.Operation, t.ID, err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "The result is not a finite number for this data"})
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

func (s *Server) handleDownload(c *gin.Context) {
	t, ok := s.lookup(c)
	if !ok {
		return
	}
	normalize, ok := normalizeParam(c)
	if !ok {
		return
	}
	if normalize {
		t = Normalize(t)
	}

	var columns []string
	for _, col := range strings.Split(c.Query("columns"), ",") {
		if col = strings.TrimSpace(col); col != "" {
			columns = append(columns, col)
		}
	}
	plain, err := exportCSV(t, columns)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errors.UserMessage(err)})
		return
	}
	sealed, err := seal(s.aead, plain)
	if err != nil {
		s.logger.Error("Failed to encrypt download of %s: %v", t.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Download failed"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", string(t.ID)+".csv.enc"))
	c.Data(http.StatusOK, "application/octet-stream", sealed)
}
