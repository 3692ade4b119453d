package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"datalens/domain/analysis"
	"datalens/domain/core"
	"datalens/domain/dataset"
	"datalens/internal"
	"datalens/internal/errors"

	"github.com/tidwall/gjson"
)

// User-facing messages for backend failures
const (
	MsgLoadFailed     = "Could not load dataset"
	MsgAccessDenied   = "You do not have access to this dataset"
	MsgAnalysisFailed = "Analysis failed"
	MsgDownloadFailed = "Download failed"
)

// Client talks to the datasets API: details, perform and download
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *internal.Logger
}

// NewClient creates a client for cfg. No timeout is imposed unless
// cfg.Timeout is set; callers can bound calls with their context instead.
func NewClient(cfg ClientConfig, logger *internal.Logger) *Client {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With("APIClient"),
	}
}

// Overview fetches GET /datasets/details/{id}/?normalize=
func (c *Client) Overview(ctx context.Context, id core.DatasetID, normalize bool) (*dataset.Overview, error) {
	q := url.Values{}
	q.Set("normalize", strconv.FormatBool(normalize))

	status, body, err := c.get(ctx, c.endpoint("details", id, q))
	if err != nil {
		return nil, errors.FetchFailed(MsgLoadFailed, err)
	}
	switch {
	case status == http.StatusForbidden:
		return nil, errors.AccessDenied(MsgAccessDenied)
	case status < 200 || status > 299:
		return nil, errors.FetchFailed(MsgLoadFailed, fmt.Errorf("details returned status %d: %s", status, backendError(body)))
	}

	ov, err := dataset.ParseOverview(body)
	if err != nil {
		return nil, errors.FetchFailed(MsgLoadFailed, err)
	}
	if ov.DatasetID == "" {
		ov.DatasetID = id
	}
	return ov, nil
}

// Perform runs GET /datasets/perform/{id}/ with the request's query
func (c *Client) Perform(ctx context.Context, id core.DatasetID, req analysis.Request) (analysis.Result, error) {
	status, body, err := c.get(ctx, c.endpoint("perform", id, req.Query()))
	if err != nil {
		return nil, errors.AnalysisFailed(MsgAnalysisFailed, err)
	}
	if status < 200 || status > 299 {
		msg := backendError(body)
		if msg == "" {
			msg = MsgAnalysisFailed
		}
		return nil, errors.AnalysisFailed(msg, fmt.Errorf("perform returned status %d", status))
	}

	res, err := analysis.DecodeResult(req.Operation, body)
	if err != nil {
		return nil, errors.AnalysisFailed(MsgAnalysisFailed, err)
	}
	return res, nil
}

// Download fetches GET /datasets/download/{id}/?columns=&normalize=
func (c *Client) Download(ctx context.Context, id core.DatasetID, columns []string, normalize bool) ([]byte, error) {
	q := url.Values{}
	q.Set("columns", strings.Join(columns, ","))
	q.Set("normalize", strconv.FormatBool(normalize))

	status, body, err := c.get(ctx, c.endpoint("download", id, q))
	if err != nil {
		return nil, errors.FetchFailed(MsgDownloadFailed, err)
	}
	switch {
	case status == http.StatusForbidden:
		return nil, errors.AccessDenied(MsgAccessDenied)
	case status < 200 || status > 299:
		msg := backendError(body)
		if msg == "" {
			msg = MsgDownloadFailed
		}
		return nil, errors.FetchFailed(msg, fmt.Errorf("download returned status %d", status))
	}
	return body, nil
}

func (c *Client) endpoint(action string, id core.DatasetID, q url.Values) string {
	u := fmt.Sprintf("%s/datasets/%s/%s/", c.config.BaseURL, action, url.PathEscape(id.String()))
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// get issues one request and returns status and body
func (c *Client) get(ctx context.Context, u string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}

	requestID := core.NewID().String()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("GET %s failed (request %s): %v", u, requestID, err)
		return 0, nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	c.logger.Debug("GET %s -> %d in %s (request %s)", u, resp.StatusCode, time.Since(start).Round(time.Millisecond), requestID)
	return resp.StatusCode, body, nil
}

// backendError extracts the {"error": "..."} message of a failed response
func backendError(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	return strings.TrimSpace(gjson.GetBytes(body, "error").String())
}
