package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/crm/dashboard/internal/infrastructure/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Result describes a single job execution against the analytics service
type Result struct {
	StatusCode int
	Latency    time.Duration
}

// JobExecutor is the interface for executing scheduled jobs
type JobExecutor interface {
	Execute(ctx context.Context, job JobDefinition) (Result, error)
}

// HTTPExecutor runs jobs as HTTP calls against a base URL
type HTTPExecutor struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPExecutor creates an executor for baseURL. A nil client gets a
// traced client with the given timeout.
func NewHTTPExecutor(baseURL string, client *http.Client, timeout time.Duration, logger *zap.Logger) *HTTPExecutor {
	if client == nil {
		client = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPExecutor{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// URL returns the absolute URL a job calls
func (e *HTTPExecutor) URL(job JobDefinition) string {
	return e.baseURL + job.Path
}

// Execute performs the job's HTTP call. Non-2xx responses are errors.
func (e *HTTPExecutor) Execute(ctx context.Context, job JobDefinition) (Result, error) {
	var body io.Reader
	if job.Body != nil {
		body = bytes.NewReader(job.Body)
	}

	req, err := http.NewRequestWithContext(ctx, job.Method, e.URL(job), body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build request: %w", err)
	}
	if job.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "crm-dashboard-scheduler")

	start := time.Now()
	resp, err := e.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return Result{Latency: latency}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	_, _ = io.Copy(io.Discard, resp.Body)

	res := Result{StatusCode: resp.StatusCode, Latency: latency}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return res, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	logger.Extract(ctx, e.logger).Debug("Job response",
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", snippet),
	)
	return res, nil
}
