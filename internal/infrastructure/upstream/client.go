package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crm/dashboard/internal/infrastructure/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// ErrUnreachable wraps transport failures talking to the backend origin
var ErrUnreachable = errors.New("backend unreachable")

// ForwardedHeaders are copied from the inbound request to the backend
var ForwardedHeaders = []string{
	"Content-Type",
	"Accept",
	"Authorization",
	"Accept-Language",
	"X-Request-ID",
}

// Observer records upstream call outcomes
type Observer interface {
	ObserveUpstream(method, path, outcome string, elapsed time.Duration)
}

// Request is a call to forward to the backend
type Request struct {
	Method   string
	Path     string // path on the backend, e.g. /api/orders
	Route    string // route template for metrics; defaults to Path
	RawQuery string // copied verbatim
	Header   http.Header
	Body     []byte
}

// Response is the backend's answer, relayed as-is
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ContentType returns the backend's Content-Type, or JSON when absent
func (r *Response) ContentType() string {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/json; charset=utf-8"
}

// Client forwards requests to a fixed backend origin
type Client struct {
	origin   *url.URL
	http     *http.Client
	observer Observer
	logger   *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default traced HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithObserver sets the metrics observer
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient creates a client for origin (scheme://host[:port])
func NewClient(origin string, timeout time.Duration, logger *zap.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(origin, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend origin %q: %w", origin, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend origin %q: scheme and host are required", origin)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		origin: u,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			// Redirects are relayed to the caller, never followed
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger.Named("upstream"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Origin returns the configured backend origin
func (c *Client) Origin() string {
	return c.origin.String()
}

// URL builds the backend URL for path and a raw query string
func (c *Client) URL(path, rawQuery string) string {
	u := *c.origin
	u.Path = c.origin.Path + path
	u.RawPath = ""
	u.RawQuery = rawQuery
	return u.String()
}

// Forward sends req to the backend and returns its response. Any status
// code is a valid response; only transport failures return an error.
func (c *Client) Forward(ctx context.Context, req Request) (*Response, error) {
	route := req.Route
	if route == "" {
		route = req.Path
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	target := c.URL(req.Path, req.RawQuery)
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream request: %w", err)
	}
	for _, name := range ForwardedHeaders {
		if v := req.Header.Get(name); v != "" {
			httpReq.Header.Set(name, v)
		}
	}

	log := c.logger
	if id := logger.RequestID(ctx); id != "" {
		log = log.With(zap.String("request_id", id))
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		elapsed := time.Since(start)
		c.observe(req.Method, route, "error", elapsed)
		log.Error("Upstream request failed",
			zap.String("method", req.Method),
			zap.String("url", target),
			zap.Duration("latency", elapsed),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		c.observe(req.Method, route, "error", elapsed)
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrUnreachable, err)
	}

	c.observe(req.Method, route, statusClass(resp.StatusCode), elapsed)
	log.Debug("Upstream request",
		zap.String("method", req.Method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", elapsed),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       respBody,
	}, nil
}

func (c *Client) observe(method, route, outcome string, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstream(method, route, outcome, elapsed)
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
