// Package telegram is a minimal Telegram Bot API client for webhook registration.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrMissingToken is returned when no bot token is configured
var ErrMissingToken = errors.New("telegram: bot token is required")

// APIError is returned when the Bot API answers with ok=false
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %d - %s", e.Code, e.Description)
}

// WebhookInfo mirrors the Bot API WebhookInfo object
type WebhookInfo struct {
	URL                  string   `json:"url"`
	HasCustomCertificate bool     `json:"has_custom_certificate"`
	PendingUpdateCount   int      `json:"pending_update_count"`
	IPAddress            string   `json:"ip_address,omitempty"`
	LastErrorDate        int64    `json:"last_error_date,omitempty"`
	LastErrorMessage     string   `json:"last_error_message,omitempty"`
	MaxConnections       int      `json:"max_connections,omitempty"`
	AllowedUpdates       []string `json:"allowed_updates,omitempty"`
}

// LastError returns the time of the last delivery error, if any
func (w *WebhookInfo) LastError() *time.Time {
	if w.LastErrorDate == 0 {
		return nil
	}
	t := time.Unix(w.LastErrorDate, 0).UTC()
	return &t
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
}

// SetWebhookParams are the setWebhook arguments this client supports
type SetWebhookParams struct {
	URL                string   `json:"url"`
	SecretToken        string   `json:"secret_token,omitempty"`
	DropPendingUpdates bool     `json:"drop_pending_updates,omitempty"`
	AllowedUpdates     []string `json:"allowed_updates,omitempty"`
}

// Client calls https://api.telegram.org/bot<token>/<method>
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Bot API client
func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

// SetWebhook registers url as the bot's webhook
func (c *Client) SetWebhook(ctx context.Context, params SetWebhookParams) error {
	if params.URL == "" {
		return fmt.Errorf("telegram: webhook url is required")
	}
	if !strings.HasPrefix(params.URL, "https://") {
		return fmt.Errorf("telegram: webhook url must use https, got %q", params.URL)
	}

	var ok bool
	if err := c.call(ctx, "setWebhook", params, &ok); err != nil {
		return err
	}
	c.logger.Info("Telegram webhook set", zap.String("url", params.URL))
	return nil
}

// DeleteWebhook removes the bot's webhook
func (c *Client) DeleteWebhook(ctx context.Context, dropPendingUpdates bool) error {
	params := map[string]any{"drop_pending_updates": dropPendingUpdates}
	var ok bool
	if err := c.call(ctx, "deleteWebhook", params, &ok); err != nil {
		return err
	}
	c.logger.Info("Telegram webhook deleted", zap.Bool("drop_pending_updates", dropPendingUpdates))
	return nil
}

// GetWebhookInfo returns the current webhook status
func (c *Client) GetWebhookInfo(ctx context.Context) (*WebhookInfo, error) {
	var info WebhookInfo
	if err := c.call(ctx, "getWebhookInfo", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	var body io.Reader
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("telegram: failed to marshal params: %w", err)
		}
		body = bytes.NewReader(b)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// the token is part of the URL; keep it out of the error
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("telegram: %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telegram: failed to read response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return fmt.Errorf("telegram: failed to parse response (HTTP %d): %w", resp.StatusCode, err)
	}
	if !apiResp.OK {
		code := apiResp.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		return &APIError{Code: code, Description: apiResp.Description}
	}

	if result != nil && len(apiResp.Result) > 0 {
		if err := json.Unmarshal(apiResp.Result, result); err != nil {
			return fmt.Errorf("telegram: failed to parse %s result: %w", method, err)
		}
	}
	return nil
}
