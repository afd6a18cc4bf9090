package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"aria/internal/logging"
	"aria/internal/rtc"
)

const defaultClientTimeout = 15 * time.Second

// TokenClient fetches credentials from the server-environment token
// endpoint (POST, JSON in, JSON out).
type TokenClient struct {
	endpoint   string
	httpClient *http.Client
	logger     logging.Logger
}

// NewTokenClient builds a client for the token endpoint URL.
func NewTokenClient(endpoint string, logger logging.Logger) *TokenClient {
	return &TokenClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultClientTimeout},
		logger:     logging.OrNop(logger),
	}
}

// SetHTTPClient overrides the underlying HTTP client, primarily for tests.
func (c *TokenClient) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// Fetch implements TokenFetcher.
func (c *TokenClient) Fetch(ctx context.Context, req rtc.TokenRequest) (rtc.TokenResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return rtc.TokenResult{}, fmt.Errorf("encode token request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return rtc.TokenResult{}, fmt.Errorf("build token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return rtc.TokenResult{}, fmt.Errorf("call token endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return rtc.TokenResult{}, fmt.Errorf("token API error: %d - %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	var result rtc.TokenResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return rtc.TokenResult{}, fmt.Errorf("decode token response: %w", err)
	}
	if result.AccessToken == "" {
		return rtc.TokenResult{}, fmt.Errorf("token endpoint returned an empty credential")
	}
	c.logger.Debug("Fetched token for identity=%s", result.Identity)
	return result, nil
}
