package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"aria/internal/logging"
)

// HostedConfig is the process-wide configuration for the managed token
// service.
type HostedConfig struct {
	// URL is the token-generation endpoint of the managed service.
	URL string
	// ServerURL is the media server URL for sessions in hosted projects.
	ServerURL string
	// ProjectKey authenticates this deployment against the service.
	ProjectKey string
}

// HostedClient implements HostedTokenService against an HTTP token service.
type HostedClient struct {
	cfg        HostedConfig
	httpClient *http.Client
	logger     logging.Logger
}

// NewHostedClient builds a hosted token service client, or nil when the
// service is not configured (hosted mode then reports a config error).
func NewHostedClient(cfg HostedConfig, logger logging.Logger) *HostedClient {
	if cfg.URL == "" {
		return nil
	}
	return &HostedClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultClientTimeout},
		logger:     logging.OrNop(logger),
	}
}

// SetHTTPClient overrides the underlying HTTP client, primarily for tests.
func (h *HostedClient) SetHTTPClient(client *http.Client) {
	if client != nil {
		h.httpClient = client
	}
}

// ServerURL implements HostedTokenService.
func (h *HostedClient) ServerURL() string {
	return h.cfg.ServerURL
}

// GenerateToken implements HostedTokenService.
func (h *HostedClient) GenerateToken(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{"projectKey": h.cfg.ProjectKey})
	if err != nil {
		return "", fmt.Errorf("encode hosted token request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build hosted token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.cfg.ProjectKey)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call hosted token service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("hosted token service error: %d - %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	var result struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode hosted token response: %w", err)
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("hosted token service returned an empty credential")
	}
	return result.AccessToken, nil
}
