// Package connection establishes console sessions against the media backend
// across the three credential-acquisition modes.
package connection

import (
	"context"
	"fmt"
	"sync"

	"aria/internal/apikeys"
	"aria/internal/attrs"
	"aria/internal/catalog"
	"aria/internal/logging"
	"aria/internal/observability"
	"aria/internal/rtc"
)

// Mode selects how the session credential is acquired.
type Mode string

const (
	// ModeHosted requests a credential from the managed token service.
	ModeHosted Mode = "hosted"
	// ModeManual uses a URL and token already present in settings.
	ModeManual Mode = "manual"
	// ModeEnv calls the configured token endpoint with the session settings.
	ModeEnv Mode = "env"
)

// Details is the atomic connection-state update consumed by the
// session-establishment layer.
type Details struct {
	URL           string
	Token         string
	Identity      string
	Mode          Mode
	ShouldConnect bool
}

// ToastKind classifies user notifications.
type ToastKind string

const (
	ToastError   ToastKind = "error"
	ToastSuccess ToastKind = "success"
)

// Toast is a user-visible notification.
type Toast struct {
	Kind    ToastKind
	Message string
}

// Notifier receives user-visible notifications from the manager.
type Notifier interface {
	Push(Toast)
}

type nopNotifier struct{}

func (nopNotifier) Push(Toast) {}

// TokenFetcher calls the server-environment token endpoint.
type TokenFetcher interface {
	Fetch(ctx context.Context, req rtc.TokenRequest) (rtc.TokenResult, error)
}

// HostedTokenService generates credentials from a managed token service
// using process-wide hosted configuration. GenerateToken may fail; the
// manager converts failures into notifications.
type HostedTokenService interface {
	GenerateToken(ctx context.Context) (string, error)
	ServerURL() string
}

// Settings are the console-editable session fields consulted at connect
// time. Empty fields are omitted from token requests.
type Settings struct {
	RoomName        string
	ParticipantID   string
	ParticipantName string
	AgentName       string
	Metadata        string
	Prompt          string
	FirstMessage    string
	ManualURL       string
	ManualToken     string
}

// Config carries the process-wide connection configuration.
type Config struct {
	// ServerURL is the client-visible media URL for ModeEnv. Absence is a
	// fatal configuration error for that mode only.
	ServerURL string
}

// Deps are the manager's collaborators.
type Deps struct {
	Hosted     HostedTokenService
	Tokens     TokenFetcher
	Attributes *attrs.Store
	Keys       *apikeys.Store
	Notifier   Notifier
	Metrics    *observability.MetricsCollector
	Logger     logging.Logger
}

// Manager owns the connection details for one session.
type Manager struct {
	cfg     Config
	hosted  HostedTokenService
	tokens  TokenFetcher
	attrs   *attrs.Store
	keys    *apikeys.Store
	notify  Notifier
	metrics *observability.MetricsCollector
	logger  logging.Logger

	mu       sync.Mutex
	settings Settings
	details  Details
}

// NewManager constructs a connection manager.
func NewManager(cfg Config, deps Deps) *Manager {
	notify := deps.Notifier
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Manager{
		cfg:     cfg,
		hosted:  deps.Hosted,
		tokens:  deps.Tokens,
		attrs:   deps.Attributes,
		keys:    deps.Keys,
		notify:  notify,
		metrics: deps.Metrics,
		logger:  logging.OrNop(deps.Logger),
	}
}

// SetSettings replaces the session settings.
func (m *Manager) SetSettings(s Settings) {
	m.mu.Lock()
	m.settings = s
	m.mu.Unlock()
}

// Settings returns a copy of the current session settings.
func (m *Manager) Settings() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// Details returns the current connection details.
func (m *Manager) Details() Details {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.details
}

// Connect acquires a credential for the given mode and publishes the
// resulting connection details as one atomic update.
//
// Remote-call failures are recovered here: the user is notified and the
// prior details are left untouched, with a nil return. Configuration errors
// (unknown mode, missing server URL, hosted service not configured) are
// returned to the caller.
func (m *Manager) Connect(ctx context.Context, mode Mode) error {
	m.metrics.RecordConnectAttempt(ctx, string(mode))
	switch mode {
	case ModeHosted:
		return m.connectHosted(ctx)
	case ModeManual:
		return m.connectManual()
	case ModeEnv:
		return m.connectEnv(ctx)
	default:
		return fmt.Errorf("unknown connection mode %q", mode)
	}
}

func (m *Manager) connectHosted(ctx context.Context) error {
	if m.hosted == nil {
		return fmt.Errorf("hosted token service not configured")
	}
	token, err := m.hosted.GenerateToken(ctx)
	if err != nil {
		m.logger.Warn("Hosted token generation failed: %v", err)
		m.notify.Push(Toast{
			Kind:    ToastError,
			Message: "Failed to generate token, you may need to increase your role in this hosted project.",
		})
		return nil
	}
	m.setDetails(Details{
		URL:           m.hosted.ServerURL(),
		Token:         token,
		Mode:          ModeHosted,
		ShouldConnect: true,
	})
	return nil
}

func (m *Manager) connectManual() error {
	m.mu.Lock()
	settings := m.settings
	m.mu.Unlock()
	m.setDetails(Details{
		URL:           settings.ManualURL,
		Token:         settings.ManualToken,
		Mode:          ModeManual,
		ShouldConnect: true,
	})
	return nil
}

func (m *Manager) connectEnv(ctx context.Context) error {
	if m.cfg.ServerURL == "" {
		return fmt.Errorf("server URL is not configured")
	}
	if m.tokens == nil {
		return fmt.Errorf("token endpoint client not configured")
	}

	req := m.buildTokenRequest()
	result, err := m.tokens.Fetch(ctx, req)
	if err != nil {
		m.logger.Warn("Token generation failed: %v", err)
		m.notify.Push(Toast{
			Kind:    ToastError,
			Message: fmt.Sprintf("Failed to generate token: %v", err),
		})
		return nil
	}
	m.setDetails(Details{
		URL:           m.cfg.ServerURL,
		Token:         result.AccessToken,
		Identity:      result.Identity,
		Mode:          ModeEnv,
		ShouldConnect: true,
	})
	return nil
}

// buildTokenRequest assembles the token request from settings, the attribute
// store, and the key store. Each field is included only when non-empty.
func (m *Manager) buildTokenRequest() rtc.TokenRequest {
	m.mu.Lock()
	settings := m.settings
	m.mu.Unlock()

	req := rtc.TokenRequest{
		RoomName:        settings.RoomName,
		ParticipantID:   settings.ParticipantID,
		ParticipantName: settings.ParticipantName,
		AgentName:       settings.AgentName,
		Metadata:        settings.Metadata,
		Prompt:          settings.Prompt,
		FirstMessage:    settings.FirstMessage,
	}
	if m.attrs != nil {
		if mapping := m.attrs.Mapping(); len(mapping) > 0 {
			req.Attributes = mapping
		}
		if m.keys != nil {
			req.STTAPIKey = m.keys.Resolve(catalog.RoleSTT, m.attrs.Provider(catalog.RoleSTT))
			req.TTSAPIKey = m.keys.Resolve(catalog.RoleTTS, m.attrs.Provider(catalog.RoleTTS))
		}
	}
	return req
}

func (m *Manager) setDetails(d Details) {
	m.mu.Lock()
	m.details = d
	m.mu.Unlock()
	m.logger.Info("Connection details updated: mode=%s url=%s", d.Mode, d.URL)
}

// Disconnect marks the session as no longer wanting a connection. URL and
// token are retained; repeated calls are no-ops.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.details.ShouldConnect = false
	m.mu.Unlock()
}
