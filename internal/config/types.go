package config

import "time"

// ValueSource describes where a configuration value originated from.
type ValueSource string

const (
	SourceDefault ValueSource = "default"
	SourceFile    ValueSource = "file"
	SourceEnv     ValueSource = "environment"
)

const (
	DefaultPort              = 8080
	DefaultTokenTTL          = 6 * time.Hour
	DefaultSyncDebounce      = 2000 * time.Millisecond
	DefaultSyncedSignalTTL   = 1000 * time.Millisecond
	DefaultHTTPClientTimeout = 15 * time.Second

	// DefaultAgentDispatchMetadata mirrors the payload the original dispatch
	// pipeline expects; override via file or ARIA_AGENT_DISPATCH_METADATA.
	DefaultAgentDispatchMetadata = `{"user_id": "12345"}`
)

// RuntimeConfig captures settings shared across the server and console core.
type RuntimeConfig struct {
	// Token issuer credentials. Both must be present for /api/token to work.
	APIKey    string `json:"api_key" yaml:"api_key"`
	APISecret string `json:"api_secret" yaml:"api_secret"`

	// ServerURL is the client-visible media server URL used by the
	// server-environment connection mode.
	ServerURL string `json:"server_url" yaml:"server_url"`

	// Hosted token service settings for the hosted connection mode.
	HostedURL        string `json:"hosted_url" yaml:"hosted_url"`
	HostedServerURL  string `json:"hosted_server_url" yaml:"hosted_server_url"`
	HostedProjectKey string `json:"hosted_project_key" yaml:"hosted_project_key"`

	Port                  int           `json:"port" yaml:"port"`
	TokenTTL              time.Duration `json:"token_ttl" yaml:"token_ttl"`
	SyncDebounce          time.Duration `json:"sync_debounce" yaml:"sync_debounce"`
	AgentDispatchMetadata string        `json:"agent_dispatch_metadata" yaml:"agent_dispatch_metadata"`
	CatalogPath           string        `json:"catalog_path" yaml:"catalog_path"`
	MetricsEnabled        bool          `json:"metrics_enabled" yaml:"metrics_enabled"`
	AllowedOrigins        []string      `json:"allowed_origins" yaml:"allowed_origins"`
	Verbose               bool          `json:"verbose" yaml:"verbose"`
}

// IssuerConfigured reports whether both issuer secrets are present.
func (c RuntimeConfig) IssuerConfigured() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// Metadata records where each top-level configuration value came from.
type Metadata struct {
	sources  map[string]ValueSource
	loadedAt time.Time
}

// Sources returns a copy of the per-field source map.
func (m Metadata) Sources() map[string]ValueSource {
	out := make(map[string]ValueSource, len(m.sources))
	for k, v := range m.sources {
		out[k] = v
	}
	return out
}

// LoadedAt reports when the configuration was resolved.
func (m Metadata) LoadedAt() time.Time {
	return m.loadedAt
}

func (m *Metadata) record(field string, source ValueSource) {
	if m.sources == nil {
		m.sources = make(map[string]ValueSource)
	}
	m.sources[field] = source
}
