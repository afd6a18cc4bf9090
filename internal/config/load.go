package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognized by Load. File values override
// defaults; environment values override both.
const (
	EnvAPIKey                = "ARIA_API_KEY"
	EnvAPISecret             = "ARIA_API_SECRET"
	EnvServerURL             = "ARIA_SERVER_URL"
	EnvHostedURL             = "ARIA_HOSTED_URL"
	EnvHostedServerURL       = "ARIA_HOSTED_SERVER_URL"
	EnvHostedProjectKey      = "ARIA_HOSTED_PROJECT_KEY"
	EnvPort                  = "ARIA_PORT"
	EnvSyncDebounceMS        = "ARIA_SYNC_DEBOUNCE_MS"
	EnvAgentDispatchMetadata = "ARIA_AGENT_DISPATCH_METADATA"
	EnvCatalogPath           = "ARIA_CATALOG_PATH"
	EnvMetricsEnabled        = "ARIA_METRICS_ENABLED"
	EnvAllowedOrigins        = "ARIA_ALLOWED_ORIGINS"
	EnvVerbose               = "ARIA_VERBOSE"
)

// Default returns the built-in configuration.
func Default() RuntimeConfig {
	return RuntimeConfig{
		Port:                  DefaultPort,
		TokenTTL:              DefaultTokenTTL,
		SyncDebounce:          DefaultSyncDebounce,
		AgentDispatchMetadata: DefaultAgentDispatchMetadata,
		MetricsEnabled:        true,
		AllowedOrigins:        []string{"*"},
	}
}

// Load resolves the runtime configuration from defaults, an optional YAML
// file, and the environment, tracking where each value came from.
func Load(path string) (RuntimeConfig, Metadata, error) {
	cfg := Default()
	meta := Metadata{loadedAt: time.Now()}
	for _, field := range fieldNames {
		meta.record(field, SourceDefault)
	}

	if path != "" {
		if err := applyFile(&cfg, &meta, path); err != nil {
			return RuntimeConfig{}, Metadata{}, err
		}
	}
	applyEnvironment(&cfg, &meta)

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return RuntimeConfig{}, Metadata{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.SyncDebounce <= 0 {
		cfg.SyncDebounce = DefaultSyncDebounce
	}
	return cfg, meta, nil
}

var fieldNames = []string{
	"api_key", "api_secret", "server_url", "hosted_url", "hosted_server_url",
	"hosted_project_key", "port", "token_ttl", "sync_debounce",
	"agent_dispatch_metadata", "catalog_path", "metrics_enabled",
	"allowed_origins", "verbose",
}

// fileConfig uses pointers so absent keys leave defaults untouched.
type fileConfig struct {
	APIKey                *string        `yaml:"api_key"`
	APISecret             *string        `yaml:"api_secret"`
	ServerURL             *string        `yaml:"server_url"`
	HostedURL             *string        `yaml:"hosted_url"`
	HostedServerURL       *string        `yaml:"hosted_server_url"`
	HostedProjectKey      *string        `yaml:"hosted_project_key"`
	Port                  *int           `yaml:"port"`
	TokenTTL              *time.Duration `yaml:"token_ttl"`
	SyncDebounceMS        *int           `yaml:"sync_debounce_ms"`
	AgentDispatchMetadata *string        `yaml:"agent_dispatch_metadata"`
	CatalogPath           *string        `yaml:"catalog_path"`
	MetricsEnabled        *bool          `yaml:"metrics_enabled"`
	AllowedOrigins        []string       `yaml:"allowed_origins"`
	Verbose               *bool          `yaml:"verbose"`
}

func applyFile(cfg *RuntimeConfig, meta *Metadata, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.APIKey, fc.APIKey, meta, "api_key")
	setString(&cfg.APISecret, fc.APISecret, meta, "api_secret")
	setString(&cfg.ServerURL, fc.ServerURL, meta, "server_url")
	setString(&cfg.HostedURL, fc.HostedURL, meta, "hosted_url")
	setString(&cfg.HostedServerURL, fc.HostedServerURL, meta, "hosted_server_url")
	setString(&cfg.HostedProjectKey, fc.HostedProjectKey, meta, "hosted_project_key")
	setString(&cfg.AgentDispatchMetadata, fc.AgentDispatchMetadata, meta, "agent_dispatch_metadata")
	setString(&cfg.CatalogPath, fc.CatalogPath, meta, "catalog_path")
	if fc.Port != nil {
		cfg.Port = *fc.Port
		meta.record("port", SourceFile)
	}
	if fc.TokenTTL != nil {
		cfg.TokenTTL = *fc.TokenTTL
		meta.record("token_ttl", SourceFile)
	}
	if fc.SyncDebounceMS != nil {
		cfg.SyncDebounce = time.Duration(*fc.SyncDebounceMS) * time.Millisecond
		meta.record("sync_debounce", SourceFile)
	}
	if fc.MetricsEnabled != nil {
		cfg.MetricsEnabled = *fc.MetricsEnabled
		meta.record("metrics_enabled", SourceFile)
	}
	if fc.AllowedOrigins != nil {
		cfg.AllowedOrigins = fc.AllowedOrigins
		meta.record("allowed_origins", SourceFile)
	}
	if fc.Verbose != nil {
		cfg.Verbose = *fc.Verbose
		meta.record("verbose", SourceFile)
	}
	return nil
}

func setString(dst *string, src *string, meta *Metadata, field string) {
	if src == nil {
		return
	}
	*dst = strings.TrimSpace(*src)
	meta.record(field, SourceFile)
}

func applyEnvironment(cfg *RuntimeConfig, meta *Metadata) {
	envString(&cfg.APIKey, EnvAPIKey, meta, "api_key")
	envString(&cfg.APISecret, EnvAPISecret, meta, "api_secret")
	envString(&cfg.ServerURL, EnvServerURL, meta, "server_url")
	envString(&cfg.HostedURL, EnvHostedURL, meta, "hosted_url")
	envString(&cfg.HostedServerURL, EnvHostedServerURL, meta, "hosted_server_url")
	envString(&cfg.HostedProjectKey, EnvHostedProjectKey, meta, "hosted_project_key")
	envString(&cfg.AgentDispatchMetadata, EnvAgentDispatchMetadata, meta, "agent_dispatch_metadata")
	envString(&cfg.CatalogPath, EnvCatalogPath, meta, "catalog_path")

	if v, ok := lookupEnv(EnvPort); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
			meta.record("port", SourceEnv)
		}
	}
	if v, ok := lookupEnv(EnvSyncDebounceMS); ok {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.SyncDebounce = time.Duration(ms) * time.Millisecond
			meta.record("sync_debounce", SourceEnv)
		}
	}
	if v, ok := lookupEnv(EnvMetricsEnabled); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MetricsEnabled = b
			meta.record("metrics_enabled", SourceEnv)
		}
	}
	if v, ok := lookupEnv(EnvAllowedOrigins); ok {
		parts := strings.Split(v, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				origins = append(origins, p)
			}
		}
		if len(origins) > 0 {
			cfg.AllowedOrigins = origins
			meta.record("allowed_origins", SourceEnv)
		}
	}
	if v, ok := lookupEnv(EnvVerbose); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Verbose = b
			meta.record("verbose", SourceEnv)
		}
	}
}

func envString(dst *string, key string, meta *Metadata, field string) {
	if v, ok := lookupEnv(key); ok {
		*dst = v
		meta.record(field, SourceEnv)
	}
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}
