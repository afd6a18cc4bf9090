// Package catalog holds the immutable provider catalogs for the three model
// roles. The catalogs are loaded once at startup; callers get copies.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Role identifies which pipeline slot a provider or key belongs to.
type Role string

const (
	RoleLLM Role = "llm"
	RoleSTT Role = "stt"
	RoleTTS Role = "tts"
)

// Roles lists all known roles in a stable order.
func Roles() []Role {
	return []Role{RoleLLM, RoleSTT, RoleTTS}
}

// Valid reports whether the role is one of the three known slots.
func (r Role) Valid() bool {
	switch r {
	case RoleLLM, RoleSTT, RoleTTS:
		return true
	}
	return false
}

// Provider is one selectable entry in a role catalog.
type Provider struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// ModelDefault is the server-side fallback provider/model pair for a role,
// applied when a session carries no explicit selection.
type ModelDefault struct {
	Provider string `json:"provider" yaml:"provider"`
	ModelID  string `json:"model_id" yaml:"model_id"`
}

// Catalog bundles the provider lists and per-role defaults.
type Catalog struct {
	LLM      []Provider            `json:"llm" yaml:"llm"`
	STT      []Provider            `json:"stt" yaml:"stt"`
	TTS      []Provider            `json:"tts" yaml:"tts"`
	Defaults map[Role]ModelDefault `json:"defaults" yaml:"defaults"`
}

// Default returns the built-in catalogs.
func Default() Catalog {
	return Catalog{
		LLM: []Provider{
			{Label: "OpenAI", Value: "openai"},
			{Label: "Groq", Value: "groq"},
		},
		STT: []Provider{
			{Label: "AssemblyAI", Value: "assemblyai"},
			{Label: "Cartesia", Value: "cartesia"},
			{Label: "Deepgram", Value: "deepgram"},
			{Label: "Fal", Value: "fal"},
			{Label: "Groq", Value: "groq"},
			{Label: "OpenAI", Value: "openai"},
			{Label: "Sarvam", Value: "sarvam"},
		},
		TTS: []Provider{
			{Label: "Cartesia", Value: "cartesia"},
			{Label: "Deepgram", Value: "deepgram"},
			{Label: "ElevenLabs", Value: "elevenlabs"},
			{Label: "Groq", Value: "groq"},
			{Label: "OpenAI", Value: "openai"},
			{Label: "PlayHT", Value: "playht"},
			{Label: "Sarvam", Value: "sarvam"},
		},
		Defaults: map[Role]ModelDefault{
			RoleLLM: {Provider: "openai", ModelID: "gpt-4o-mini"},
			RoleSTT: {Provider: "openai", ModelID: "whisper-1"},
			RoleTTS: {Provider: "openai", ModelID: "tts-1"},
		},
	}
}

// Load returns the built-in catalogs, overridden by the YAML file at path
// when path is non-empty. Override sections replace the corresponding
// built-in section wholesale; absent sections keep the defaults.
func Load(path string) (Catalog, error) {
	cat := Default()
	if path == "" {
		return cat, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog file: %w", err)
	}
	var override Catalog
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog file %s: %w", path, err)
	}
	if len(override.LLM) > 0 {
		cat.LLM = override.LLM
	}
	if len(override.STT) > 0 {
		cat.STT = override.STT
	}
	if len(override.TTS) > 0 {
		cat.TTS = override.TTS
	}
	for role, def := range override.Defaults {
		if role.Valid() {
			cat.Defaults[role] = def
		}
	}
	return cat, nil
}

// Providers returns the provider list for a role.
func (c Catalog) Providers(role Role) []Provider {
	switch role {
	case RoleLLM:
		return c.LLM
	case RoleSTT:
		return c.STT
	case RoleTTS:
		return c.TTS
	}
	return nil
}

// Label resolves the display label for a provider value within a role,
// falling back to the raw value when unknown.
func (c Catalog) Label(role Role, value string) string {
	for _, p := range c.Providers(role) {
		if p.Value == value {
			return p.Label
		}
	}
	return value
}

// Contains reports whether value is a known provider for the role.
func (c Catalog) Contains(role Role, value string) bool {
	for _, p := range c.Providers(role) {
		if p.Value == value {
			return true
		}
	}
	return false
}
