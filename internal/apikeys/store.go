// Package apikeys stores per-provider secrets for the three model roles.
// Keys live in plain memory for the session; there is no persistence and no
// masking beyond whatever the view layer applies.
package apikeys

import (
	"sync"

	"aria/internal/catalog"
)

// Bundle is a snapshot of every stored key: one optional default per role
// plus model-specific overrides. Both may coexist.
type Bundle struct {
	LLMAPIKey string            `json:"llmApiKey,omitempty"`
	STTAPIKey string            `json:"sttApiKey,omitempty"`
	TTSAPIKey string            `json:"ttsApiKey,omitempty"`
	LLMKeys   map[string]string `json:"llmKeys,omitempty"`
	STTKeys   map[string]string `json:"sttKeys,omitempty"`
	TTSKeys   map[string]string `json:"ttsKeys,omitempty"`
}

// Store holds role-level default keys and per-model overrides.
type Store struct {
	mu       sync.Mutex
	defaults map[catalog.Role]string
	models   map[catalog.Role]map[string]string
}

// NewStore returns an empty key store.
func NewStore() *Store {
	return &Store{
		defaults: make(map[catalog.Role]string),
		models:   make(map[catalog.Role]map[string]string),
	}
}

// Set writes a key. When model is non-empty the per-model slot is written,
// otherwise the role-level default. An empty key clears the slot.
func (s *Store) Set(role catalog.Role, model, key string) {
	if !role.Valid() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if model == "" {
		if key == "" {
			delete(s.defaults, role)
			return
		}
		s.defaults[role] = key
		return
	}
	slots := s.models[role]
	if slots == nil {
		slots = make(map[string]string)
		s.models[role] = slots
	}
	if key == "" {
		delete(slots, model)
		return
	}
	slots[model] = key
}

// Resolve returns the effective key for a role: the per-model key when the
// model is known and has an entry, else the role default, else "".
func (s *Store) Resolve(role catalog.Role, model string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if model != "" {
		if key, ok := s.models[role][model]; ok {
			return key
		}
	}
	return s.defaults[role]
}

// Bundle returns a deep-copied snapshot of all stored keys.
func (s *Store) Bundle() Bundle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Bundle{
		LLMAPIKey: s.defaults[catalog.RoleLLM],
		STTAPIKey: s.defaults[catalog.RoleSTT],
		TTSAPIKey: s.defaults[catalog.RoleTTS],
		LLMKeys:   copyKeys(s.models[catalog.RoleLLM]),
		STTKeys:   copyKeys(s.models[catalog.RoleSTT]),
		TTSKeys:   copyKeys(s.models[catalog.RoleTTS]),
	}
}

// Replace overwrites the store contents from a bundle snapshot.
func (s *Store) Replace(b Bundle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults = make(map[catalog.Role]string)
	if b.LLMAPIKey != "" {
		s.defaults[catalog.RoleLLM] = b.LLMAPIKey
	}
	if b.STTAPIKey != "" {
		s.defaults[catalog.RoleSTT] = b.STTAPIKey
	}
	if b.TTSAPIKey != "" {
		s.defaults[catalog.RoleTTS] = b.TTSAPIKey
	}
	s.models = map[catalog.Role]map[string]string{
		catalog.RoleLLM: copyKeys(b.LLMKeys),
		catalog.RoleSTT: copyKeys(b.STTKeys),
		catalog.RoleTTS: copyKeys(b.TTSKeys),
	}
}

func copyKeys(in map[string]string) map[string]string {
	if len(in) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
