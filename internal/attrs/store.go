// Package attrs owns the session attribute list and its synchronization to
// the remote room.
package attrs

import (
	"strings"
	"sync"

	"aria/internal/catalog"
	"aria/internal/utils/id"
)

// Entry is one key/value attribute row. ID is opaque, unique within the
// store, and stable for the entry's lifetime; it is the sole handle for
// updates and removal. Keys may duplicate while editing.
type Entry struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// providerKey and modelKey derive the six reserved attribute keys.
func providerKey(role catalog.Role) string { return string(role) + "_provider" }
func modelKey(role catalog.Role) string    { return string(role) + "_model_id" }

// Store is an ordered, mutex-guarded attribute entry list. Mutations that
// can change the flushed mapping notify the registered observer.
type Store struct {
	mu       sync.Mutex
	entries  []Entry
	observer func()
}

// NewStore returns an empty attribute store.
func NewStore() *Store {
	return &Store{}
}

// OnChange registers the single observer notified after each mutation that
// is relevant to synchronization. The observer runs without the store lock.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
}

func (s *Store) notify(significant bool, fn func()) {
	if significant && fn != nil {
		fn()
	}
}

// Add appends a new empty entry and returns its id. The addition itself
// only counts as a sync-relevant change when the list already holds an
// entry with a non-empty key; a lone blank row cannot alter the flushed
// mapping.
func (s *Store) Add() string {
	s.mu.Lock()
	entryID := id.NewAttributeID()
	significant := false
	for _, e := range s.entries {
		if strings.TrimSpace(e.Key) != "" {
			significant = true
			break
		}
	}
	s.entries = append(s.entries, Entry{ID: entryID})
	fn := s.observer
	s.mu.Unlock()

	s.notify(significant, fn)
	return entryID
}

// UpdateKey renames the entry with the given id. An edit to a blank key is
// not sync-relevant until the key becomes non-empty.
func (s *Store) UpdateKey(entryID, newKey string) {
	s.mu.Lock()
	updated := false
	for i := range s.entries {
		if s.entries[i].ID == entryID {
			s.entries[i].Key = newKey
			updated = true
			break
		}
	}
	fn := s.observer
	s.mu.Unlock()

	s.notify(updated && strings.TrimSpace(newKey) != "", fn)
}

// UpdateValue replaces the value of the entry with the given id.
func (s *Store) UpdateValue(entryID, newValue string) {
	s.mu.Lock()
	updated := false
	for i := range s.entries {
		if s.entries[i].ID == entryID {
			s.entries[i].Value = newValue
			updated = true
			break
		}
	}
	fn := s.observer
	s.mu.Unlock()

	s.notify(updated, fn)
}

// Remove deletes the entry with the given id. Unknown ids are ignored.
func (s *Store) Remove(entryID string) {
	s.mu.Lock()
	removed := false
	for i := range s.entries {
		if s.entries[i].ID == entryID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			removed = true
			break
		}
	}
	fn := s.observer
	s.mu.Unlock()

	s.notify(removed, fn)
}

// List returns a snapshot copy of the full entry list in order.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the current entry count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Mapping derives the key→value map sent to the remote room: entries with
// an empty or whitespace-only key are skipped, and for duplicate keys the
// last entry in list order wins.
func (s *Store) Mapping() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := make(map[string]string, len(s.entries))
	for _, e := range s.entries {
		if strings.TrimSpace(e.Key) == "" {
			continue
		}
		m[e.Key] = e.Value
	}
	return m
}

// SetProvider selects the provider for a role. Any existing provider and
// model-id entries for the role are removed first, so changing provider
// always clears the role's model selection; an empty value clears only.
func (s *Store) SetProvider(role catalog.Role, value string) {
	if !role.Valid() {
		return
	}
	s.mu.Lock()
	s.removeByKeys(providerKey(role), modelKey(role))
	if value != "" {
		s.entries = append(s.entries, Entry{
			ID:    id.NewAttributeID(),
			Key:   providerKey(role),
			Value: value,
		})
	}
	fn := s.observer
	s.mu.Unlock()

	s.notify(true, fn)
}

// SetModelID selects the model for a role, replacing any prior model-id
// entry. The role's provider entry is untouched; empty value clears only.
func (s *Store) SetModelID(role catalog.Role, value string) {
	if !role.Valid() {
		return
	}
	s.mu.Lock()
	s.removeByKeys(modelKey(role))
	if value != "" {
		s.entries = append(s.entries, Entry{
			ID:    id.NewAttributeID(),
			Key:   modelKey(role),
			Value: value,
		})
	}
	fn := s.observer
	s.mu.Unlock()

	s.notify(true, fn)
}

// Provider returns the role's current provider value, or "".
func (s *Store) Provider(role catalog.Role) string {
	return s.valueByKey(providerKey(role))
}

// ModelID returns the role's current model id, or "".
func (s *Store) ModelID(role catalog.Role) string {
	return s.valueByKey(modelKey(role))
}

func (s *Store) valueByKey(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Key == key {
			return e.Value
		}
	}
	return ""
}

// removeByKeys drops every entry whose key matches one of keys.
// Caller holds the lock.
func (s *Store) removeByKeys(keys ...string) {
	filtered := s.entries[:0]
	for _, e := range s.entries {
		drop := false
		for _, k := range keys {
			if e.Key == k {
				drop = true
				break
			}
		}
		if !drop {
			filtered = append(filtered, e)
		}
	}
	s.entries = filtered
}
