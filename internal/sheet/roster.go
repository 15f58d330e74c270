package sheet

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrEmptyCharacterID  = errors.New("character id is required")
	ErrCharacterExists   = errors.New("character already exists")
	ErrCharacterNotFound = errors.New("character not found")
)

// Roster holds the characters effects can target.
type Roster struct {
	mu    sync.RWMutex
	chars map[string]*Character
}

func NewRoster() *Roster {
	return &Roster{chars: make(map[string]*Character)}
}

// Create adds a new character. The id is trimmed and must be unique.
func (r *Roster) Create(id, name string, attrs map[string]string) (*Character, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyCharacterID
	}
	if name == "" {
		name = id
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.chars[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrCharacterExists, id)
	}
	c := NewCharacter(id, name, attrs)
	r.chars[id] = c
	return c, nil
}

// Record returns the character as a Record.
func (r *Roster) Record(id string) (Record, bool) {
	c, ok := r.Character(id)
	if !ok {
		return nil, false
	}
	return c, true
}

func (r *Roster) Character(id string) (*Character, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chars[id]
	return c, ok
}

// Remove drops a character and reports whether it existed.
func (r *Roster) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.chars[id]
	delete(r.chars, id)
	return ok
}

// IDs returns the character ids in sorted order.
func (r *Roster) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.chars))
	for id := range r.chars {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chars)
}

// Snapshot returns every character keyed by id.
func (r *Roster) Snapshot() map[string]Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Snapshot, len(r.chars))
	for id, c := range r.chars {
		out[id] = c.Snapshot()
	}
	return out
}

// Restore replaces the roster contents with snaps. Map keys win over snapshot ids.
func (r *Roster) Restore(snaps map[string]Snapshot) {
	chars := make(map[string]*Character, len(snaps))
	for id, s := range snaps {
		s.ID = id
		chars[id] = FromSnapshot(s)
	}
	r.mu.Lock()
	r.chars = chars
	r.mu.Unlock()
}
