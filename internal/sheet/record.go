package sheet

import (
	"sort"
	"strings"
	"sync"
)

// Record is the attribute accessor adapters mutate. Values are always strings.
type Record interface {
	ID() string
	Get(name string) (string, bool)
	Set(name, value string)
	Delete(name string)
	// Names returns every attribute name starting with prefix, sorted.
	Names(prefix string) []string
}

// Snapshot is the serialisable form of a character.
type Snapshot struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Attributes = make(map[string]string, len(s.Attributes))
	for k, v := range s.Attributes {
		out.Attributes[k] = v
	}
	return out
}

// Character is an in-memory character sheet.
type Character struct {
	mu    sync.RWMutex
	id    string
	name  string
	attrs map[string]string
}

// NewCharacter creates a character with a copy of attrs.
func NewCharacter(id, name string, attrs map[string]string) *Character {
	c := &Character{
		id:    id,
		name:  name,
		attrs: make(map[string]string, len(attrs)),
	}
	for k, v := range attrs {
		c.attrs[k] = v
	}
	return c
}

// FromSnapshot rebuilds a character from its snapshot.
func FromSnapshot(s Snapshot) *Character {
	return NewCharacter(s.ID, s.Name, s.Attributes)
}

func (c *Character) ID() string {
	return c.id
}

func (c *Character) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *Character) Get(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.attrs[name]
	return v, ok
}

func (c *Character) Set(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs[name] = value
}

func (c *Character) Delete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.attrs, name)
}

func (c *Character) Names(prefix string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0)
	for name := range c.attrs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Attributes returns a copy of every attribute.
func (c *Character) Attributes() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.attrs))
	for k, v := range c.attrs {
		out[k] = v
	}
	return out
}

// Snapshot captures the character for persistence.
func (c *Character) Snapshot() Snapshot {
	return Snapshot{ID: c.id, Name: c.Name(), Attributes: c.Attributes()}
}
