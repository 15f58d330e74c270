package effects

import (
	"errors"
	"strings"
	"sync"
)

var (
	// ErrEmptyEffectID is returned when registering a definition without an id.
	ErrEmptyEffectID = errors.New("effect id is required")
	// ErrDuplicateEffect is returned when an id is already registered.
	ErrDuplicateEffect = errors.New("effect already registered")
)

// Definition is an immutable catalog entry describing a named bundle of patches.
type Definition struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Source      string  `json:"source,omitempty" yaml:"source,omitempty"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Patches     []Patch `json:"patches" yaml:"patches"`
}

// Clone returns a deep copy of the definition.
func (d Definition) Clone() Definition {
	out := d
	out.Patches = clonePatches(d.Patches)
	return out
}

// DisplayName returns the name, falling back to the id.
func (d Definition) DisplayName() string {
	if strings.TrimSpace(d.Name) != "" {
		return d.Name
	}
	return d.ID
}

// Registry is the in-memory effect catalog. Registration order is preserved.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]Definition
	order       []string
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		definitions: make(map[string]Definition),
		order:       make([]string, 0),
	}
}

// Register stores a copy of def under id. The first writer wins.
func (r *Registry) Register(id string, def Definition) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptyEffectID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[id]; exists {
		return ErrDuplicateEffect
	}
	stored := def.Clone()
	stored.ID = id
	r.definitions[id] = stored
	r.order = append(r.order, id)
	return nil
}

// Get returns a copy of the definition registered under id.
func (r *Registry) Get(id string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.definitions[id]
	if !ok {
		return Definition{}, false
	}
	return def.Clone(), true
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.definitions[id]
	return ok
}

// List returns copies of every definition in registration order.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.definitions[id].Clone())
	}
	return out
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
