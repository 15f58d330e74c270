package effects

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrNilAdapter is returned when registering a nil adapter.
	ErrNilAdapter = errors.New("adapter is nil")
	// ErrEmptyAdapterName is returned when an adapter reports no name.
	ErrEmptyAdapterName = errors.New("adapter name is required")
	// ErrDuplicateAdapter is returned when an adapter name is already registered.
	ErrDuplicateAdapter = errors.New("adapter already registered")
)

// EffectRef identifies the effect a patch belongs to when it reaches an adapter.
type EffectRef struct {
	ID     string
	Name   string
	Source string
}

// Adapter translates abstract patches into concrete mutations on a target record.
type Adapter interface {
	Name() string
	Apply(targetID string, patch Patch, effect EffectRef) error
}

// Detector is implemented by adapters that only handle some targets.
// Adapters without it are compatible with every target.
type Detector interface {
	Detect(targetID string) bool
}

// Remover is implemented by adapters that can undo a previously applied patch.
type Remover interface {
	Remove(targetID string, patch Patch, effect EffectRef) error
}

// AdapterRegistry holds adapters in registration order.
type AdapterRegistry struct {
	mu       sync.RWMutex
	adapters []Adapter
	byName   map[string]Adapter
	strict   bool
	logger   *zap.Logger
}

// NewAdapterRegistry constructs a registry that falls back to the first registered
// adapter when no detector accepts a target.
func NewAdapterRegistry(logger *zap.Logger) *AdapterRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdapterRegistry{
		adapters: make([]Adapter, 0),
		byName:   make(map[string]Adapter),
		logger:   logger,
	}
}

// NewStrictAdapterRegistry constructs a registry that returns no adapter when
// nothing accepts a target.
func NewStrictAdapterRegistry(logger *zap.Logger) *AdapterRegistry {
	r := NewAdapterRegistry(logger)
	r.strict = true
	return r
}

// Register adds an adapter. Names must be unique.
func (r *AdapterRegistry) Register(adapter Adapter) error {
	if adapter == nil {
		return ErrNilAdapter
	}
	name := strings.TrimSpace(adapter.Name())
	if name == "" {
		return ErrEmptyAdapterName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAdapter, name)
	}
	r.adapters = append(r.adapters, adapter)
	r.byName[name] = adapter

	r.logger.Debug("registered adapter",
		zap.String("adapter", name),
		zap.Bool("detects", implementsDetector(adapter)),
		zap.Bool("removes", implementsRemover(adapter)))
	return nil
}

// AdapterByName returns the adapter registered under name.
func (r *AdapterRegistry) AdapterByName(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.byName[name]
	return adapter, ok
}

// Names returns adapter names in registration order.
func (r *AdapterRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for _, a := range r.adapters {
		names = append(names, a.Name())
	}
	return names
}

// FindAdapterFor returns the first adapter compatible with targetID.
// Adapters without a detector match any target. When nothing matches, a
// non-strict registry returns its first adapter; a strict one returns nil.
func (r *AdapterRegistry) FindAdapterFor(targetID string) Adapter {
	r.mu.RLock()
	adapters := append([]Adapter(nil), r.adapters...)
	r.mu.RUnlock()

	if len(adapters) == 0 {
		return nil
	}
	for _, adapter := range adapters {
		detector, ok := adapter.(Detector)
		if !ok {
			return adapter
		}
		if r.safeDetect(adapter.Name(), detector, targetID) {
			return adapter
		}
	}
	if r.strict {
		return nil
	}

	r.logger.Debug("no adapter detected target, using default",
		zap.String("target_id", targetID),
		zap.String("adapter", adapters[0].Name()))
	return adapters[0]
}

func (r *AdapterRegistry) safeDetect(name string, detector Detector, targetID string) (matched bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("adapter detector panicked",
				zap.String("adapter", name),
				zap.String("target_id", targetID),
				zap.Any("panic", rec))
			matched = false
		}
	}()
	return detector.Detect(targetID)
}

func implementsDetector(a Adapter) bool {
	_, ok := a.(Detector)
	return ok
}

func implementsRemover(a Adapter) bool {
	_, ok := a.(Remover)
	return ok
}
