package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/relicforge/relic-server-go/internal/sheet"
)

// Attribute is the hidden record attribute holding the serialised Book.
const Attribute = "_effects_ledger"

// entries maps a field (or section, namespace, hook list) to ledger key to entry.
type entries[T any] map[string]map[string]T

func (e entries[T]) get(field, key string) (T, bool) {
	v, ok := e[field][key]
	return v, ok
}

func (e entries[T]) put(field, key string, v T) {
	byKey := e[field]
	if byKey == nil {
		byKey = make(map[string]T)
		e[field] = byKey
	}
	byKey[key] = v
}

func (e entries[T]) drop(field, key string) {
	byKey := e[field]
	delete(byKey, key)
	if len(byKey) == 0 {
		delete(e, field)
	}
}

// Keys returns how many ledger keys are active for field.
func (e entries[T]) Keys(field string) int {
	return len(e[field])
}

// ToggleEntry remembers which row a toggle flipped and what its active flag held before.
type ToggleEntry struct {
	Row      string `json:"row"`
	Prior    string `json:"prior,omitempty"`
	HadPrior bool   `json:"hadPrior"`
}

// ResourceEntry remembers the triple a resource definition replaced, if any.
type ResourceEntry struct {
	Existed bool   `json:"existed"`
	Max     string `json:"max,omitempty"`
	Current string `json:"current,omitempty"`
	Cadence string `json:"cadence,omitempty"`
}

// Book is the per-record ledger: one entry per (field, ledger key) per accounting kind.
type Book struct {
	Numeric   entries[float64]       `json:"numeric,omitempty"`
	Segments  entries[string]        `json:"segments,omitempty"`
	Rows      entries[[]string]      `json:"rows,omitempty"`
	Toggles   entries[ToggleEntry]   `json:"toggles,omitempty"`
	Resources entries[ResourceEntry] `json:"resources,omitempty"`
	Hooks     entries[string]        `json:"hooks,omitempty"`
	// Created lists attributes that did not exist before the ledger first wrote them.
	Created map[string]bool `json:"created,omitempty"`
}

// NewBook returns an empty ledger.
func NewBook() *Book {
	b := &Book{}
	b.normalize()
	return b
}

func (b *Book) normalize() {
	if b.Numeric == nil {
		b.Numeric = make(entries[float64])
	}
	if b.Segments == nil {
		b.Segments = make(entries[string])
	}
	if b.Rows == nil {
		b.Rows = make(entries[[]string])
	}
	if b.Toggles == nil {
		b.Toggles = make(entries[ToggleEntry])
	}
	if b.Resources == nil {
		b.Resources = make(entries[ResourceEntry])
	}
	if b.Hooks == nil {
		b.Hooks = make(entries[string])
	}
	if b.Created == nil {
		b.Created = make(map[string]bool)
	}
}

// markCreated records name as ledger-created when first is set and rec lacks it.
func (b *Book) markCreated(rec sheet.Record, name string, first bool) {
	if !first {
		return
	}
	if _, ok := rec.Get(name); !ok {
		b.Created[name] = true
	}
}

// releaseCreated deletes name from rec if the ledger created it.
func (b *Book) releaseCreated(rec sheet.Record, name string) {
	if !b.Created[name] {
		return
	}
	rec.Delete(name)
	delete(b.Created, name)
}

// Empty reports whether the ledger holds no entries at all.
func (b *Book) Empty() bool {
	return len(b.Numeric) == 0 && len(b.Segments) == 0 && len(b.Rows) == 0 &&
		len(b.Toggles) == 0 && len(b.Resources) == 0 && len(b.Hooks) == 0 && len(b.Created) == 0
}

// Read loads the ledger stored on rec. A record without one yields an empty book.
func Read(rec sheet.Record) (*Book, error) {
	raw, ok := rec.Get(Attribute)
	if !ok || raw == "" {
		return NewBook(), nil
	}
	var b Book
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return nil, fmt.Errorf("decode ledger on %s: %w", rec.ID(), err)
	}
	b.normalize()
	return &b, nil
}

// Write stores the ledger on rec, dropping the attribute once the book is empty.
func Write(rec sheet.Record, b *Book) error {
	if b.Empty() {
		rec.Delete(Attribute)
		return nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode ledger on %s: %w", rec.ID(), err)
	}
	rec.Set(Attribute, string(data))
	return nil
}
