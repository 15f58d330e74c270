package effects

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mapAdapter mutates numeric fields held in a plain map keyed by target then field.
type mapAdapter struct {
	name    string
	records map[string]map[string]int
	ledger  map[string]int
	failOn  string
	panicOn string
}

func newMapAdapter(name string) *mapAdapter {
	return &mapAdapter{
		name:    name,
		records: make(map[string]map[string]int),
		ledger:  make(map[string]int),
	}
}

func (a *mapAdapter) Name() string { return a.name }

func (a *mapAdapter) Apply(targetID string, patch Patch, _ EffectRef) error {
	if patch.Field == a.panicOn {
		panic("boom")
	}
	if patch.Field == a.failOn {
		return assert.AnError
	}
	delta, err := strconv.Atoi(patch.Value)
	if err != nil {
		return err
	}
	rec := a.records[targetID]
	if rec == nil {
		rec = make(map[string]int)
		a.records[targetID] = rec
	}
	key := targetID + "/" + patch.Field + "/" + patch.LedgerKey
	rec[patch.Field] -= a.ledger[key]
	rec[patch.Field] += delta
	a.ledger[key] = delta
	return nil
}

func (a *mapAdapter) Remove(targetID string, patch Patch, _ EffectRef) error {
	key := targetID + "/" + patch.Field + "/" + patch.LedgerKey
	delta, ok := a.ledger[key]
	if !ok {
		return assert.AnError
	}
	a.records[targetID][patch.Field] -= delta
	delete(a.ledger, key)
	return nil
}

// detectingAdapter only accepts targets listed in accept.
type detectingAdapter struct {
	*mapAdapter
	accept map[string]bool
	panics bool
}

func (a *detectingAdapter) Detect(targetID string) bool {
	if a.panics {
		panic("detector exploded")
	}
	return a.accept[targetID]
}

// applyOnlyAdapter has no Remove capability.
type applyOnlyAdapter struct{ name string }

func (a applyOnlyAdapter) Name() string { return a.name }

func (a applyOnlyAdapter) Apply(string, Patch, EffectRef) error { return nil }

func TestAdapterRegistry_RejectsInvalidRegistrations(t *testing.T) {
	r := NewAdapterRegistry(zap.NewNop())

	assert.ErrorIs(t, r.Register(nil), ErrNilAdapter)
	assert.ErrorIs(t, r.Register(newMapAdapter(" ")), ErrEmptyAdapterName)

	require.NoError(t, r.Register(newMapAdapter("ledger")))
	assert.ErrorIs(t, r.Register(newMapAdapter("ledger")), ErrDuplicateAdapter)
	assert.Equal(t, []string{"ledger"}, r.Names())
}

func TestAdapterRegistry_FindsFirstDetectingAdapter(t *testing.T) {
	r := NewAdapterRegistry(zap.NewNop())
	first := &detectingAdapter{mapAdapter: newMapAdapter("npc"), accept: map[string]bool{"goblin": true}}
	second := &detectingAdapter{mapAdapter: newMapAdapter("pc"), accept: map[string]bool{"hero": true}}
	require.NoError(t, r.Register(first))
	require.NoError(t, r.Register(second))

	assert.Equal(t, "pc", r.FindAdapterFor("hero").Name())
	assert.Equal(t, "npc", r.FindAdapterFor("goblin").Name())
}

func TestAdapterRegistry_AdapterWithoutDetectorMatchesAnyTarget(t *testing.T) {
	r := NewAdapterRegistry(zap.NewNop())
	picky := &detectingAdapter{mapAdapter: newMapAdapter("picky"), accept: map[string]bool{}}
	require.NoError(t, r.Register(picky))
	require.NoError(t, r.Register(newMapAdapter("universal")))

	assert.Equal(t, "universal", r.FindAdapterFor("anyone").Name())
}

func TestAdapterRegistry_FallsBackToFirstAdapter(t *testing.T) {
	r := NewAdapterRegistry(zap.NewNop())
	require.NoError(t, r.Register(&detectingAdapter{mapAdapter: newMapAdapter("a"), accept: map[string]bool{}}))
	require.NoError(t, r.Register(&detectingAdapter{mapAdapter: newMapAdapter("b"), accept: map[string]bool{}}))

	adapter := r.FindAdapterFor("stranger")
	require.NotNil(t, adapter)
	assert.Equal(t, "a", adapter.Name())
}

func TestAdapterRegistry_StrictReturnsNil(t *testing.T) {
	r := NewStrictAdapterRegistry(zap.NewNop())
	require.NoError(t, r.Register(&detectingAdapter{mapAdapter: newMapAdapter("a"), accept: map[string]bool{}}))

	assert.Nil(t, r.FindAdapterFor("stranger"))
}

func TestAdapterRegistry_PanickingDetectorIsNonMatch(t *testing.T) {
	r := NewStrictAdapterRegistry(zap.NewNop())
	require.NoError(t, r.Register(&detectingAdapter{mapAdapter: newMapAdapter("broken"), panics: true}))
	require.NoError(t, r.Register(&detectingAdapter{mapAdapter: newMapAdapter("ok"), accept: map[string]bool{"hero": true}}))

	adapter := r.FindAdapterFor("hero")
	require.NotNil(t, adapter)
	assert.Equal(t, "ok", adapter.Name())
}

func TestAdapterRegistry_EmptyRegistry(t *testing.T) {
	r := NewAdapterRegistry(nil)
	assert.Nil(t, r.FindAdapterFor("hero"))

	_, ok := r.AdapterByName("ledger")
	assert.False(t, ok)
}
