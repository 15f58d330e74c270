package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fireBoon() Definition {
	return Definition{
		Name:   "Fire Boon",
		Source: "boon",
		Patches: []Patch{
			{Kind: PatchAppendSegment, Field: "global_damage_mod", Value: "+1d6", Label: "Fire Boon"},
			{Kind: PatchCreateRow, Field: "acmod", Label: "Fire Ward", Row: map[string]string{"val": "1"}},
		},
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("boon.fire", fireBoon()))
	assert.True(t, r.Has("boon.fire"))
	assert.Equal(t, 1, r.Len())

	def, ok := r.Get("boon.fire")
	require.True(t, ok)
	assert.Equal(t, "boon.fire", def.ID)
	assert.Equal(t, "Fire Boon", def.Name)
	assert.Len(t, def.Patches, 2)
}

func TestRegistry_RejectsEmptyAndDuplicateIDs(t *testing.T) {
	r := NewRegistry()

	assert.ErrorIs(t, r.Register("", fireBoon()), ErrEmptyEffectID)
	assert.ErrorIs(t, r.Register("   ", fireBoon()), ErrEmptyEffectID)

	require.NoError(t, r.Register("boon.fire", fireBoon()))
	replacement := fireBoon()
	replacement.Name = "Changed"
	assert.ErrorIs(t, r.Register("boon.fire", replacement), ErrDuplicateEffect)

	def, _ := r.Get("boon.fire")
	assert.Equal(t, "Fire Boon", def.Name, "first writer wins")
}

func TestRegistry_GetMissing(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("nope")
	assert.False(t, ok)
	assert.False(t, r.Has("nope"))
}

func TestRegistry_CopiesOnRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	def := fireBoon()
	require.NoError(t, r.Register("boon.fire", def))

	// mutate the caller's value after registration
	def.Patches[0].Value = "+99"
	def.Patches[1].Row["val"] = "99"

	got, _ := r.Get("boon.fire")
	assert.Equal(t, "+1d6", got.Patches[0].Value)
	assert.Equal(t, "1", got.Patches[1].Row["val"])

	// mutate the returned copy
	got.Patches[0].Value = "+42"
	got.Patches[1].Row["val"] = "42"
	got.Patches = append(got.Patches, Patch{Kind: PatchAddNumeric})

	again, _ := r.Get("boon.fire")
	assert.Equal(t, "+1d6", again.Patches[0].Value)
	assert.Equal(t, "1", again.Patches[1].Row["val"])
	assert.Len(t, again.Patches, 2)
}

func TestRegistry_ListPreservesOrder(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"relic.c", "boon.a", "kit.b"} {
		require.NoError(t, r.Register(id, Definition{Name: id}))
	}

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "relic.c", list[0].ID)
	assert.Equal(t, "boon.a", list[1].ID)
	assert.Equal(t, "kit.b", list[2].ID)
}

func TestFlatten_ExpandsGroupsInOrder(t *testing.T) {
	patches := []Patch{
		{Kind: PatchAddNumeric, Field: "a", Value: "1"},
		{Kind: PatchGroup, Patches: []Patch{
			{Kind: PatchAddNumeric, Field: "b", Value: "2"},
			{Kind: PatchGroup, Patches: []Patch{
				{Kind: PatchAddNumeric, Field: "c", Value: "3"},
			}},
		}},
		{Kind: PatchAddNumeric, Field: "d", Value: "4"},
	}

	flat := Flatten(patches)
	require.Len(t, flat, 4)
	fields := []string{flat[0].Field, flat[1].Field, flat[2].Field, flat[3].Field}
	assert.Equal(t, []string{"a", "b", "c", "d"}, fields)
}

func TestPatch_WithLedgerKey(t *testing.T) {
	p := Patch{Kind: PatchAddNumeric, Field: "ac_bonus", Value: "2", Label: "Shield"}
	assert.Equal(t, "boon.shield|Shield", p.WithLedgerKey("boon.shield").LedgerKey)

	unlabelled := Patch{Kind: PatchAddNumeric, Field: "ac_bonus", Value: "2"}
	assert.Equal(t, "boon.shield", unlabelled.WithLedgerKey("boon.shield").LedgerKey)

	explicit := Patch{Kind: PatchAddNumeric, Field: "ac_bonus", Value: "2", LedgerKey: "A"}
	assert.Equal(t, "A", explicit.WithLedgerKey("boon.shield").LedgerKey)
}

func TestPatchKind_Valid(t *testing.T) {
	assert.True(t, PatchAddNumeric.Valid())
	assert.True(t, PatchGroup.Valid())
	assert.False(t, PatchKind("teleport").Valid())
}
