package ledger

import (
	"fmt"
	"testing"
	"unicode/utf8"

	"github.com/relicforge/relic-server-go/internal/effects"
	"github.com/relicforge/relic-server-go/internal/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	roster  *sheet.Roster
	hero    *sheet.Character
	adapter *Adapter
	engine  *effects.Engine
}

func newFixture(t *testing.T, attrs map[string]string, opts ...Option) *fixture {
	t.Helper()
	roster := sheet.NewRoster()
	hero, err := roster.Create("hero", "Hero", attrs)
	require.NoError(t, err)

	next := 0
	opts = append([]Option{WithRowIDGenerator(func() string {
		next++
		return fmt.Sprintf("-row%d", next)
	})}, opts...)
	adapter := New(roster, opts...)

	adapters := effects.NewAdapterRegistry(zap.NewNop())
	require.NoError(t, adapters.Register(adapter))
	engine := effects.NewEngine(effects.NewRegistry(), adapters, nil, zap.NewNop())

	return &fixture{roster: roster, hero: hero, adapter: adapter, engine: engine}
}

func (f *fixture) define(t *testing.T, id, name string, patches ...effects.Patch) {
	t.Helper()
	require.NoError(t, f.engine.Registry().Register(id, effects.Definition{Name: name, Patches: patches}))
}

func (f *fixture) apply(t *testing.T, id string) string {
	t.Helper()
	res := f.engine.Apply(id, effects.ApplyOptions{TargetID: "hero"})
	require.True(t, res.OK, "apply %s: %s %+v", id, res.Reason, res.Results)
	return res.InstanceID
}

func (f *fixture) remove(t *testing.T, instanceID string) {
	t.Helper()
	res := f.engine.Remove(instanceID, effects.RemoveOptions{})
	require.True(t, res.OK, "remove %s: %s", instanceID, res.Reason)
	for _, r := range res.Results {
		require.True(t, r.OK, "patch %d: %s", r.Index, r.Error)
	}
}

func (f *fixture) attr(name string) string {
	v, _ := f.hero.Get(name)
	return v
}

func (f *fixture) has(name string) bool {
	_, ok := f.hero.Get(name)
	return ok
}

func TestNumeric_RoundTripRestoresRecord(t *testing.T) {
	f := newFixture(t, map[string]string{"ac_bonus": "1", "speed": "30"})
	before := sheet.Checksum(f.hero.Snapshot())

	f.define(t, "relic.boots", "Boots",
		effects.Patch{Kind: effects.PatchAddNumeric, Field: "speed", Value: "+10"},
		effects.Patch{Kind: effects.PatchAddNumeric, Field: "ac_bonus", Value: "-0.5"},
	)
	id := f.apply(t, "relic.boots")
	assert.Equal(t, "40", f.attr("speed"))
	assert.Equal(t, "0.5", f.attr("ac_bonus"))
	assert.True(t, f.has(Attribute))

	f.remove(t, id)
	assert.Equal(t, before, sheet.Checksum(f.hero.Snapshot()))
	assert.False(t, f.has(Attribute))
}

func TestNumeric_IndependentStackingEitherOrder(t *testing.T) {
	for _, first := range []int{0, 1} {
		t.Run(fmt.Sprintf("remove_%d_first", first), func(t *testing.T) {
			f := newFixture(t, nil)
			f.define(t, "boon.a", "A", effects.Patch{Kind: effects.PatchAddNumeric, Field: "ac_bonus", Value: "2", LedgerKey: "A"})
			f.define(t, "boon.b", "B", effects.Patch{Kind: effects.PatchAddNumeric, Field: "ac_bonus", Value: "3", LedgerKey: "B"})

			ids := []string{f.apply(t, "boon.a"), f.apply(t, "boon.b")}
			deltas := []int{2, 3}
			assert.Equal(t, "5", f.attr("ac_bonus"))

			f.remove(t, ids[first])
			assert.Equal(t, fmt.Sprint(5-deltas[first]), f.attr("ac_bonus"))
			f.remove(t, ids[1-first])
			assert.False(t, f.has("ac_bonus"), "field the ledger created is removed with its last entry")
			assert.False(t, f.has(Attribute))
		})
	}
}

func TestNumeric_ReapplySameKeyDoesNotAccumulate(t *testing.T) {
	f := newFixture(t, map[string]string{"ac_bonus": "0"})
	patch := effects.Patch{Kind: effects.PatchAddNumeric, Field: "ac_bonus", Value: "2", LedgerKey: "A"}
	ref := effects.EffectRef{ID: "boon.a"}

	require.NoError(t, f.adapter.Apply("hero", patch, ref))
	require.NoError(t, f.adapter.Apply("hero", patch, ref))
	assert.Equal(t, "2", f.attr("ac_bonus"))

	patch.Value = "4"
	require.NoError(t, f.adapter.Apply("hero", patch, ref))
	assert.Equal(t, "4", f.attr("ac_bonus"), "re-apply replaces the contribution")

	require.NoError(t, f.adapter.Remove("hero", patch, ref))
	assert.Equal(t, "0", f.attr("ac_bonus"))
	assert.ErrorIs(t, f.adapter.Remove("hero", patch, ref), ErrMissingEntry)
}

func TestNumeric_RejectsNonNumericWithoutMutation(t *testing.T) {
	f := newFixture(t, map[string]string{"ac_bonus": "two", "speed": "30"})
	ref := effects.EffectRef{ID: "boon.a"}

	err := f.adapter.Apply("hero", effects.Patch{Kind: effects.PatchAddNumeric, Field: "ac_bonus", Value: "2", LedgerKey: "A"}, ref)
	assert.ErrorIs(t, err, ErrInvalidNumber)
	err = f.adapter.Apply("hero", effects.Patch{Kind: effects.PatchAddNumeric, Field: "speed", Value: "fast", LedgerKey: "A"}, ref)
	assert.ErrorIs(t, err, ErrInvalidNumber)

	assert.Equal(t, "two", f.attr("ac_bonus"))
	assert.Equal(t, "30", f.attr("speed"))
	assert.False(t, f.has(Attribute))
}

func TestNumeric_RejectsNonFiniteWithoutMutation(t *testing.T) {
	f := newFixture(t, map[string]string{"ac_bonus": "10"})
	ref := effects.EffectRef{ID: "boon.a"}

	for _, value := range []string{"NaN", "Inf", "-Inf", "+Inf"} {
		err := f.adapter.Apply("hero", effects.Patch{Kind: effects.PatchAddNumeric, Field: "ac_bonus", Value: value, LedgerKey: "A"}, ref)
		assert.ErrorIs(t, err, ErrInvalidNumber, value)
		assert.Equal(t, "10", f.attr("ac_bonus"), value)
		assert.False(t, f.has(Attribute), value)
	}

	big := effects.Patch{Kind: effects.PatchAddNumeric, Field: "surge", Value: "1e308", LedgerKey: "A"}
	require.NoError(t, f.adapter.Apply("hero", big, ref))
	big.LedgerKey = "B"
	assert.ErrorIs(t, f.adapter.Apply("hero", big, ref), ErrInvalidNumber)
	assert.Equal(t, formatNumber(1e308), f.attr("surge"))

	require.NoError(t, f.adapter.Apply("hero", effects.Patch{Kind: effects.PatchAddNumeric, Field: "ac_bonus", Value: "2", LedgerKey: "B"}, ref))
	assert.Equal(t, "12", f.attr("ac_bonus"))

	big.LedgerKey = "A"
	require.NoError(t, f.adapter.Remove("hero", big, ref))
	assert.False(t, f.has("surge"))
	require.NoError(t, f.adapter.Remove("hero", effects.Patch{Kind: effects.PatchAddNumeric, Field: "ac_bonus", Value: "2", LedgerKey: "B"}, ref))
	assert.Equal(t, "10", f.attr("ac_bonus"))
	assert.False(t, f.has(Attribute))
}

func TestSegment_AbsentFieldRoundTrip(t *testing.T) {
	f := newFixture(t, map[string]string{"speed": "30"})
	before := sheet.Checksum(f.hero.Snapshot())

	f.define(t, "boon.fire", "Fire Boon",
		effects.Patch{Kind: effects.PatchAppendSegment, Field: "global_damage_mod", Value: "+1d6", Label: "Fire Boon"})
	f.define(t, "boon.frost", "Frost Boon",
		effects.Patch{Kind: effects.PatchAppendSegment, Field: "global_damage_mod", Value: "+2", Label: "Frost Boon"})

	fire := f.apply(t, "boon.fire")
	frost := f.apply(t, "boon.frost")
	assert.Equal(t, "1", f.attr("global_damage_mod_flag"))

	f.remove(t, fire)
	assert.Equal(t, "+2 [Frost Boon]", f.attr("global_damage_mod"))
	f.remove(t, frost)
	assert.False(t, f.has("global_damage_mod"))
	assert.False(t, f.has("global_damage_mod_flag"))
	assert.Equal(t, before, sheet.Checksum(f.hero.Snapshot()))
}

func TestSegment_FireAndFrostBoons(t *testing.T) {
	f := newFixture(t, map[string]string{"global_damage_mod": "", "global_damage_mod_flag": "0"})
	before := sheet.Checksum(f.hero.Snapshot())

	f.define(t, "boon.fire", "Fire Boon",
		effects.Patch{Kind: effects.PatchAppendSegment, Field: "global_damage_mod", Value: "+1d6", Label: "Fire Boon"})
	f.define(t, "boon.frost", "Frost Boon",
		effects.Patch{Kind: effects.PatchAppendSegment, Field: "global_damage_mod", Value: "+2", Label: "Frost Boon"})

	fire := f.apply(t, "boon.fire")
	assert.Equal(t, "+1d6 [Fire Boon]", f.attr("global_damage_mod"))
	assert.Equal(t, "1", f.attr("global_damage_mod_flag"))

	frost := f.apply(t, "boon.frost")
	assert.Equal(t, "+1d6 [Fire Boon] +2 [Frost Boon]", f.attr("global_damage_mod"))

	f.remove(t, fire)
	assert.Equal(t, "+2 [Frost Boon]", f.attr("global_damage_mod"))
	assert.Equal(t, "1", f.attr("global_damage_mod_flag"))

	f.remove(t, frost)
	assert.Equal(t, "", f.attr("global_damage_mod"))
	assert.Equal(t, "0", f.attr("global_damage_mod_flag"))
	assert.Equal(t, before, sheet.Checksum(f.hero.Snapshot()))
}

func TestSegment_CustomFlagAndReapply(t *testing.T) {
	f := newFixture(t, nil)
	ref := effects.EffectRef{ID: "boon.fire"}
	patch := effects.Patch{Kind: effects.PatchAppendSegment, Field: "dmg", Flag: "dmg_on", Value: "+1d6", Label: "Fire Boon"}
	patch = patch.WithLedgerKey(ref.ID)

	require.NoError(t, f.adapter.Apply("hero", patch, ref))
	require.NoError(t, f.adapter.Apply("hero", patch, ref))
	assert.Equal(t, "+1d6 [Fire Boon]", f.attr("dmg"))
	assert.Equal(t, "1", f.attr("dmg_on"))
	assert.False(t, f.has("dmg_flag"))
}

func TestCutSegment_AnchorsOnWhitespace(t *testing.T) {
	cases := []struct {
		name, text, segment, want string
		found                     bool
	}{
		{"first", "+1d6 [Fire Boon] +2 [Frost Boon]", "+1d6 [Fire Boon]", "+2 [Frost Boon]", true},
		{"last", "+1d6 [Fire Boon] +2 [Frost Boon]", "+2 [Frost Boon]", "+1d6 [Fire Boon]", true},
		{"middle", "a [A] b [B] c [C]", "b [B]", "a [A] c [C]", true},
		{"skips partial prefix", "+10 [X] +1", "+1", "+10 [X]", true},
		{"skips partial suffix", "x+1 +1", "+1", "x+1", true},
		{"only segment", "+2 [Frost Boon]", "+2 [Frost Boon]", "", true},
		{"absent", "+10 [X]", "+1", "+10 [X]", false},
		{"first of duplicates", "+1 [A] +1 [A]", "+1 [A]", "+1 [A]", true},
		{"nbsp before", "+1 [Épée]\u00a0+2 [Frost]", "+2 [Frost]", "+1 [Épée]", true},
		{"nbsp after", "+1 [Fire]\u00a0+2 [Frost]", "+1 [Fire]", "+2 [Frost]", true},
		{"multibyte neighbour", "+1 [à] +2", "+2", "+1 [à]", true},
		{"continuation byte is not a boundary", "à+1", "+1", "à+1", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, found := cutSegment(tc.text, tc.segment)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.found, found)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestRows_CreateAndRemove(t *testing.T) {
	f := newFixture(t, nil)
	before := sheet.Checksum(f.hero.Snapshot())

	f.define(t, "boon.ward", "Fire Ward", effects.Patch{
		Kind: effects.PatchCreateRow, Field: "acmod", Label: "Fire Ward",
		Row: map[string]string{"val": "1", "active": "1"},
	})
	id := f.apply(t, "boon.ward")

	assert.Equal(t, "Fire Ward", f.attr("repeating_acmod_-row1_name"))
	assert.Equal(t, "1", f.attr("repeating_acmod_-row1_val"))
	assert.Equal(t, "1", f.attr("repeating_acmod_-row1_active"))
	assert.Equal(t, "-row1", f.attr(OrderAttribute("acmod")))

	f.remove(t, id)
	assert.Empty(t, f.hero.Names("repeating_acmod_"))
	assert.False(t, f.has(OrderAttribute("acmod")))
	assert.Equal(t, before, sheet.Checksum(f.hero.Snapshot()))
}

func TestRows_ReapplyReplacesRememberedRows(t *testing.T) {
	f := newFixture(t, map[string]string{OrderAttribute("acmod"): "-existing", "repeating_acmod_-existing_name": "Shield"})
	ref := effects.EffectRef{ID: "boon.ward"}
	patch := effects.Patch{Kind: effects.PatchCreateRow, Field: "acmod", Label: "Ward", Row: map[string]string{"name": "Custom"}, LedgerKey: "W"}

	require.NoError(t, f.adapter.Apply("hero", patch, ref))
	require.NoError(t, f.adapter.Apply("hero", patch, ref))

	assert.False(t, f.has("repeating_acmod_-row1_name"))
	assert.Equal(t, "Custom", f.attr("repeating_acmod_-row2_name"), "explicit label sub-field wins")
	assert.Equal(t, "-existing,-row2", f.attr(OrderAttribute("acmod")))

	require.NoError(t, f.adapter.Remove("hero", patch, ref))
	assert.Equal(t, "-existing", f.attr(OrderAttribute("acmod")))
	assert.Equal(t, "Shield", f.attr("repeating_acmod_-existing_name"))
}

func TestToggle_FlipsAndRestores(t *testing.T) {
	f := newFixture(t, map[string]string{
		OrderAttribute("acmod"):     "-a,-b",
		"repeating_acmod_-a_name":   "Shield",
		"repeating_acmod_-a_active": "0",
		"repeating_acmod_-b_name":   " Mage Armor ",
		"repeating_acmod_-b_active": "1",
	})
	before := sheet.Checksum(f.hero.Snapshot())

	f.define(t, "kit.shield", "Shield Kit",
		effects.Patch{Kind: effects.PatchToggleRow, Field: "acmod", Label: "shield"})
	f.define(t, "relic.dampener", "Dampener",
		effects.Patch{Kind: effects.PatchToggleRow, Field: "acmod", Label: "mage armor", Value: "off"})

	shield := f.apply(t, "kit.shield")
	damp := f.apply(t, "relic.dampener")
	assert.Equal(t, "1", f.attr("repeating_acmod_-a_active"))
	assert.Equal(t, "0", f.attr("repeating_acmod_-b_active"))

	f.remove(t, shield)
	f.remove(t, damp)
	assert.Equal(t, before, sheet.Checksum(f.hero.Snapshot()))
}

func TestToggle_Errors(t *testing.T) {
	f := newFixture(t, map[string]string{"repeating_acmod_-a_name": "Shield"})
	ref := effects.EffectRef{ID: "kit.shield"}

	err := f.adapter.Apply("hero", effects.Patch{Kind: effects.PatchToggleRow, Field: "acmod", Label: "Cloak", LedgerKey: "k"}, ref)
	assert.ErrorIs(t, err, ErrRowNotFound)

	err = f.adapter.Apply("hero", effects.Patch{Kind: effects.PatchToggleRow, Field: "acmod", Label: "Shield", Value: "sideways", LedgerKey: "k"}, ref)
	assert.ErrorIs(t, err, ErrInvalidToggle)

	err = f.adapter.Apply("hero", effects.Patch{Kind: effects.PatchToggleRow, Field: "acmod", Value: "on", LedgerKey: "k"}, ref)
	assert.ErrorIs(t, err, ErrEmptyPatch)

	// rows found outside the order list are still matched
	require.NoError(t, f.adapter.Apply("hero", effects.Patch{Kind: effects.PatchToggleRow, Field: "acmod", Label: "Shield", LedgerKey: "k"}, ref))
	assert.Equal(t, "1", f.attr("repeating_acmod_-a_active"))
}

func TestResource_DefineAndRestorePrior(t *testing.T) {
	f := newFixture(t, map[string]string{"ki_max": "2", "ki_current": "1", "ki_cadence": "long"})
	before := sheet.Checksum(f.hero.Snapshot())

	f.define(t, "relic.monk", "Monk Relic",
		effects.Patch{Kind: effects.PatchDefineResource, Field: "ki", Value: "5", Current: "3", Cadence: "short"},
		effects.Patch{Kind: effects.PatchDefineResource, Field: "luck", Value: "1", Cadence: "long"},
	)
	id := f.apply(t, "relic.monk")

	ki, err := sheet.ReadResource(f.hero, "ki")
	require.NoError(t, err)
	assert.Equal(t, sheet.Resource{Name: "ki", Current: 3, Max: 5, Cadence: "short"}, ki)
	luck, err := sheet.ReadResource(f.hero, "luck")
	require.NoError(t, err)
	assert.Equal(t, 1, luck.Current)

	f.remove(t, id)
	assert.Equal(t, before, sheet.Checksum(f.hero.Snapshot()))
	_, err = sheet.ReadResource(f.hero, "luck")
	assert.ErrorIs(t, err, sheet.ErrUnknownResource)
}

func TestResource_ReapplyKeepsOriginalPrior(t *testing.T) {
	f := newFixture(t, map[string]string{"ki_max": "2"})
	ref := effects.EffectRef{ID: "relic.monk"}
	patch := effects.Patch{Kind: effects.PatchDefineResource, Field: "ki", Value: "5", LedgerKey: "M"}

	require.NoError(t, f.adapter.Apply("hero", patch, ref))
	require.NoError(t, f.adapter.Apply("hero", patch, ref))
	require.NoError(t, f.adapter.Remove("hero", patch, ref))

	assert.Equal(t, "2", f.attr("ki_max"))
	assert.False(t, f.has("ki_current"))

	err := f.adapter.Apply("hero", effects.Patch{Kind: effects.PatchDefineResource, Field: "ki", Value: "-1", LedgerKey: "M"}, ref)
	assert.ErrorIs(t, err, ErrInvalidNumber)
}

func TestHook_AppendsAndRemovesExactToken(t *testing.T) {
	f := newFixture(t, map[string]string{"on_hit": "bleed"})
	ref := effects.EffectRef{ID: "boon.fire"}
	fire := effects.Patch{Kind: effects.PatchRegisterHook, Field: "on_hit", Value: "burn", LedgerKey: "fire"}
	frost := effects.Patch{Kind: effects.PatchRegisterHook, Field: "on_hit", Label: "burn_extra", LedgerKey: "frost"}

	require.NoError(t, f.adapter.Apply("hero", fire, ref))
	require.NoError(t, f.adapter.Apply("hero", frost, ref))
	assert.Equal(t, "bleed|burn|burn_extra", f.attr("on_hit"))

	require.NoError(t, f.adapter.Remove("hero", fire, ref))
	assert.Equal(t, []string{"bleed", "burn_extra"}, Hooks(f.hero, "on_hit"))

	err := f.adapter.Apply("hero", effects.Patch{Kind: effects.PatchRegisterHook, Field: "on_hit", Value: "a|b", LedgerKey: "x"}, ref)
	assert.ErrorIs(t, err, ErrInvalidHook)
}

func TestAdapter_FailurePolicy(t *testing.T) {
	f := newFixture(t, nil)
	ref := effects.EffectRef{ID: "boon.a"}

	assert.ErrorIs(t, f.adapter.Apply("hero", effects.Patch{Kind: effects.PatchAddNumeric, Field: "ac_bonus"}, ref), ErrEmptyPatch)
	assert.ErrorIs(t, f.adapter.Apply("hero", effects.Patch{Kind: effects.PatchAddNumeric, Value: "1"}, ref), ErrMissingField)
	assert.ErrorIs(t, f.adapter.Apply("ghost", effects.Patch{Kind: effects.PatchAddNumeric, Field: "ac_bonus", Value: "1"}, ref), ErrUnknownTarget)
	assert.ErrorIs(t, f.adapter.Apply("hero", effects.Patch{Kind: "teleport", Field: "x", Value: "1"}, ref), ErrUnsupportedOp)

	f.hero.Set(Attribute, "{not json")
	assert.Error(t, f.adapter.Apply("hero", effects.Patch{Kind: effects.PatchAddNumeric, Field: "ac_bonus", Value: "1"}, ref))
}

func TestAdapter_PartialDefinitionThroughEngine(t *testing.T) {
	f := newFixture(t, map[string]string{"ac_bonus": "0"})
	f.define(t, "boon.mixed", "Mixed",
		effects.Patch{Kind: effects.PatchAddNumeric, Field: "ac_bonus", Value: "1"},
		effects.Patch{Kind: effects.PatchAddNumeric, Field: "speed"},
		effects.Patch{Kind: effects.PatchToggleRow, Field: "acmod", Label: "Missing"},
	)

	res := f.engine.Apply("boon.mixed", effects.ApplyOptions{TargetID: "hero"})
	require.True(t, res.OK)
	assert.Equal(t, 1, res.Applied)
	assert.Contains(t, res.Results[1].Error, ErrEmptyPatch.Error())

	f.remove(t, res.InstanceID)
	assert.Equal(t, "0", f.attr("ac_bonus"))
	assert.False(t, f.has(Attribute))
}

func TestAdapter_DetectBySheetType(t *testing.T) {
	f := newFixture(t, map[string]string{SheetTypeAttribute: "PC"}, WithSheetType("pc"))
	_, err := f.roster.Create("goblin", "Goblin", map[string]string{SheetTypeAttribute: "npc"})
	require.NoError(t, err)

	assert.True(t, f.adapter.Detect("hero"))
	assert.False(t, f.adapter.Detect("goblin"))
	assert.False(t, f.adapter.Detect("ghost"))

	plain := New(f.roster)
	assert.True(t, plain.Detect("goblin"))
}

func TestAdapter_LedgerSurvivesReload(t *testing.T) {
	f := newFixture(t, map[string]string{"ac_bonus": "0"})
	f.define(t, "boon.a", "A", effects.Patch{Kind: effects.PatchAddNumeric, Field: "ac_bonus", Value: "2"})
	id := f.apply(t, "boon.a")

	// rebuild everything from snapshots, as a host does after a restart
	roster := sheet.NewRoster()
	roster.Restore(f.roster.Snapshot())
	adapters := effects.NewAdapterRegistry(zap.NewNop())
	require.NoError(t, adapters.Register(New(roster)))
	engine := effects.NewEngine(f.engine.Registry(), adapters, nil, zap.NewNop())
	engine.Restore(f.engine.State())

	res := engine.Remove(id, effects.RemoveOptions{})
	require.True(t, res.OK)
	hero, _ := roster.Character("hero")
	v, _ := hero.Get("ac_bonus")
	assert.Equal(t, "0", v)

	book, err := Read(hero)
	require.NoError(t, err)
	assert.True(t, book.Empty())
}

func TestBook_ReadWrite(t *testing.T) {
	c := sheet.NewCharacter("hero", "Hero", nil)
	book, err := Read(c)
	require.NoError(t, err)
	assert.True(t, book.Empty())

	book.Numeric.put("ac_bonus", "A", 2)
	book.Hooks.put("on_hit", "fire", "burn")
	require.NoError(t, Write(c, book))

	again, err := Read(c)
	require.NoError(t, err)
	delta, ok := again.Numeric.get("ac_bonus", "A")
	assert.True(t, ok)
	assert.Equal(t, 2.0, delta)
	assert.Equal(t, 1, again.Hooks.Keys("on_hit"))

	again.Numeric.drop("ac_bonus", "A")
	again.Hooks.drop("on_hit", "fire")
	require.NoError(t, Write(c, again))
	_, ok = c.Get(Attribute)
	assert.False(t, ok)
}
