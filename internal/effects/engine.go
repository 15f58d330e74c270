package effects

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/relicforge/relic-server-go/internal/events"
	"go.uber.org/zap"
)

// Reason explains why an engine call did not succeed.
type Reason string

const (
	ReasonMissingEffect   Reason = "missing-effect"
	ReasonNoTarget        Reason = "no-target"
	ReasonNoAdapter       Reason = "no-adapter"
	ReasonNoOperations    Reason = "no-operations"
	ReasonNoSuccess       Reason = "no-success"
	ReasonMissingInstance Reason = "missing-instance"
	ReasonNoAdapterRemove Reason = "no-adapter-remove"
)

var (
	ErrMissingEffect   = errors.New("effect is not registered")
	ErrNoTarget        = errors.New("target id is required")
	ErrNoAdapter       = errors.New("no adapter accepts the target")
	ErrNoOperations    = errors.New("effect has no patch operations")
	ErrNoSuccess       = errors.New("no patch applied")
	ErrMissingInstance = errors.New("effect instance not found")
	ErrNoAdapterRemove = errors.New("adapter unavailable for removal")
)

var reasonErrors = map[Reason]error{
	ReasonMissingEffect:   ErrMissingEffect,
	ReasonNoTarget:        ErrNoTarget,
	ReasonNoAdapter:       ErrNoAdapter,
	ReasonNoOperations:    ErrNoOperations,
	ReasonNoSuccess:       ErrNoSuccess,
	ReasonMissingInstance: ErrMissingInstance,
	ReasonNoAdapterRemove: ErrNoAdapterRemove,
}

// Err returns the sentinel error for the reason, or nil for an empty reason.
func (r Reason) Err() error {
	if r == "" {
		return nil
	}
	if err, ok := reasonErrors[r]; ok {
		return err
	}
	return fmt.Errorf("effects: %s", string(r))
}

// ApplyOptions controls a single Apply call.
type ApplyOptions struct {
	TargetID string
	// Adapter bypasses adapter lookup entirely.
	Adapter Adapter
	// AdapterName selects a registered adapter by name.
	AdapterName string
	// Definition is applied instead of the registry entry for the effect id.
	Definition *Definition
	// Source overrides the definition's source annotation on the instance.
	Source string
	// SkipPersist applies the patches without storing an instance.
	SkipPersist bool
}

// ApplyResult is the structured outcome of Apply.
type ApplyResult struct {
	OK         bool          `json:"ok"`
	Reason     Reason        `json:"reason,omitempty"`
	InstanceID string        `json:"instanceId,omitempty"`
	Applied    int           `json:"applied"`
	Results    []PatchResult `json:"results,omitempty"`
}

// Err returns nil on success and the reason's sentinel error otherwise.
func (r ApplyResult) Err() error {
	if r.OK {
		return nil
	}
	return r.Reason.Err()
}

// RemoveOptions controls a single Remove call.
type RemoveOptions struct {
	// Adapter replaces the adapter recorded on the instance.
	Adapter Adapter
}

// RemoveResult is the structured outcome of Remove.
type RemoveResult struct {
	OK      bool          `json:"ok"`
	Reason  Reason        `json:"reason,omitempty"`
	Removed int           `json:"removed"`
	Results []PatchResult `json:"results,omitempty"`
}

// Err returns nil on success and the reason's sentinel error otherwise.
func (r RemoveResult) Err() error {
	if r.OK {
		return nil
	}
	return r.Reason.Err()
}

// Engine applies and removes effects through adapters and tracks the resulting instances.
// It never touches target fields itself.
type Engine struct {
	mu       sync.RWMutex
	registry *Registry
	adapters *AdapterRegistry
	bus      *events.EventBus
	logger   *zap.Logger
	state    State

	now   func() time.Time
	newID func() string
}

// NewEngine wires an engine to its catalog and adapters. bus may be nil.
func NewEngine(registry *Registry, adapters *AdapterRegistry, bus *events.EventBus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if adapters == nil {
		adapters = NewAdapterRegistry(logger)
	}
	return &Engine{
		registry: registry,
		adapters: adapters,
		bus:      bus,
		logger:   logger,
		state:    NewState(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Registry returns the effect catalog the engine resolves ids against.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Adapters returns the adapter registry.
func (e *Engine) Adapters() *AdapterRegistry {
	return e.adapters
}

// Apply resolves effectID, runs every patch through an adapter and records an instance
// when at least one patch succeeded.
func (e *Engine) Apply(effectID string, opts ApplyOptions) ApplyResult {
	targetID := strings.TrimSpace(opts.TargetID)
	if targetID == "" {
		return e.rejectApply(effectID, targetID, ReasonNoTarget)
	}

	var def Definition
	if opts.Definition != nil {
		def = opts.Definition.Clone()
		if def.ID == "" {
			def.ID = effectID
		}
	} else {
		found, ok := e.registry.Get(effectID)
		if !ok {
			return e.rejectApply(effectID, targetID, ReasonMissingEffect)
		}
		def = found
	}

	adapter := e.resolveAdapter(targetID, opts)
	if adapter == nil {
		return e.rejectApply(def.ID, targetID, ReasonNoAdapter)
	}

	patches := Flatten(def.Patches)
	if len(patches) == 0 {
		return e.rejectApply(def.ID, targetID, ReasonNoOperations)
	}

	ref := EffectRef{ID: def.ID, Name: def.DisplayName(), Source: def.Source}
	if opts.Source != "" {
		ref.Source = opts.Source
	}

	results := make([]PatchResult, len(patches))
	applied := 0
	for i := range patches {
		patches[i] = patches[i].WithLedgerKey(def.ID)
		patch := patches[i]
		err := invoke("apply", func() error {
			return adapter.Apply(targetID, patch, ref)
		})
		results[i] = patchResult(i, patch, err)
		if err != nil {
			e.patchFailed("apply", def.ID, targetID, "", adapter.Name(), patch, err)
			continue
		}
		applied++
	}

	if applied == 0 {
		result := e.rejectApply(def.ID, targetID, ReasonNoSuccess)
		result.Results = results
		return result
	}

	result := ApplyResult{OK: true, Applied: applied, Results: results}
	if opts.SkipPersist {
		e.logger.Debug("applied effect without persisting",
			zap.String("effect_id", def.ID),
			zap.String("target_id", targetID),
			zap.Int("applied", applied))
		e.publish(events.EventEffectApplied, targetID, def.ID, "", adapter.Name(), applied, "")
		return result
	}

	inst := Instance{
		ID:         e.newID(),
		EffectID:   def.ID,
		EffectName: ref.Name,
		TargetID:   targetID,
		Adapter:    adapter.Name(),
		Patches:    patches,
		Results:    results,
		CreatedAt:  e.now(),
		Source:     ref.Source,
	}

	e.mu.Lock()
	e.state.Instances[inst.ID] = inst.Clone()
	e.state.Order = append(e.state.Order, inst.ID)
	e.state.Index[targetID] = append(e.state.Index[targetID], inst.ID)
	e.mu.Unlock()

	e.logger.Debug("applied effect",
		zap.String("effect_id", def.ID),
		zap.String("instance_id", inst.ID),
		zap.String("target_id", targetID),
		zap.String("adapter", adapter.Name()),
		zap.Int("applied", applied),
		zap.Int("patches", len(patches)))
	e.publish(events.EventEffectApplied, targetID, def.ID, inst.ID, adapter.Name(), applied, "")

	result.InstanceID = inst.ID
	return result
}

// Remove undoes the patches recorded on an instance and forgets it.
// Bookkeeping is cleared even when some patches fail to revert.
func (e *Engine) Remove(instanceID string, opts RemoveOptions) RemoveResult {
	e.mu.RLock()
	stored, ok := e.state.Instances[instanceID]
	e.mu.RUnlock()
	if !ok {
		e.publish(events.EventRemoveRejected, "", "", instanceID, "", 0, string(ReasonMissingInstance))
		return RemoveResult{Reason: ReasonMissingInstance}
	}
	inst := stored.Clone()

	adapter := opts.Adapter
	if adapter == nil {
		adapter, _ = e.adapters.AdapterByName(inst.Adapter)
	}
	var remover Remover
	if adapter != nil {
		remover, _ = adapter.(Remover)
	}
	if remover == nil {
		e.forget(inst)
		e.logger.Warn("dropped effect instance without reverting patches",
			zap.String("instance_id", inst.ID),
			zap.String("effect_id", inst.EffectID),
			zap.String("adapter", inst.Adapter))
		e.publish(events.EventRemoveRejected, inst.TargetID, inst.EffectID, inst.ID, inst.Adapter, 0, string(ReasonNoAdapterRemove))
		return RemoveResult{Reason: ReasonNoAdapterRemove}
	}

	ref := inst.Ref()
	results := make([]PatchResult, 0, len(inst.Patches))
	removed := 0
	for i, patch := range inst.Patches {
		if !inst.Applied(i) {
			continue
		}
		err := invoke("remove", func() error {
			return remover.Remove(inst.TargetID, patch, ref)
		})
		results = append(results, patchResult(i, patch, err))
		if err != nil {
			e.patchFailed("remove", inst.EffectID, inst.TargetID, inst.ID, adapter.Name(), patch, err)
			continue
		}
		removed++
	}

	e.forget(inst)

	e.logger.Debug("removed effect",
		zap.String("effect_id", inst.EffectID),
		zap.String("instance_id", inst.ID),
		zap.String("target_id", inst.TargetID),
		zap.Int("removed", removed))
	e.publish(events.EventEffectRemoved, inst.TargetID, inst.EffectID, inst.ID, adapter.Name(), removed, "")

	return RemoveResult{OK: true, Removed: removed, Results: results}
}

// WipeCharacter removes every instance indexed under targetID and returns how many
// instances were dropped.
func (e *Engine) WipeCharacter(targetID string) int {
	e.mu.RLock()
	ids := append([]string(nil), e.state.Index[targetID]...)
	e.mu.RUnlock()

	count := 0
	for _, id := range ids {
		res := e.Remove(id, RemoveOptions{})
		if res.OK || res.Reason == ReasonNoAdapterRemove {
			count++
		}
	}

	e.logger.Info("wiped character effects",
		zap.String("target_id", targetID),
		zap.Int("instances", count))
	e.publish(events.EventCharacterWiped, targetID, "", "", "", count, "")
	return count
}

// ActiveEffectsFor returns copies of the instances on targetID in application order.
func (e *Engine) ActiveEffectsFor(targetID string) []Instance {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := e.state.Index[targetID]
	out := make([]Instance, 0, len(ids))
	for _, id := range ids {
		if inst, ok := e.state.Instances[id]; ok {
			out = append(out, inst.Clone())
		}
	}
	return out
}

// ListActiveEffects returns copies of every instance in application order.
func (e *Engine) ListActiveEffects() []Instance {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Instance, 0, len(e.state.Order))
	for _, id := range e.state.Order {
		if inst, ok := e.state.Instances[id]; ok {
			out = append(out, inst.Clone())
		}
	}
	return out
}

// Instance returns a copy of a stored instance.
func (e *Engine) Instance(id string) (Instance, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	inst, ok := e.state.Instances[id]
	if !ok {
		return Instance{}, false
	}
	return inst.Clone(), true
}

// State returns a copy of the engine document for persistence.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Clone()
}

// Restore replaces the engine document. Order and index entries that reference
// unknown instances are dropped, and instances missing from the order are appended.
func (e *Engine) Restore(state State) {
	restored := NewState()
	for id, inst := range state.Instances {
		inst.ID = id
		restored.Instances[id] = inst.Clone()
	}

	seen := make(map[string]bool, len(restored.Instances))
	for _, id := range state.Order {
		if _, ok := restored.Instances[id]; ok && !seen[id] {
			restored.Order = append(restored.Order, id)
			seen[id] = true
		}
	}
	for id := range restored.Instances {
		if !seen[id] {
			restored.Order = append(restored.Order, id)
			seen[id] = true
		}
	}
	for _, id := range restored.Order {
		target := restored.Instances[id].TargetID
		restored.Index[target] = append(restored.Index[target], id)
	}

	e.mu.Lock()
	e.state = restored
	e.mu.Unlock()

	e.logger.Info("restored effect state", zap.Int("instances", len(restored.Order)))
}

func (e *Engine) resolveAdapter(targetID string, opts ApplyOptions) Adapter {
	if opts.Adapter != nil {
		return opts.Adapter
	}
	if opts.AdapterName != "" {
		adapter, _ := e.adapters.AdapterByName(opts.AdapterName)
		return adapter
	}
	return e.adapters.FindAdapterFor(targetID)
}

func (e *Engine) forget(inst Instance) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.state.Instances, inst.ID)
	e.state.Order = removeID(e.state.Order, inst.ID)
	ids := removeID(e.state.Index[inst.TargetID], inst.ID)
	if len(ids) == 0 {
		delete(e.state.Index, inst.TargetID)
	} else {
		e.state.Index[inst.TargetID] = ids
	}
}

func (e *Engine) rejectApply(effectID, targetID string, reason Reason) ApplyResult {
	e.logger.Debug("effect apply rejected",
		zap.String("effect_id", effectID),
		zap.String("target_id", targetID),
		zap.String("reason", string(reason)))
	e.publish(events.EventApplyRejected, targetID, effectID, "", "", 0, string(reason))
	return ApplyResult{Reason: reason}
}

func (e *Engine) patchFailed(op, effectID, targetID, instanceID, adapter string, patch Patch, err error) {
	e.logger.Warn("effect patch failed",
		zap.String("op", op),
		zap.String("effect_id", effectID),
		zap.String("target_id", targetID),
		zap.String("adapter", adapter),
		zap.String("kind", patch.Kind.String()),
		zap.String("field", patch.Field),
		zap.String("ledger_key", patch.LedgerKey),
		zap.Error(err))

	evt := events.NewEvent(events.EventPatchFailed, targetID, effectID, instanceID)
	evt.Adapter = adapter
	evt.Reason = err.Error()
	evt.Metadata["op"] = op
	evt.Metadata["kind"] = patch.Kind.String()
	evt.Metadata["field"] = patch.Field
	e.bus.Publish(evt)
}

func (e *Engine) publish(eventType events.EventType, targetID, effectID, instanceID, adapter string, amount int, reason string) {
	if e.bus == nil {
		return
	}
	evt := events.NewEventWithAmount(eventType, targetID, effectID, instanceID, amount)
	evt.Adapter = adapter
	evt.Reason = reason
	e.bus.Publish(evt)
}

func invoke(op string, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s panicked: %v", op, rec)
		}
	}()
	return fn()
}

func patchResult(index int, patch Patch, err error) PatchResult {
	res := PatchResult{Index: index, Kind: patch.Kind, Field: patch.Field, OK: err == nil}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}
