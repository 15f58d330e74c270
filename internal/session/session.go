package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/relicforge/relic-server-go/internal/catalog"
	"github.com/relicforge/relic-server-go/internal/effects"
	"github.com/relicforge/relic-server-go/internal/effects/ledger"
	"github.com/relicforge/relic-server-go/internal/events"
	"github.com/relicforge/relic-server-go/internal/sheet"
	"github.com/relicforge/relic-server-go/internal/store"
	"go.uber.org/zap"
)

// Options configures Open.
type Options struct {
	Store  store.Store
	Bus    *events.EventBus
	Logger *zap.Logger
	// Catalog is registered in order; the first definition for an id wins.
	Catalog                []effects.Definition
	StrictAdapterDetection bool
	SheetType              string
}

// Session is the host around the effect engine: it owns the roster, the ledger adapter
// and the document store, and saves after every mutation. All calls are serialized.
type Session struct {
	mu     sync.Mutex
	store  store.Store
	bus    *events.EventBus
	logger *zap.Logger
	roster *sheet.Roster
	engine *effects.Engine
	now    func() time.Time
}

// Open loads the saved document (if any) and rebuilds the engine around it.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bus := opts.Bus
	if bus == nil {
		bus = events.NewEventBus()
	}

	registry := effects.NewRegistry()
	added, err := catalog.Register(registry, opts.Catalog, logger)
	if err != nil {
		return nil, fmt.Errorf("register catalog: %w", err)
	}

	roster := sheet.NewRoster()
	var adapters *effects.AdapterRegistry
	if opts.StrictAdapterDetection {
		adapters = effects.NewStrictAdapterRegistry(logger)
	} else {
		adapters = effects.NewAdapterRegistry(logger)
	}
	if err := adapters.Register(ledger.New(roster,
		ledger.WithLogger(logger),
		ledger.WithSheetType(opts.SheetType))); err != nil {
		return nil, err
	}
	engine := effects.NewEngine(registry, adapters, bus, logger)

	doc, err := opts.Store.Load(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		doc = store.NewDocument()
	case err != nil:
		return nil, fmt.Errorf("load session: %w", err)
	}
	roster.Restore(doc.Characters)
	engine.Restore(doc.Effects)

	logger.Info("session opened",
		zap.Int("effects", added),
		zap.Int("characters", roster.Len()),
		zap.Int("instances", len(doc.Effects.Instances)))

	return &Session{
		store:  opts.Store,
		bus:    bus,
		logger: logger,
		roster: roster,
		engine: engine,
		now:    time.Now,
	}, nil
}

// Bus returns the event bus the engine publishes on.
func (s *Session) Bus() *events.EventBus {
	return s.bus
}

// Apply grants effectID to targetID. The result is returned even when saving fails.
func (s *Session) Apply(ctx context.Context, effectID, targetID string) (effects.ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roster.Character(targetID); !ok {
		return effects.ApplyResult{}, fmt.Errorf("%w: %s", sheet.ErrCharacterNotFound, targetID)
	}
	res := s.engine.Apply(effectID, effects.ApplyOptions{TargetID: targetID})
	if !res.OK {
		return res, nil
	}
	return res, s.saveLocked(ctx)
}

// Remove revokes an effect instance.
func (s *Session) Remove(ctx context.Context, instanceID string) (effects.RemoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.engine.Remove(instanceID, effects.RemoveOptions{})
	if !res.OK && res.Reason != effects.ReasonNoAdapterRemove {
		return res, nil
	}
	return res, s.saveLocked(ctx)
}

// Wipe removes every effect instance on targetID.
func (s *Session) Wipe(ctx context.Context, targetID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roster.Character(targetID); !ok {
		return 0, fmt.Errorf("%w: %s", sheet.ErrCharacterNotFound, targetID)
	}
	n := s.engine.WipeCharacter(targetID)
	return n, s.saveLocked(ctx)
}

// Effects lists the active instances on targetID.
func (s *Session) Effects(targetID string) []effects.Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ActiveEffectsFor(targetID)
}

// AllEffects lists every active instance in application order.
func (s *Session) AllEffects() []effects.Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ListActiveEffects()
}

// Instance returns one active instance.
func (s *Session) Instance(instanceID string) (effects.Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Instance(instanceID)
}

// CreateCharacter adds a character to the roster.
func (s *Session) CreateCharacter(ctx context.Context, id, name string, attrs map[string]string) (sheet.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.roster.Create(id, name, attrs)
	if err != nil {
		return sheet.Snapshot{}, err
	}
	s.logger.Info("character created", zap.String("target_id", c.ID()))
	return c.Snapshot(), s.saveLocked(ctx)
}

// ImportCharacters creates every snapshot whose id is not taken yet and saves once.
// Existing ids are skipped and returned.
func (s *Session) ImportCharacters(ctx context.Context, snaps []sheet.Snapshot) (int, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := 0
	var skipped []string
	for _, snap := range snaps {
		if _, err := s.roster.Create(snap.ID, snap.Name, snap.Attributes); err != nil {
			if errors.Is(err, sheet.ErrCharacterExists) {
				skipped = append(skipped, snap.ID)
				continue
			}
			return created, skipped, err
		}
		created++
	}
	s.logger.Info("characters imported", zap.Int("created", created), zap.Int("skipped", len(skipped)))
	if created == 0 {
		return 0, skipped, nil
	}
	return created, skipped, s.saveLocked(ctx)
}

// Character returns a snapshot of one character.
func (s *Session) Character(id string) (sheet.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.roster.Character(id)
	if !ok {
		return sheet.Snapshot{}, false
	}
	return c.Snapshot(), true
}

// Characters returns every character sorted by id.
func (s *Session) Characters() []sheet.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.roster.IDs()
	out := make([]sheet.Snapshot, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.roster.Character(id); ok {
			out = append(out, c.Snapshot())
		}
	}
	return out
}

// Resources lists the resources defined on a character.
func (s *Session) Resources(targetID string) ([]sheet.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.roster.Character(targetID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", sheet.ErrCharacterNotFound, targetID)
	}
	return sheet.Resources(c), nil
}

// Spend removes amount from a resource, flooring at zero.
func (s *Session) Spend(ctx context.Context, targetID, resource string, amount int) (sheet.Resource, error) {
	return s.changeResource(ctx, "spend", targetID, resource, amount, sheet.Spend)
}

// Gain adds amount to a resource, capped at its max.
func (s *Session) Gain(ctx context.Context, targetID, resource string, amount int) (sheet.Resource, error) {
	return s.changeResource(ctx, "gain", targetID, resource, amount, sheet.Gain)
}

func (s *Session) changeResource(ctx context.Context, op, targetID, resource string, amount int,
	fn func(sheet.Record, string, int) (sheet.Resource, error)) (sheet.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.roster.Character(targetID)
	if !ok {
		return sheet.Resource{}, fmt.Errorf("%w: %s", sheet.ErrCharacterNotFound, targetID)
	}
	res, err := fn(c, resource, amount)
	if err != nil {
		return sheet.Resource{}, err
	}
	s.publishResource(op, targetID, res, amount)
	return res, s.saveLocked(ctx)
}

// Refresh resets every resource with the given cadence to its max.
func (s *Session) Refresh(ctx context.Context, targetID, cadence string) ([]sheet.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.roster.Character(targetID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", sheet.ErrCharacterNotFound, targetID)
	}
	refreshed := sheet.Refresh(c, cadence)
	for _, res := range refreshed {
		s.publishResource("refresh", targetID, res, res.Max)
	}
	if len(refreshed) == 0 {
		return refreshed, nil
	}
	return refreshed, s.saveLocked(ctx)
}

// Catalog returns the registered effect definitions in registration order.
func (s *Session) Catalog() []effects.Definition {
	return s.engine.Registry().List()
}

// Save writes the current document to the store.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

// Close releases the store.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Close()
}

func (s *Session) saveLocked(ctx context.Context) error {
	doc := store.NewDocument()
	doc.Effects = s.engine.State()
	doc.Characters = s.roster.Snapshot()
	doc.SavedAt = s.now().UTC()

	if err := s.store.Save(ctx, doc); err != nil {
		s.logger.Error("failed to save session", zap.Error(err))
		return fmt.Errorf("save session: %w", err)
	}
	evt := events.NewEventWithAmount(events.EventCharacterSaved, "", "", "", len(doc.Characters))
	evt.Timestamp = doc.SavedAt
	s.bus.Publish(evt)
	return nil
}

func (s *Session) publishResource(op, targetID string, res sheet.Resource, amount int) {
	evt := events.NewEventWithAmount(events.EventResourceChanged, targetID, "", "", amount)
	evt.Metadata["op"] = op
	evt.Metadata["resource"] = res.Name
	evt.Metadata["current"] = strconv.Itoa(res.Current)
	evt.Metadata["max"] = strconv.Itoa(res.Max)
	evt.Description = fmt.Sprintf("%s %s %d/%d", op, res.Name, res.Current, res.Max)
	s.bus.Publish(evt)
}
