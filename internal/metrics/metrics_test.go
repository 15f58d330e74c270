package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/relicforge/relic-server-go/internal/events"
	"github.com/stretchr/testify/assert"
)

func TestCollector_CountsBusEvents(t *testing.T) {
	c := New(prometheus.NewRegistry())
	bus := events.NewEventBus()
	c.Attach(bus)
	c.SetActive(1)

	bus.Publish(events.Event{Type: events.EventEffectApplied, Adapter: "ledger", InstanceID: "a"})
	bus.Publish(events.Event{Type: events.EventEffectApplied, Adapter: "ledger", InstanceID: "b"})
	bus.Publish(events.Event{Type: events.EventEffectApplied, Adapter: "ledger"})
	bus.Publish(events.Event{Type: events.EventEffectRemoved, Adapter: "ledger", InstanceID: "a"})
	bus.Publish(events.Event{Type: events.EventApplyRejected, Reason: "missing-effect"})
	bus.Publish(events.Event{Type: events.EventRemoveRejected, Reason: "missing-instance"})
	bus.Publish(events.Event{Type: events.EventRemoveRejected, Reason: "no-adapter-remove"})
	bus.Publish(events.Event{Type: events.EventPatchFailed, Metadata: map[string]string{"op": "apply", "kind": "add-numeric"}})
	bus.Publish(events.Event{Type: events.EventCharacterWiped})
	bus.Publish(events.Event{Type: events.EventResourceChanged, Metadata: map[string]string{"op": "spend"}})
	bus.Publish(events.Event{Type: events.EventCharacterSaved})

	assert.Equal(t, 3.0, testutil.ToFloat64(c.applied.WithLabelValues("ledger")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.removed.WithLabelValues("ledger")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rejected.WithLabelValues("apply", "missing-effect")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rejected.WithLabelValues("remove", "missing-instance")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.patchFailures.WithLabelValues("apply", "add-numeric")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.wipes))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.resourceChanges.WithLabelValues("spend")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.saves))
	// 1 restored + 2 stored - 1 removed - 1 dropped
	assert.Equal(t, 1.0, testutil.ToFloat64(c.active))
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
