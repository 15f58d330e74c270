package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/relicforge/relic-server-go/internal/events"
)

// Collector turns effect events into Prometheus series.
type Collector struct {
	applied         *prometheus.CounterVec
	removed         *prometheus.CounterVec
	rejected        *prometheus.CounterVec
	patchFailures   *prometheus.CounterVec
	wipes           prometheus.Counter
	resourceChanges *prometheus.CounterVec
	saves           prometheus.Counter
	active          prometheus.Gauge
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer to expose
// them on the default /metrics handler.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		applied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relic_effects_applied_total",
			Help: "Effect applications that stored an instance",
		}, []string{"adapter"}),
		removed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relic_effects_removed_total",
			Help: "Effect instances removed",
		}, []string{"adapter"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relic_effects_rejected_total",
			Help: "Apply and remove calls that failed before touching a target",
		}, []string{"op", "reason"}),
		patchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relic_effect_patch_failures_total",
			Help: "Individual patches an adapter failed to apply or remove",
		}, []string{"op", "kind"}),
		wipes: factory.NewCounter(prometheus.CounterOpts{
			Name: "relic_character_wipes_total",
			Help: "Character wipes",
		}),
		resourceChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relic_resource_changes_total",
			Help: "Resource spend, gain and refresh operations",
		}, []string{"op"}),
		saves: factory.NewCounter(prometheus.CounterOpts{
			Name: "relic_session_saves_total",
			Help: "Session documents written to the store",
		}),
		active: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relic_effect_instances_active",
			Help: "Effect instances currently tracked by the engine",
		}),
	}
}

// Attach subscribes the collector to bus and returns the subscription handle.
func (c *Collector) Attach(bus *events.EventBus) int {
	return bus.Subscribe(c.Observe)
}

// Observe updates the series for a single event.
func (c *Collector) Observe(evt events.Event) {
	switch evt.Type {
	case events.EventEffectApplied:
		c.applied.WithLabelValues(evt.Adapter).Inc()
		if evt.InstanceID != "" {
			c.active.Inc()
		}
	case events.EventEffectRemoved:
		c.removed.WithLabelValues(evt.Adapter).Inc()
		c.active.Dec()
	case events.EventApplyRejected:
		c.rejected.WithLabelValues("apply", evt.Reason).Inc()
	case events.EventRemoveRejected:
		c.rejected.WithLabelValues("remove", evt.Reason).Inc()
		// instances dropped without a remover are still gone
		if evt.Reason == "no-adapter-remove" {
			c.active.Dec()
		}
	case events.EventPatchFailed:
		c.patchFailures.WithLabelValues(evt.Metadata["op"], evt.Metadata["kind"]).Inc()
	case events.EventCharacterWiped:
		c.wipes.Inc()
	case events.EventResourceChanged:
		c.resourceChanges.WithLabelValues(evt.Metadata["op"]).Inc()
	case events.EventCharacterSaved:
		c.saves.Inc()
	}
}

// SetActive resets the active-instance gauge, e.g. after a document is restored.
func (c *Collector) SetActive(n int) {
	c.active.Set(float64(n))
}
