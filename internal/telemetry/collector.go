// Package telemetry exports per-tick physics stats as Prometheus metrics.
package telemetry

import (
	"collide3d/internal/physics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements physics.Observer. All metrics have bounded
// cardinality: no per-entity labels.
type Collector struct {
	tickDuration   prometheus.Histogram
	colliders      prometheus.Gauge
	candidatePairs prometheus.Gauge
	contacts       prometheus.Gauge
	treeHeight     prometheus.Gauge
	treeNodes      prometheus.Gauge
	impulses       prometheus.Counter
	events         prometheus.Counter
	narrowFailures prometheus.Counter
}

// NewCollector registers the physics metrics on reg. Registering twice on the
// same registry panics, as promauto does.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "physics_tick_duration_seconds",
			Help:    "Time spent in one physics step",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.0166, 0.033},
		}),
		colliders: f.NewGauge(prometheus.GaugeOpts{
			Name: "physics_colliders",
			Help: "Colliders in the broad phase",
		}),
		candidatePairs: f.NewGauge(prometheus.GaugeOpts{
			Name: "physics_candidate_pairs",
			Help: "Broad-phase pairs in the last tick",
		}),
		contacts: f.NewGauge(prometheus.GaugeOpts{
			Name: "physics_contacts",
			Help: "Contacts generated in the last tick",
		}),
		treeHeight: f.NewGauge(prometheus.GaugeOpts{
			Name: "physics_tree_height",
			Help: "Height of the dynamic AABB tree",
		}),
		treeNodes: f.NewGauge(prometheus.GaugeOpts{
			Name: "physics_tree_nodes",
			Help: "Allocated nodes in the dynamic AABB tree",
		}),
		impulses: f.NewCounter(prometheus.CounterOpts{
			Name: "physics_impulses_total",
			Help: "Velocity changes applied by the resolver",
		}),
		events: f.NewCounter(prometheus.CounterOpts{
			Name: "physics_contact_events_total",
			Help: "Hit, stay and exit events dispatched",
		}),
		narrowFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "physics_narrow_failures_total",
			Help: "Pairs skipped because GJK/EPA failed",
		}),
	}
}

func (c *Collector) ObserveTick(s physics.TickStats) {
	c.tickDuration.Observe(s.Duration.Seconds())
	c.colliders.Set(float64(s.Colliders))
	c.candidatePairs.Set(float64(s.CandidatePairs))
	c.contacts.Set(float64(s.Contacts))
	c.treeHeight.Set(float64(s.TreeHeight))
	c.treeNodes.Set(float64(s.TreeNodes))
	c.impulses.Add(float64(s.Impulses))
	c.events.Add(float64(s.Events))
	c.narrowFailures.Add(float64(s.NarrowFailures))
}

var _ physics.Observer = (*Collector)(nil)
