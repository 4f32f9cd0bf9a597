package app

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the gateway's Prometheus collectors. Callers that want a
// metric prefix wrap the registerer before passing it in.
type Metrics struct {
	reg prometheus.Registerer

	// RequestsTotal counts served requests by strategy.
	RequestsTotal *prometheus.CounterVec

	// SnapshotHits counts requests answered from a snapshot, by strategy.
	SnapshotHits *prometheus.CounterVec

	// SnapshotStores counts snapshots written, by namespace purpose.
	SnapshotStores *prometheus.CounterVec

	// FallbacksTotal counts navigation fallbacks, by tier.
	FallbacksTotal *prometheus.CounterVec

	// OfflineTotal counts synthesized offline responses.
	OfflineTotal prometheus.Counter

	// QueueEnqueued counts mutations captured into the queue.
	QueueEnqueued prometheus.Counter

	// QueueReplayed counts mutations acknowledged by the upstream.
	QueueReplayed prometheus.Counter

	// QueueFailed counts replay attempts the upstream rejected.
	QueueFailed prometheus.Counter

	// DrainsTotal counts drain runs.
	DrainsTotal prometheus.Counter
}

// NewMetrics creates the collector set and registers it when reg is
// non-nil. Collectors work unregistered, so tests can pass nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reg: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Requests served, labeled by strategy.",
		}, []string{"strategy"}),
		SnapshotHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapshot_hits_total",
			Help: "Requests answered from a stored snapshot, labeled by strategy.",
		}, []string{"strategy"}),
		SnapshotStores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapshot_stores_total",
			Help: "Snapshots written, labeled by namespace purpose.",
		}, []string{"purpose"}),
		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "navigation_fallbacks_total",
			Help: "Navigation fallbacks served, labeled by tier.",
		}, []string{"tier"}),
		OfflineTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "offline_responses_total",
			Help: "Synthesized offline responses.",
		}),
		QueueEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_enqueued_total",
			Help: "Mutations captured into the replay queue.",
		}),
		QueueReplayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_replayed_total",
			Help: "Queued mutations acknowledged by the upstream.",
		}),
		QueueFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_replay_failures_total",
			Help: "Replay attempts the upstream rejected or that failed in transit.",
		}),
		DrainsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "drains_total",
			Help: "Drain runs.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.RequestsTotal,
			m.SnapshotHits,
			m.SnapshotStores,
			m.FallbacksTotal,
			m.OfflineTotal,
			m.QueueEnqueued,
			m.QueueReplayed,
			m.QueueFailed,
			m.DrainsTotal,
		)
	}
	return m
}

// ObserveQueueDepth registers a gauge sourced from fn. No-op without a
// registerer.
func (m *Metrics) ObserveQueueDepth(fn func() float64) {
	if m.reg == nil {
		return
	}
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "queue_depth",
		Help: "Mutations currently queued for replay.",
	}, fn))
}
