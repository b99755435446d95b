// Package metrics declares the Prometheus collectors of the media lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AdmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ephemeral_admissions_total",
		Help: "Uploads seen by the admission validator, by outcome and reason.",
	}, []string{"outcome", "reason"})

	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ephemeral_transitions_total",
		Help: "Committed media record transitions.",
	}, []string{"to", "trigger"})

	TransitionConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ephemeral_transition_conflicts_total",
		Help: "Transitions lost to a concurrent writer and resolved as no-ops.",
	}, []string{"to"})

	SweepExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ephemeral_sweep_expired_total",
		Help: "Records expired by the sweep.",
	})

	SweepFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ephemeral_sweep_failures_total",
		Help: "Per-record sweep failures.",
	})

	SweepBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ephemeral_sweep_batch_size",
		Help:    "Records found due per sweep batch.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	OutboxRelayedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ephemeral_outbox_relayed_total",
		Help: "Outbox events handled by the relay, by event name and result.",
	}, []string{"event", "result"})

	FanOutDeliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ephemeral_fanout_delivered_total",
		Help: "Frames handed to delivery handles.",
	}, []string{"kind"})

	FanOutDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ephemeral_fanout_dropped_total",
		Help: "Frames dropped because the handle was gone or full.",
	}, []string{"kind"})

	ConnectedParticipants = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ephemeral_connected_participants",
		Help: "Participants with a registered delivery handle.",
	})

	ConsumerLag = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ephemeral_consumer_lag",
		Help: "Messages behind the partition high water mark, as of the last fetch.",
	}, []string{"topic"})
)
