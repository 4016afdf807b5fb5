package observers

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/anggasct/hfsm"
)

const (
	namespace = "hfsm"
	subsystem = "machine"
)

// MetricsObserver exports state machine notifications as Prometheus metrics.
// Every series carries a "machine" label so several machines can share one
// registry.
type MetricsObserver[ID comparable] struct {
	hfsm.BaseObserver[ID]
	machine string
	c       *MetricsCollectors
}

// MetricsCollectors groups the collectors used by MetricsObserver. Create
// them once per registry with NewMetricsCollectors and share them between
// observers of different machines.
type MetricsCollectors struct {
	Transitions    *prometheus.CounterVec
	Entries        *prometheus.CounterVec
	Timeouts       *prometheus.CounterVec
	TimeoutBlocked *prometheus.CounterVec
	Events         *prometheus.CounterVec
	Errors         *prometheus.CounterVec
	Active         *prometheus.GaugeVec
}

// NewMetricsCollectors registers the collectors on reg. It panics if they are
// already registered there, like promauto does.
func NewMetricsCollectors(reg prometheus.Registerer) *MetricsCollectors {
	factory := promauto.With(reg)
	return &MetricsCollectors{
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "transitions_total",
				Help:      "Total number of completed state changes",
			},
			[]string{"machine", "from", "to"},
		),
		Entries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "state_entries_total",
				Help:      "Total number of times a state was entered",
			},
			[]string{"machine", "state"},
		),
		Timeouts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "timeouts_total",
				Help:      "Total number of state timeouts that fired",
			},
			[]string{"machine", "state"},
		),
		TimeoutBlocked: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "timeout_blocked_total",
				Help:      "Total number of expired timeouts that could not jump, by reason",
			},
			[]string{"machine", "state", "reason"},
		),
		Events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "events_total",
				Help:      "Total number of drained events by whether they fired a transition",
			},
			[]string{"machine", "event", "handled"},
		),
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "errors_total",
				Help:      "Total number of reported errors",
			},
			[]string{"machine"},
		),
		Active: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "state_active",
				Help:      "Whether a state is part of the active hierarchy (0=inactive, 1=active)",
			},
			[]string{"machine", "state"},
		),
	}
}

// NewMetricsObserver creates an observer for one machine on shared collectors
func NewMetricsObserver[ID comparable](collectors *MetricsCollectors, machineName string) *MetricsObserver[ID] {
	return &MetricsObserver[ID]{machine: machineName, c: collectors}
}

func (o *MetricsObserver[ID]) OnStateChanged(from, to ID) {
	o.c.Transitions.WithLabelValues(o.machine, label(from), label(to)).Inc()
}

func (o *MetricsObserver[ID]) OnStateEnter(state ID) {
	o.c.Entries.WithLabelValues(o.machine, label(state)).Inc()
	o.c.Active.WithLabelValues(o.machine, label(state)).Set(1)
}

func (o *MetricsObserver[ID]) OnStateExit(state ID) {
	o.c.Active.WithLabelValues(o.machine, label(state)).Set(0)
}

func (o *MetricsObserver[ID]) OnStateTimeout(state ID) {
	o.c.Timeouts.WithLabelValues(o.machine, label(state)).Inc()
}

func (o *MetricsObserver[ID]) OnTimeoutBlocked(state ID, reason hfsm.BlockReason) {
	o.c.TimeoutBlocked.WithLabelValues(o.machine, label(state), reason.String()).Inc()
}

func (o *MetricsObserver[ID]) OnEventDispatched(event string, handled bool) {
	o.c.Events.WithLabelValues(o.machine, event, strconv.FormatBool(handled)).Inc()
}

func (o *MetricsObserver[ID]) OnError(err error) {
	o.c.Errors.WithLabelValues(o.machine).Inc()
}
