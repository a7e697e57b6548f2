package uring

import (
	"github.com/brickingsoft/uring/pkg/capability"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultMetricsNamespace = "uring"

// metrics is nil safe: a loop built without WithMetrics carries a nil *metrics.
type metrics struct {
	submitted      *prometheus.CounterVec
	completed      *prometheus.CounterVec
	unregistered   prometheus.Counter
	stale          prometheus.Counter
	forcedFlushes  prometheus.Counter
	exhausted      prometheus.Counter
	detachedFailed prometheus.Counter
	orphans        prometheus.Counter
	polls          *prometheus.CounterVec
	inflight       prometheus.Gauge
	tasks          prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer, namespace string, loopID string) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}
	if namespace == "" {
		namespace = defaultMetricsNamespace
	}
	labels := prometheus.Labels{"loop": loopID}
	m := &metrics{
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "operations_submitted_total",
			Help:        "Operations encoded into submission slots, by operation",
			ConstLabels: labels,
		}, []string{"op"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "operations_completed_total",
			Help:        "Completions delivered to awaiting bridges, by operation and outcome",
			ConstLabels: labels,
		}, []string{"op", "outcome"}),
		unregistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "completions_unregistered_total",
			Help:        "Completions without a registration, such as detached closes",
			ConstLabels: labels,
		}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "completions_stale_total",
			Help:        "Completions whose handle no longer names a live bridge",
			ConstLabels: labels,
		}),
		forcedFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "forced_flushes_total",
			Help:        "Submissions forced by a full submission queue",
			ConstLabels: labels,
		}),
		exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "slot_exhaustions_total",
			Help:        "Operations refused because no submission slot was available",
			ConstLabels: labels,
		}),
		detachedFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "detached_task_failures_total",
			Help:        "Detached tasks that finished with a failure",
			ConstLabels: labels,
		}),
		orphans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "orphaned_handles_total",
			Help:        "Handles collected without an explicit close",
			ConstLabels: labels,
		}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "polls_total",
			Help:        "Poll cycles, by mode",
			ConstLabels: labels,
		}, []string{"mode"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "operations_inflight",
			Help:        "Operations submitted or pending whose completion has not been drained",
			ConstLabels: labels,
		}),
		tasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "tasks_live",
			Help:        "Started tasks that have not finished",
			ConstLabels: labels,
		}),
	}
	collectors := []prometheus.Collector{
		m.submitted, m.completed, m.unregistered, m.stale, m.forcedFlushes,
		m.exhausted, m.detachedFailed, m.orphans, m.polls, m.inflight, m.tasks,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) recordSubmitted(op capability.Op) {
	if m == nil {
		return
	}
	m.submitted.WithLabelValues(op.String()).Inc()
	m.inflight.Inc()
}

func (m *metrics) recordCompleted(op capability.Op, res int32) {
	if m == nil {
		return
	}
	outcome := "ok"
	if res < 0 {
		outcome = "error"
	}
	m.completed.WithLabelValues(op.String(), outcome).Inc()
	m.inflight.Dec()
}

func (m *metrics) recordUnregistered() {
	if m == nil {
		return
	}
	m.unregistered.Inc()
	m.inflight.Dec()
}

func (m *metrics) recordStale() {
	if m == nil {
		return
	}
	m.stale.Inc()
	m.inflight.Dec()
}

func (m *metrics) recordForcedFlush() {
	if m == nil {
		return
	}
	m.forcedFlushes.Inc()
}

func (m *metrics) recordExhausted() {
	if m == nil {
		return
	}
	m.exhausted.Inc()
}

func (m *metrics) recordPoll(wait bool) {
	if m == nil {
		return
	}
	if wait {
		m.polls.WithLabelValues("wait").Inc()
	} else {
		m.polls.WithLabelValues("nowait").Inc()
	}
}

func (m *metrics) recordTaskStarted() {
	if m == nil {
		return
	}
	m.tasks.Inc()
}

func (m *metrics) recordTaskFinished(detached bool, err error) {
	if m == nil {
		return
	}
	m.tasks.Dec()
	if detached && err != nil {
		m.detachedFailed.Inc()
	}
}

func (m *metrics) recordOrphan() {
	if m == nil {
		return
	}
	m.orphans.Inc()
}
