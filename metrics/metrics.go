// Package metrics exposes the Prometheus collectors reporting task, tool,
// provider and memory activity. All methods are safe on a nil *Metrics so
// components can treat metrics as optional.
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agenttask"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Metrics bundles the collectors.
type Metrics struct {
	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	toolCalls        *prometheus.CounterVec
	tasksStarted     prometheus.Counter
	tasksFinished    *prometheus.CounterVec
	tasksRunning     prometheus.Gauge
	memoryOps        *prometheus.CounterVec
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the instance registered with the global Prometheus
// registry. Collectors are created once so repeated construction of servers
// in one process does not panic on duplicate registration.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew constructs Metrics registered with reg. Collectors that are
// already registered are reused; any other registration error panics.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Knowledge provider queries by outcome.",
		}, []string{"provider", "outcome"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_duration_seconds",
			Help:      "Latency of knowledge provider queries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool invocations by outcome.",
		}, []string{"tool", "outcome"}),
		tasksStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_started_total",
			Help:      "Agent tasks registered.",
		}),
		tasksFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_finished_total",
			Help:      "Agent tasks finished by terminal status.",
		}, []string{"status"}),
		tasksRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_running",
			Help:      "Agent tasks currently registered.",
		}),
		memoryOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_operations_total",
			Help:      "Memory store operations by kind.",
		}, []string{"operation"}),
	}

	m.providerCalls = register(reg, m.providerCalls)
	m.providerDuration = register(reg, m.providerDuration)
	m.toolCalls = register(reg, m.toolCalls)
	m.tasksStarted = register(reg, m.tasksStarted)
	m.tasksFinished = register(reg, m.tasksFinished)
	m.tasksRunning = register(reg, m.tasksRunning)
	m.memoryOps = register(reg, m.memoryOps)

	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveProvider records one knowledge provider query.
func (m *Metrics) ObserveProvider(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(provider, outcome).Inc()
	if outcome != OutcomeSkipped {
		m.providerDuration.WithLabelValues(provider).Observe(d.Seconds())
	}
}

// IncToolCall records one tool invocation.
func (m *Metrics) IncToolCall(tool string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
}

// TaskStarted records a newly registered task.
func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.tasksStarted.Inc()
	m.tasksRunning.Inc()
}

// TaskFinished records the terminal status of a deregistered task.
func (m *Metrics) TaskFinished(status string) {
	if m == nil {
		return
	}
	m.tasksFinished.WithLabelValues(status).Inc()
	m.tasksRunning.Dec()
}

// IncMemoryOp records a memory operation (search, insert, forget, delete).
func (m *Metrics) IncMemoryOp(op string) {
	if m == nil {
		return
	}
	m.memoryOps.WithLabelValues(op).Inc()
}
