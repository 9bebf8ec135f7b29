package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNew(reg)

	m.ObserveProvider("perplexity", OutcomeSuccess, 10*time.Millisecond)
	m.ObserveProvider("perplexity", OutcomeError, time.Millisecond)
	m.ObserveProvider("duckduckgo", OutcomeSkipped, 0)
	m.IncToolCall("memory", nil)
	m.IncToolCall("memory", errors.New("x"))
	m.TaskStarted()
	m.TaskStarted()
	m.TaskFinished("completed")
	m.IncMemoryOp("insert")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.providerCalls.WithLabelValues("perplexity", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.providerCalls.WithLabelValues("duckduckgo", OutcomeSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("memory", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksRunning))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.tasksStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.memoryOps.WithLabelValues("insert")))
}

func TestMetrics_ReuseAlreadyRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := MustNew(reg)
	b := MustNew(reg)

	a.TaskStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(b.tasksStarted))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveProvider("p", OutcomeSuccess, 0)
		m.IncToolCall("t", nil)
		m.TaskStarted()
		m.TaskFinished("failed")
		m.IncMemoryOp("search")
	})
}
