package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDefault_IsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestObserveRun(t *testing.T) {
	m := Default()
	beforeErr := testutil.ToFloat64(m.items.WithLabelValues("error"))
	beforeRuns := testutil.ToFloat64(m.runs.WithLabelValues("ok"))

	m.ObserveRun(RunSummary{Duration: time.Millisecond, LinesIgnored: 2, Items: 5, ErroredItems: 1, TotalToCollect: 80})

	assert.Equal(t, beforeErr+1, testutil.ToFloat64(m.items.WithLabelValues("error")))
	assert.Equal(t, beforeRuns+1, testutil.ToFloat64(m.runs.WithLabelValues("ok")))
}

func TestObserve_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRun(RunSummary{})
		m.ObserveFailure("configuration")
		m.ObserveRequest("/health", "200")
	})
}
