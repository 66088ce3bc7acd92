package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, c.Write(&out))
	return out.GetCounter().GetValue()
}

func TestMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveSimulation("single", 10*time.Millisecond, nil)
	m.ObserveSimulation("single", time.Millisecond, errors.New("boom"))
	m.ObserveOracle(2)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)
	m.ObserveDesignRound("New Best")
	m.ObservePrediction(nil)
	m.ObserveDatasetTask(errors.New("failed"))

	assert.Equal(t, 1.0, value(t, m.simulations.WithLabelValues("single", "ok")))
	assert.Equal(t, 1.0, value(t, m.simulations.WithLabelValues("single", "error")))
	assert.Equal(t, 2.0, value(t, m.invalidResidues))
	assert.Equal(t, 1.0, value(t, m.cacheHits))
	assert.Equal(t, 2.0, value(t, m.cacheMisses))
	assert.Equal(t, 1.0, value(t, m.designRounds.WithLabelValues("New Best")))
	assert.Equal(t, 1.0, value(t, m.datasetTasks.WithLabelValues("error")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSimulation("cascade", time.Second, nil)
		m.ObserveOracle(0)
		m.ObserveCache(true)
		m.ObserveDesignRound("Initial")
		m.ObservePrediction(nil)
		m.ObserveDatasetTask(nil)
	})
}
