// Package metrics exposes Prometheus instrumentation for simulations, the
// oracle, the design loop and dataset generation. A nil *Metrics is valid
// and records nothing.
package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "enzyflow"

type Metrics struct {
	gatherer prometheus.Gatherer

	simulations        *prometheus.CounterVec
	simulationDuration *prometheus.HistogramVec
	oracleEvaluations  prometheus.Counter
	invalidResidues    prometheus.Counter
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	designRounds       *prometheus.CounterVec
	surrogate          *prometheus.CounterVec
	datasetTasks       *prometheus.CounterVec
}

// New registers every collector on reg. The registry must also be a
// Gatherer for Handler to serve it.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		simulations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulations_total",
			Help:      "Simulation runs by model kind and outcome.",
		}, []string{"kind", "status"}),
		simulationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "simulation_duration_seconds",
			Help:      "Wall time of one simulation run.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"kind"}),
		oracleEvaluations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_evaluations_total",
			Help:      "Sequences mapped to kinetic parameters.",
		}),
		invalidResidues: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_invalid_residues_total",
			Help:      "Non-standard residues skipped by the oracle.",
		}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "measurement_cache_hits_total",
			Help:      "Oracle measurements served from cache.",
		}),
		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "measurement_cache_misses_total",
			Help:      "Oracle measurements computed after a cache miss.",
		}),
		designRounds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "design_rounds_total",
			Help:      "Active-learning rounds by outcome kind.",
		}, []string{"kind"}),
		surrogate: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "surrogate_predictions_total",
			Help:      "Surrogate predictions by outcome.",
		}, []string{"status"}),
		datasetTasks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_tasks_total",
			Help:      "Dataset generation tasks by outcome.",
		}, []string{"status"}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveSimulation(kind string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.simulations.WithLabelValues(kind, status(err)).Inc()
	m.simulationDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveOracle(invalidResidues int) {
	if m == nil {
		return
	}
	m.oracleEvaluations.Inc()
	m.invalidResidues.Add(float64(invalidResidues))
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}

func (m *Metrics) ObserveDesignRound(kind string) {
	if m == nil {
		return
	}
	m.designRounds.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObservePrediction(err error) {
	if m == nil {
		return
	}
	m.surrogate.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) ObserveDatasetTask(err error) {
	if m == nil {
		return
	}
	m.datasetTasks.WithLabelValues(status(err)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	if m == nil {
		return adaptor.HTTPHandler(promhttp.Handler())
	}
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}
