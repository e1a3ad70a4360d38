package observability

import (
	"context"

	"github.com/aretw0/pdasim/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by engine lifecycle events.
type Metrics struct {
	Generations  prometheus.Counter
	Configs      *prometheus.CounterVec
	FrontierSize prometheus.Histogram
	Halts        *prometheus.CounterVec
	StepsToHalt  prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Generations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdasim_generations_total",
			Help: "Total number of computed generations",
		}),
		Configs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdasim_configurations_total",
				Help: "Configurations by outcome within a generation",
			},
			[]string{"outcome"},
		),
		FrontierSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pdasim_frontier_size",
			Help:    "Number of active configurations after each generation",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		Halts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdasim_halts_total",
				Help: "Halted runs by phase and verdict",
			},
			[]string{"phase", "verdict"},
		),
		StepsToHalt: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pdasim_steps_to_halt",
			Help:    "Generations computed before a run halted",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
	for _, c := range []prometheus.Collector{m.Generations, m.Configs, m.FrontierSize, m.Halts, m.StepsToHalt} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnGeneration: func(ctx context.Context, e *domain.GenerationEvent) {
			m.Generations.Inc()
			m.Configs.WithLabelValues("created").Add(float64(e.Created))
			m.Configs.WithLabelValues("dropped").Add(float64(e.Dropped))
			m.Configs.WithLabelValues("pruned").Add(float64(e.Pruned))
			m.FrontierSize.Observe(float64(e.Frontier))
		},
		OnHalt: func(ctx context.Context, e *domain.HaltEvent) {
			m.Halts.WithLabelValues(string(e.Phase), string(e.Verdict)).Inc()
			m.StepsToHalt.Observe(float64(e.Step))
		},
	}
}
