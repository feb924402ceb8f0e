package scheduler

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Run results recorded in the runs counter.
const (
	resultSuccess = "success"
	resultFailure = "failure"
	resultTimeout = "timeout"
)

// Metrics holds the scheduler's collectors.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	running  *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg. Collectors that
// are already registered are reused, so several schedulers may share a registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stagehand",
			Name:      "task_runs_total",
			Help:      "Scheduled task runs by outcome.",
		}, []string{"task", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stagehand",
			Name:      "task_duration_seconds",
			Help:      "Duration of scheduled task runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"task"}),
		running: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "stagehand",
			Name:      "task_running",
			Help:      "1 while a task run is in progress.",
		}, []string{"task"}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.runs, err = register(reg, m.runs); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.running, err = register(reg, m.running); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}
