package sandbox

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Values of the result label on podrun_runs_total
const (
	resultOutput     = "output"
	resultSilent     = "silent"
	resultSpawnError = "spawn_error"
)

// Metrics holds the Prometheus collectors updated by the Launcher.
// A nil *Metrics records nothing.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "podrun",
			Name:      "runs_total",
			Help:      "Container runs by runtime and result.",
		}, []string{"runtime", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "podrun",
			Name:      "run_duration_seconds",
			Help:      "Wall time from engine spawn to exit.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"runtime"}),
	}

	for _, c := range []prometheus.Collector{m.runs, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observe(runtime RuntimeID, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(string(runtime), result).Inc()
	m.duration.WithLabelValues(string(runtime)).Observe(elapsed.Seconds())
}
