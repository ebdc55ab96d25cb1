// Package metrics records grading counters in a Prometheus registry and
// exports them in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "autograde"

type Recorder struct {
	registry     *prometheus.Registry
	trials       *prometheus.CounterVec
	trialSeconds *prometheus.HistogramVec
	bonuses      *prometheus.CounterVec
	score        *prometheus.GaugeVec
	maxScore     *prometheus.GaugeVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		trials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trials_total",
			Help:      "Trials graded, by problem, status and visibility.",
		}, []string{"problem", "status", "hidden"}),
		trialSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trial_duration_seconds",
			Help:      "Wall time spent grading one trial.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"problem"}),
		bonuses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bonuses_total",
			Help:      "Bonus criteria evaluated, by problem and status.",
		}, []string{"problem", "status"}),
		score: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_score",
			Help:      "Total score of the last report per problem.",
		}, []string{"problem"}),
		maxScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_max_score",
			Help:      "Maximum score of the last report per problem.",
		}, []string{"problem"}),
	}
	r.registry.MustRegister(r.trials, r.trialSeconds, r.bonuses, r.score, r.maxScore)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveTrial(problem string, passed, hidden bool, elapsed time.Duration) {
	r.trials.WithLabelValues(problem, status(passed), strconv.FormatBool(hidden)).Inc()
	r.trialSeconds.WithLabelValues(problem).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveBonus(problem string, awarded bool) {
	r.bonuses.WithLabelValues(problem, status(awarded)).Inc()
}

func (r *Recorder) ObserveReport(problem string, total, maxScore float64) {
	r.score.WithLabelValues(problem).Set(total)
	r.maxScore.WithLabelValues(problem).Set(maxScore)
}

// WriteTextfile atomically writes every metric to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

func status(ok bool) string {
	if ok {
		return "passed"
	}
	return "failed"
}
