// Package metrics counts what a ranking run did and exports it in the
// Prometheus text format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sinclairtarget/coderank/internal/concurrent"
	"github.com/sinclairtarget/coderank/internal/tally"
)

const namespace = "coderank"

// Label values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
	KindAdded    = "added"
	KindRemoved  = "removed"
)

type Recorder struct {
	registry     *prometheus.Registry
	repositories *prometheus.CounterVec
	commits      *prometheus.CounterVec
	lines        *prometheus.CounterVec
	duration     prometheus.Histogram
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		repositories: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "repositories_total",
				Help:      "Repositories processed, by status.",
			},
			[]string{"status"},
		),
		commits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commits_total",
				Help:      "Commits seen, by outcome.",
			},
			[]string{"outcome"},
		),
		lines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lines_total",
				Help:      "Lines of counted commits, by kind.",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "repository_duration_seconds",
			Help:      "Time spent syncing and walking one repository.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
		}),
	}

	r.registry.MustRegister(r.repositories, r.commits, r.lines, r.duration)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Records the outcome of one repository.
func (r *Recorder) ObserveResult(result concurrent.Result) {
	if result.Failed() {
		r.repositories.WithLabelValues(StatusFailed).Inc()
	} else {
		r.repositories.WithLabelValues(StatusOK).Inc()
	}

	c := result.Counts
	r.commits.WithLabelValues(tally.Counted.String()).Add(float64(c.Counted))
	r.commits.WithLabelValues(tally.Duplicate.String()).Add(float64(c.Duplicate))
	r.commits.WithLabelValues(tally.Oversized.String()).Add(float64(c.Oversized))

	r.lines.WithLabelValues(KindAdded).Add(float64(c.Lines.Additions))
	r.lines.WithLabelValues(KindRemoved).Add(float64(c.Lines.Deletions))

	r.duration.Observe(result.Duration.Seconds())
}

func (r *Recorder) ObserveResults(results []concurrent.Result) {
	for _, result := range results {
		r.ObserveResult(result)
	}
}

// Writes the registry to path in the Prometheus text format, e.g. for the
// node exporter's textfile collector. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	err := prometheus.WriteToTextfile(path, r.registry)
	if err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}
