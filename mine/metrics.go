package mine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the counters a Runner updates.
type Metrics struct {
	// Repos counts repositories by result: "mined", "cached",
	// "acquire_failed" or "failed".
	Repos *prometheus.CounterVec

	Merges          prometheus.Counter
	DuplicateMerges prometheus.Counter
	SampledBranches prometheus.Counter
	Branches        prometheus.Counter

	RepoDuration prometheus.Histogram
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Repos: f.NewCounterVec(prometheus.CounterOpts{
			Name: "findmerges_repositories_total",
			Help: "Repositories processed, by result",
		}, []string{"result"}),
		Merges: f.NewCounter(prometheus.CounterOpts{
			Name: "findmerges_merges_total",
			Help: "Merge commits written",
		}),
		DuplicateMerges: f.NewCounter(prometheus.CounterOpts{
			Name: "findmerges_duplicate_merges_total",
			Help: "Merge commits skipped because an earlier branch reached them",
		}),
		SampledBranches: f.NewCounter(prometheus.CounterOpts{
			Name: "findmerges_sampled_branches_total",
			Help: "Branches with more merges than the per-branch cap",
		}),
		Branches: f.NewCounter(prometheus.CounterOpts{
			Name: "findmerges_branches_total",
			Help: "Branches with distinct tips that were mined",
		}),
		RepoDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "findmerges_repository_duration_seconds",
			Help:    "Time to acquire and mine one repository",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}
