package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Session metrics
	SessionsTotal   *prometheus.CounterVec
	SessionDuration prometheus.Histogram

	// Tool metrics
	ToolRunsTotal     *prometheus.CounterVec
	ToolDuration      *prometheus.HistogramVec
	ToolsNotFound     prometheus.Counter
	ToolsTimedOut     prometheus.Counter
	UnmappedExitCodes *prometheus.CounterVec

	// Alternative-resolution metrics
	LookupsTotal     *prometheus.CounterVec
	TierHits         *prometheus.CounterVec
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	CandidatesServed prometheus.Counter

	// Image finding metrics
	ImageFindingsTotal *prometheus.CounterVec
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the singleton metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			SessionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "iacscan_sessions_total",
					Help: "Total number of scan sessions by scan type and overall status",
				},
				[]string{"scan_type", "status"},
			),
			SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "iacscan_session_duration_seconds",
				Help:    "Duration of complete scan sessions in seconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17min
			}),

			ToolRunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "iacscan_tool_runs_total",
					Help: "Total number of tool invocations by tool and interpreted status",
				},
				[]string{"tool", "status"},
			),
			ToolDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "iacscan_tool_duration_seconds",
					Help:    "Duration of individual tool runs in seconds",
					Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.5min
				},
				[]string{"tool"},
			),
			ToolsNotFound: promauto.NewCounter(prometheus.CounterOpts{
				Name: "iacscan_tools_not_found_total",
				Help: "Total number of tool runs skipped because the executable was missing",
			}),
			ToolsTimedOut: promauto.NewCounter(prometheus.CounterOpts{
				Name: "iacscan_tools_timed_out_total",
				Help: "Total number of tool runs killed after exceeding their timeout",
			}),
			UnmappedExitCodes: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "iacscan_unmapped_exit_codes_total",
					Help: "Total number of exit codes absent from a tool's rule table",
				},
				[]string{"tool"},
			),

			LookupsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "iacscan_alternative_lookups_total",
					Help: "Total number of alternative lookups by outcome reason",
				},
				[]string{"reason"},
			),
			TierHits: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "iacscan_alternative_tier_hits_total",
					Help: "Total number of lookups satisfied by each source tier",
				},
				[]string{"tier"},
			),
			CacheHits: promauto.NewCounter(prometheus.CounterOpts{
				Name: "iacscan_alternative_cache_hits_total",
				Help: "Total number of alternative cache hits",
			}),
			CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
				Name: "iacscan_alternative_cache_misses_total",
				Help: "Total number of alternative cache misses (including expired entries)",
			}),
			CandidatesServed: promauto.NewCounter(prometheus.CounterOpts{
				Name: "iacscan_alternative_candidates_served_total",
				Help: "Total number of verified replacement candidates returned",
			}),

			ImageFindingsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "iacscan_image_findings_total",
					Help: "Total number of machine-image findings by category",
				},
				[]string{"category"}, // cve, outdated, placeholder, clean
			),
		}
	})
	return metricsInstance
}
