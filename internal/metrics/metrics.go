package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Quote resolution metrics
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fastswap_quote_requests_total",
			Help: "Total number of quote resolution requests",
		},
		[]string{"trade_type", "status"},
	)

	QuoteResolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fastswap_quote_resolution_duration_seconds",
			Help:    "End-to-end quote resolution duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"trade_type"},
	)

	SupersededRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fastswap_superseded_requests_total",
		Help: "Total number of requests cancelled by a newer request",
	})

	DebouncedInputs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fastswap_debounced_inputs_total",
		Help: "Total number of input changes collapsed by debouncing",
	})

	// Fee-tier race metrics
	TierQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fastswap_tier_queries_total",
			Help: "Total number of per-tier quoter simulations",
		},
		[]string{"fee_tier", "outcome"},
	)

	TierRaceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fastswap_tier_race_duration_seconds",
		Help:    "Fee-tier race duration in seconds (all tiers settled)",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	SpotProbeFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fastswap_spot_probe_fallbacks_total",
		Help: "Total number of spot probes that failed and fell back to the size-based impact estimate",
	})

	RPCFailovers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fastswap_rpc_failovers_total",
		Help: "Total number of calls that failed over to the fallback RPC endpoint",
	})

	// Session metrics
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fastswap_active_quote_sessions",
		Help: "Number of live quote sessions",
	})

	RefreshCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fastswap_refresh_cycles_total",
		Help: "Total number of countdown-driven quote refreshes",
	})

	SideSwitches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fastswap_side_switches_total",
		Help: "Total number of side switches served from a provisional snapshot",
	})

	// Token catalog metrics
	CatalogTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fastswap_catalog_tokens",
		Help: "Number of tokens in the catalog",
	})

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fastswap_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fastswap_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
