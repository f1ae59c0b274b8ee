package observability

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type engineMetrics struct {
	operations *prometheus.CounterVec
	passUps    *prometheus.CounterVec
	recycles   *prometheus.CounterVec
	freezes    *prometheus.CounterVec
	adminCred  *prometheus.CounterVec
	selfSeeds  *prometheus.CounterVec
}

type apiMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	engineMetricsOnce sync.Once
	engineRegistry    *engineMetrics

	apiMetricsOnce sync.Once
	apiRegistry    *apiMetrics
)

// Engine returns the lazily-initialised registry tracking matrix engine
// activity. Counters are segmented by program so the two matrices can be
// dashboarded side by side.
func Engine() *engineMetrics {
	engineMetricsOnce.Do(func() {
		engineRegistry = &engineMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nexonext",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Total engine operations segmented by operation, program, and outcome.",
			}, []string{"operation", "program", "outcome"}),
			passUps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nexonext",
				Subsystem: "engine",
				Name:      "pass_ups_total",
				Help:      "Count of actions forwarded past an ineligible upline, by program.",
			}, []string{"program"}),
			recycles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nexonext",
				Subsystem: "engine",
				Name:      "recycles_total",
				Help:      "Count of matrix level recycles, by program.",
			}, []string{"program"}),
			freezes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nexonext",
				Subsystem: "engine",
				Name:      "freezes_total",
				Help:      "Count of levels frozen after a repeat recycle, by program.",
			}, []string{"program"}),
			adminCred: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nexonext",
				Subsystem: "engine",
				Name:      "admin_credits_total",
				Help:      "Count of payouts routed to the admin ledger, by program and reason.",
			}, []string{"program", "reason"}),
			selfSeeds: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nexonext",
				Subsystem: "engine",
				Name:      "self_seeds_total",
				Help:      "Count of hybrid-slot placements seeded into the buyer's own matrix.",
			}, []string{"program"}),
		}
		prometheus.MustRegister(
			engineRegistry.operations,
			engineRegistry.passUps,
			engineRegistry.recycles,
			engineRegistry.freezes,
			engineRegistry.adminCred,
			engineRegistry.selfSeeds,
		)
	})
	return engineRegistry
}

// ObserveOperation records the outcome of one engine operation.
func (m *engineMetrics) ObserveOperation(operation, program string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(labelOrUnknown(operation), labelOrUnknown(program), outcome).Inc()
}

// RecordPassUp increments the pass-up counter for a program.
func (m *engineMetrics) RecordPassUp(program string) {
	if m == nil {
		return
	}
	m.passUps.WithLabelValues(labelOrUnknown(program)).Inc()
}

// RecordRecycle increments the recycle counter for a program.
func (m *engineMetrics) RecordRecycle(program string) {
	if m == nil {
		return
	}
	m.recycles.WithLabelValues(labelOrUnknown(program)).Inc()
}

// RecordFreeze increments the freeze counter for a program.
func (m *engineMetrics) RecordFreeze(program string) {
	if m == nil {
		return
	}
	m.freezes.WithLabelValues(labelOrUnknown(program)).Inc()
}

// RecordAdminCredit counts a payout that fell through to the admin ledger.
// Reasons should be stable strings such as "no_referrer" or "chain_exhausted".
func (m *engineMetrics) RecordAdminCredit(program, reason string) {
	if m == nil {
		return
	}
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = "unspecified"
	}
	m.adminCred.WithLabelValues(labelOrUnknown(program), reason).Inc()
}

// RecordSelfSeed counts a hybrid-slot self placement.
func (m *engineMetrics) RecordSelfSeed(program string) {
	if m == nil {
		return
	}
	m.selfSeeds.WithLabelValues(labelOrUnknown(program)).Inc()
}

// API returns the lazily-initialised registry tracking the HTTP surface.
func API() *apiMetrics {
	apiMetricsOnce.Do(func() {
		apiRegistry = &apiMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nexonext",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total HTTP requests segmented by route and outcome.",
			}, []string{"route", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nexonext",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Total HTTP errors segmented by route and status code.",
			}, []string{"route", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "nexonext",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for HTTP handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nexonext",
				Subsystem: "api",
				Name:      "throttles_total",
				Help:      "Count of requests rejected by the rate limiter.",
			}, []string{"route"}),
		}
		prometheus.MustRegister(
			apiRegistry.requests,
			apiRegistry.errors,
			apiRegistry.latency,
			apiRegistry.throttles,
		)
	})
	return apiRegistry
}

// Observe records the outcome of one HTTP request. The status code should be
// the one ultimately written to the response writer.
func (m *apiMetrics) Observe(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	route = labelOrUnknown(route)
	outcome := "success"
	if status >= 400 {
		outcome = "error"
		m.errors.WithLabelValues(route, fmt.Sprintf("%d", status)).Inc()
	}
	m.requests.WithLabelValues(route, outcome).Inc()
	m.latency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordThrottle counts a request turned away by the rate limiter.
func (m *apiMetrics) RecordThrottle(route string) {
	if m == nil {
		return
	}
	m.throttles.WithLabelValues(labelOrUnknown(route)).Inc()
}

func labelOrUnknown(value string) string {
	if value = strings.TrimSpace(value); value == "" {
		return "unknown"
	}
	return value
}
