// Package metrics exposes the Prometheus counters of NextCoach.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nextcoach_http_requests_total",
		Help: "HTTP requests by route pattern and status code",
	}, []string{"route", "code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nextcoach_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nextcoach_http_rate_limited_total",
		Help: "Requests rejected by the per-IP rate limiter",
	})

	// DialogTurnsTotal counts dialog turns by the state they started in and whether a pattern matched.
	DialogTurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nextcoach_dialog_turns_total",
		Help: "Dialog turns by starting state and outcome",
	}, []string{"state", "outcome"}) // outcome=advanced|fallback

	// DirectivesAppliedTotal counts side-effect directives applied after dialog turns.
	DirectivesAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nextcoach_directives_applied_total",
		Help: "Directives applied by kind and result",
	}, []string{"kind", "result"}) // result=ok|skipped|error

	outboxDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nextcoach_outbox_deliveries_total",
		Help: "Outbox delivery attempts by kind and outcome",
	}, []string{"kind", "outcome"}) // outcome=success|failure
)

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(route string, code int, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	httpRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func IncRateLimited() { rateLimitedTotal.Inc() }

// RecordDialogTurn records a turn that started in state.
func RecordDialogTurn(state string, advanced bool) {
	outcome := "fallback"
	if advanced {
		outcome = "advanced"
	}
	DialogTurnsTotal.WithLabelValues(state, outcome).Inc()
}

func RecordDirective(kind, result string) {
	DirectivesAppliedTotal.WithLabelValues(kind, result).Inc()
}

func RecordOutboxDelivery(kind string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	outboxDeliveriesTotal.WithLabelValues(kind, outcome).Inc()
}
