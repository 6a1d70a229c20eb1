package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "diary", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "diary", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	DiariesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "diary", Name: "created_total", Help: "Number of diaries stored."},
	)
	SlugCollisions = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "diary", Name: "slug_collisions_total", Help: "Creates whose base slug was already taken."},
	)
	IndexConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "diary", Name: "index_conflicts_total", Help: "Index writes rejected because of a stale revision."},
	)
	Resolves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "diary", Name: "resolve_total", Help: "Slug lookups by result (found, not_found, inconsistent, error)."},
		[]string{"result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(DiariesCreated)
	reg.MustRegister(SlugCollisions)
	reg.MustRegister(IndexConflicts)
	reg.MustRegister(Resolves)
}
