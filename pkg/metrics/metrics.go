package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "clubsite", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "clubsite", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	AuthDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "clubsite", Name: "auth_decisions_total", Help: "Auth gate outcomes by gate (authenticate|admin) and outcome."},
		[]string{"gate", "outcome"},
	)
	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "clubsite", Name: "logins_total", Help: "Sign-in attempts by method (google|password) and result."},
		[]string{"method", "result"},
	)
	ContentMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "clubsite", Name: "content_mutations_total", Help: "Admin content writes by collection and operation."},
		[]string{"collection", "op"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(AuthDecisions)
	reg.MustRegister(Logins)
	reg.MustRegister(ContentMutations)
}
