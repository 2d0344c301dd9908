// Package metrics defines the custom Prometheus metrics of the identity
// gateway. It is the single source of truth for metric names, labels and help
// strings. Counters register with the default registry on import; the session
// gauge is registered once at startup with RegisterSessionGauge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// SignInsTotal counts sign-in attempts.
// Labels:
//   - method: "password", "provider" or "demo"
//   - result: "success", "failure", "invalid" (rejected before submission) or "locked"
var SignInsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sign_ins_total",
		Help:      "Total number of sign-in attempts, by method and result.",
	},
	[]string{"method", "result"},
)

// SignUpsTotal counts account creations.
// Labels:
//   - role: the requested profile role
//   - result: "success" or "failure"
var SignUpsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sign_ups_total",
		Help:      "Total number of sign-up attempts, by role and result.",
	},
	[]string{"role", "result"},
)

// SignOutsTotal counts sign-outs.
// Label:
//   - result: "success" or "backend_error" (the session was cleared anyway)
var SignOutsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sign_outs_total",
		Help:      "Total number of sign-outs, by backend result.",
	},
	[]string{"result"},
)

// LockoutsTotal counts login lockouts imposed after repeated failures.
var LockoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lockouts_total",
		Help:      "Total number of login lockouts imposed.",
	},
)

// PasswordResetsTotal counts password reset requests.
var PasswordResetsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_resets_total",
		Help:      "Total number of password reset requests accepted.",
	},
)

// ProfileUpdatesTotal counts profile mutations.
// Label:
//   - kind: "preferences" or "consent"
var ProfileUpdatesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_updates_total",
		Help:      "Total number of profile updates, by kind.",
	},
	[]string{"kind"},
)

// ── Transport metrics ─────────────────────────────────────────────────────────

// RateLimitedTotal counts requests rejected by the per-IP rate limiter.
// Label:
//   - route: the matched route path
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by the rate limiter, by route.",
	},
	[]string{"route"},
)

// RegisterSessionGauge exposes the number of mounted sessions as reported by count.
func RegisterSessionGauge(reg prometheus.Registerer, count func() int) error {
	return reg.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of browser sessions currently mounted.",
		},
		func() float64 { return float64(count()) },
	))
}
