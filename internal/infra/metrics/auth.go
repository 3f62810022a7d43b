package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(authAttemptsTotal) }

var authAttemptsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "nyx_auth_attempts_total",
		Help: "Sign-in attempts by method and resulting code.",
	},
	[]string{"method", "code"}, // method=password|signup|popup|signout, code=ok|<auth code>
)

func IncAuthAttempt(method, code string) {
	authAttemptsTotal.WithLabelValues(norm(method), norm(code)).Inc()
}
