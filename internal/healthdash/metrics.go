package healthdash

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

// Prometheus gauges mirroring the fields of Report, registered eagerly
// (harmless if nothing ever scrapes /metrics), matching the plain
// prometheus.MustRegister idiom used for gauges elsewhere in the pack.
var (
	healthScoreGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_gate_health_score",
		Help: "Composite 0-100 gate pipeline health score.",
	})
	gateAvgDurationGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sentinel_gate_duration_avg_ms",
		Help: "Average gate duration in milliseconds over the rolling window.",
	}, []string{"gate"})
	gateP95DurationGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sentinel_gate_duration_p95_ms",
		Help: "P95 gate duration in milliseconds over the rolling window.",
	}, []string{"gate"})
	circuitBreakerStateGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sentinel_circuit_breaker_state",
		Help: "Circuit breaker state by service name (0=closed, 1=half_open, 2=open).",
	}, []string{"service"})
	routingCallsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_gate_routing_calls_total",
		Help: "Total gate pipeline invocations observed so far.",
	})
	routingSkipRateGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_gate_routing_skip_rate",
		Help: "Fraction of invocations served by the daemon fast-path.",
	})
)

func init() {
	prometheus.MustRegister(
		healthScoreGauge,
		gateAvgDurationGauge,
		gateP95DurationGauge,
		circuitBreakerStateGauge,
		routingCallsGauge,
		routingSkipRateGauge,
	)
}

// breakerStateValue maps a CircuitState to the gauge value convention
// documented on circuitBreakerStateGauge.
func breakerStateValue(state types.CircuitState) float64 {
	switch state {
	case types.CircuitClosed:
		return 0
	case types.CircuitHalfOpen:
		return 1
	case types.CircuitOpen:
		return 2
	default:
		return -1
	}
}

// PublishMetrics updates the package's Prometheus gauges from r, for a
// caller that scrapes on an interval (e.g. cmd/sentinel-daemon's health
// ticker).
func PublishMetrics(r Report) {
	healthScoreGauge.Set(float64(r.HealthScore))
	routingCallsGauge.Set(float64(r.Routing.Calls))
	routingSkipRateGauge.Set(r.Routing.SkipRate)

	for gate, t := range r.GateTimings {
		gateAvgDurationGauge.WithLabelValues(gate).Set(t.AvgMS)
		gateP95DurationGauge.WithLabelValues(gate).Set(t.P95MS)
	}
	for service, state := range r.CircuitBreakers {
		circuitBreakerStateGauge.WithLabelValues(service).Set(breakerStateValue(state))
	}
}
