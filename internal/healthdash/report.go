// Package healthdash aggregates gate-pipeline timing stats, routing
// counters, and circuit breaker states into a single 0-100 health score
// and ASCII dashboard, surfaced by `sentinel doctor`.
//
// Named healthdash rather than health to avoid colliding with the
// adapted build-quality detector registry that already lives at
// internal/health.
package healthdash

import (
	"sort"

	"github.com/steveyegge/vc-sentinel/internal/breaker"
	"github.com/steveyegge/vc-sentinel/internal/gatepipeline"
	"github.com/steveyegge/vc-sentinel/internal/types"
)

// Report is a point-in-time snapshot of gate system health, ported from
// get_gate_health_report's return dict.
type Report struct {
	Routing         gatepipeline.RoutingSnapshot
	GateTimings     map[string]gatepipeline.GateTiming
	SlowGates       []string
	DegradedGates   []string
	CircuitBreakers map[string]types.CircuitState
	HealthScore     int
	GateCount       int
}

// openBreakerPenaltyCap and per-breaker penalty mirror gate_health.py's
// min(open_breakers * 10, 30).
const (
	openBreakerPenaltyPerBreaker = 10
	openBreakerPenaltyCap        = 30
)

// BuildReport aggregates stats and a breaker registry snapshot into a
// Report, computing the composite health score exactly as
// gate_health.py's get_gate_health_report does.
func BuildReport(stats *gatepipeline.Stats, breakers *breaker.Registry) Report {
	timings := stats.Timings()
	slow := stats.SlowGates()
	degraded := stats.DegradedGates()
	routing := stats.Routing()

	var snapshot map[string]types.CircuitState
	if breakers != nil {
		snapshot = breakers.Snapshot()
	}

	openBreakers := 0
	for _, state := range snapshot {
		if state == types.CircuitOpen {
			openBreakers++
		}
	}
	breakerPenalty := openBreakers * openBreakerPenaltyPerBreaker
	if breakerPenalty > openBreakerPenaltyCap {
		breakerPenalty = openBreakerPenaltyCap
	}

	totalGates := len(timings)
	if totalGates == 0 {
		totalGates = 1
	}
	degradedPct := float64(len(degraded)) / float64(totalGates)
	slowPct := float64(len(slow)) / float64(totalGates)

	var errorRate float64
	if routing.Calls > 0 {
		errorRate = float64(routing.Tier1Blocks) / float64(routing.Calls)
	}

	score := 100.0 - degradedPct*40 - slowPct*20 - errorRate*40 - float64(breakerPenalty)
	healthScore := clampScore(int(score))

	return Report{
		Routing:         routing,
		GateTimings:     timings,
		SlowGates:       slow,
		DegradedGates:   degraded,
		CircuitBreakers: snapshot,
		HealthScore:     healthScore,
		GateCount:       len(timings),
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Indicator classifies the health score into the same four bands
// format_health_dashboard prints.
func (r Report) Indicator() string {
	switch {
	case r.HealthScore >= 90:
		return "HEALTHY"
	case r.HealthScore >= 70:
		return "DEGRADED"
	case r.HealthScore >= 50:
		return "WARNING"
	default:
		return "CRITICAL"
	}
}

// TopGatesByAvg returns up to n gate names sorted by descending average
// duration, for the dashboard's "top N by avg_ms" section.
func (r Report) TopGatesByAvg(n int) []string {
	type named struct {
		name string
		avg  float64
	}
	all := make([]named, 0, len(r.GateTimings))
	for name, t := range r.GateTimings {
		all = append(all, named{name, t.AvgMS})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].avg > all[j].avg })
	if n > len(all) {
		n = len(all)
	}
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = all[i].name
	}
	return names
}
