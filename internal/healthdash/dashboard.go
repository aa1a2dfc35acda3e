package healthdash

import (
	"fmt"
	"strings"

	"github.com/steveyegge/vc-sentinel/internal/gatepipeline"
)

const dashboardRuleWidth = 55

// FormatDashboard renders r as a compact ASCII dashboard, line-for-line
// equivalent to format_health_dashboard's sections: header, routing
// summary, top-10 gate timings with SLA flags, degraded gates, and
// non-closed circuit breakers.
func FormatDashboard(r Report) string {
	var lines []string

	rule := strings.Repeat("=", dashboardRuleWidth)

	lines = append(lines,
		fmt.Sprintf("Gate Health Dashboard  [%s]  Score: %d/100", r.Indicator(), r.HealthScore),
		rule,
		"",
		fmt.Sprintf("Routing: %d calls, skip rate %.1f%%, T1 blocks %d",
			r.Routing.Calls, r.Routing.SkipRate*100, r.Routing.Tier1Blocks),
		"",
	)

	if len(r.GateTimings) > 0 {
		lines = append(lines, "Gate Performance (top 10 by avg_ms):")
		for _, name := range r.TopGatesByAvg(10) {
			t := r.GateTimings[name]
			flag := ""
			switch {
			case t.AvgMS > gatepipeline.SLADegradeMS:
				flag = " [DEGRADE]"
			case t.AvgMS > gatepipeline.SLAWarnMS:
				flag = " [SLOW]"
			}
			lines = append(lines, fmt.Sprintf("  %-35s avg=%6.1fms  p95=%6.1fms  n=%d%s",
				shortGateName(name), t.AvgMS, t.P95MS, t.Count, flag))
		}
		lines = append(lines, "")
	}

	if len(r.DegradedGates) > 0 {
		lines = append(lines, fmt.Sprintf("Auto-skipped gates (%d):", len(r.DegradedGates)))
		for _, g := range r.DegradedGates {
			lines = append(lines, "  - "+g)
		}
		lines = append(lines, "")
	}

	openBreakers := map[string]string{}
	for name, state := range r.CircuitBreakers {
		if state.String() != "closed" {
			openBreakers[name] = state.String()
		}
	}
	if len(openBreakers) > 0 {
		lines = append(lines, fmt.Sprintf("Circuit breakers (%d non-closed):", len(openBreakers)))
		for name, state := range openBreakers {
			lines = append(lines, fmt.Sprintf("  - %s: %s", name, state))
		}
		lines = append(lines, "")
	}

	lines = append(lines, rule)
	return strings.Join(lines, "\n")
}

// shortGateName strips a "GATE N: " style prefix to the same trailing
// segment format_health_dashboard shows (it splits on "." for Python
// dotted names; our gate names carry a "GATE N: " prefix instead).
func shortGateName(name string) string {
	if idx := strings.Index(name, ": "); idx != -1 {
		return name[idx+2:]
	}
	return name
}
