package healthdash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/steveyegge/vc-sentinel/internal/gatepipeline"
	"github.com/steveyegge/vc-sentinel/internal/types"
)

func TestFormatDashboardIncludesScoreAndIndicator(t *testing.T) {
	reg := gatepipeline.NewRegistry()
	stats := gatepipeline.NewStats()
	stats.RecordOutcome(&gatepipeline.Outcome{Timings: map[string]float64{"GATE 1: READ BEFORE EDIT": 5}}, reg)

	report := BuildReport(stats, nil)
	out := FormatDashboard(report)

	assert.Contains(t, out, "Gate Health Dashboard")
	assert.Contains(t, out, "HEALTHY")
	assert.Contains(t, out, "Score: 100/100")
}

func TestFormatDashboardFlagsDegradedGates(t *testing.T) {
	reg := gatepipeline.NewRegistry()
	stats := gatepipeline.NewStats()
	stats.RecordOutcome(&gatepipeline.Outcome{Timings: map[string]float64{"GATE 2: NO DESTROY": 400}}, reg)

	report := BuildReport(stats, nil)
	out := FormatDashboard(report)

	assert.Contains(t, out, "[DEGRADE]")
	assert.Contains(t, out, "Auto-skipped gates (1):")
}

func TestFormatDashboardShowsOpenBreakers(t *testing.T) {
	report := Report{
		HealthScore:     50,
		CircuitBreakers: map[string]types.CircuitState{"gateway": types.CircuitOpen},
	}
	out := FormatDashboard(report)
	assert.Contains(t, out, "Circuit breakers (1 non-closed):")
	assert.Contains(t, out, "gateway: open")
}

func TestShortGateNameStripsPrefix(t *testing.T) {
	assert.Equal(t, "READ BEFORE EDIT", shortGateName("GATE 1: READ BEFORE EDIT"))
	assert.Equal(t, "unprefixed", shortGateName("unprefixed"))
}

func TestFormatDashboardEndsWithRule(t *testing.T) {
	out := FormatDashboard(Report{})
	lines := strings.Split(out, "\n")
	assert.Equal(t, strings.Repeat("=", dashboardRuleWidth), lines[len(lines)-1])
}
