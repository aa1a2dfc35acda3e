package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

func TestEvaluateAnalyticsMentorGatedByToggle(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)

	messages := evaluateAnalyticsMentor("Edit", map[string]any{"file_path": "/repo/gates/gate_01.go"}, state, deps)

	assert.Empty(t, messages)
}

func TestEvaluateAnalyticsMentorSuggestsToolForMatchingPath(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)
	deps.Toggles = alwaysOnToggles{}
	now := time.Now()
	deps.Now = func() time.Time { return now }

	messages := evaluateAnalyticsMentor("Edit", map[string]any{"file_path": "/repo/gates/gate_01.go"}, state, deps)

	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "gate_dashboard")
}

func TestEvaluateAnalyticsMentorRespectsCooldown(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)
	deps.Toggles = alwaysOnToggles{}
	now := time.Now()
	deps.Now = func() time.Time { return now }

	first := evaluateAnalyticsMentor("Edit", map[string]any{"file_path": "/repo/gates/gate_01.go"}, state, deps)
	second := evaluateAnalyticsMentor("Edit", map[string]any{"file_path": "/repo/gates/gate_02.go"}, state, deps)

	assert.Len(t, first, 1)
	assert.Empty(t, second, "same trigger key is still within its cooldown window")
}

func TestEvaluateAnalyticsMentorPeriodicSessionSummary(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	state.ToolCallCounts = map[string]int{"Read": 50}
	deps := testDeps(t)
	deps.Toggles = alwaysOnToggles{}

	messages := evaluateAnalyticsMentor("Read", map[string]any{}, state, deps)

	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "session_summary")
}

func TestRecordAnalyticsToolUsageMarksCooldown(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)
	now := time.Now()
	deps.Now = func() time.Time { return now }

	recordAnalyticsToolUsage("mcp__analytics__gate_timing", state, deps)

	assert.Equal(t, float64(now.Unix()), state.AnalyticsNudgeCooldowns["gate_timing"])
}

func TestRecordAnalyticsToolUsageIgnoresNonAnalyticsTools(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)

	recordAnalyticsToolUsage("Bash", state, deps)

	assert.Empty(t, state.AnalyticsNudgeCooldowns)
}
