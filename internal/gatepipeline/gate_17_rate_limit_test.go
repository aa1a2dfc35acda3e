package gatepipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

func TestRateLimitBlocksAboveSixtyPerMinute(t *testing.T) {
	gate := NewRateLimitGate()
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)
	now := time.Now()
	deps.Now = func() time.Time { return now }

	// 130 calls inside the 120s window: well above the 60/min ceiling.
	ts := make([]float64, 130)
	for i := range ts {
		ts[i] = float64(now.UnixNano())/1e9 - 1
	}
	state.RateWindowTimestamps = ts

	result := gate.Check("Bash", map[string]any{}, state, "PreToolUse", deps)
	assert.True(t, result.Blocked)
	assert.Contains(t, result.Message, "calls/min")
}

func TestRateLimitIgnoresAnalyticsTools(t *testing.T) {
	gate := NewRateLimitGate()
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)

	result := gate.Check("mcp__analytics__query", map[string]any{}, state, "PreToolUse", deps)
	assert.False(t, result.Blocked)
	assert.Empty(t, state.RateWindowTimestamps)
}

func TestRateLimitFirstCallAlwaysAllowed(t *testing.T) {
	gate := NewRateLimitGate()
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)

	result := gate.Check("Read", map[string]any{}, state, "PreToolUse", deps)
	assert.False(t, result.Blocked)
}
