package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

func TestEvaluateOutcomeChainsSkipsBeforeInterval(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	state.ToolCallCount = 5
	state.ToolCallCounts = map[string]int{"Read": 5}
	deps := testDeps(t)

	eval := evaluateOutcomeChains(state, deps)

	assert.Nil(t, eval)
}

func TestEvaluateOutcomeChainsDetectsStuckLoop(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	state.ToolCallCount = 10
	state.ToolCallCounts = map[string]int{"Read": 9, "Bash": 1}
	deps := testDeps(t)

	eval := evaluateOutcomeChains(state, deps)

	require.NotNil(t, eval)
	assert.Equal(t, "stuck", eval.Pattern)
	assert.Equal(t, stuckScore, eval.Score)
	assert.Equal(t, "stuck", state.MentorChainPattern)
}

func TestEvaluateOutcomeChainsDetectsChurn(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	state.ToolCallCount = 20
	state.ToolCallCounts = map[string]int{"Edit": 8, "Read": 3, "Bash": 1}
	deps := testDeps(t)

	eval := evaluateOutcomeChains(state, deps)

	require.NotNil(t, eval)
	assert.Equal(t, "churn", eval.Pattern)
}

func TestEvaluateOutcomeChainsDetectsHealthy(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	state.ToolCallCount = 20
	state.ToolCallCounts = map[string]int{"Read": 5, "Grep": 2, "Edit": 6, "Bash": 2}
	deps := testDeps(t)

	eval := evaluateOutcomeChains(state, deps)

	require.NotNil(t, eval)
	assert.Equal(t, "healthy", eval.Pattern)
	assert.Equal(t, healthyScore, eval.Score)
}

func TestEvaluateOutcomeChainsDefaultsToNeutral(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	state.ToolCallCount = 10
	state.ToolCallCounts = map[string]int{"Edit": 3, "Read": 4, "Grep": 2, "Glob": 1}
	deps := testDeps(t)

	eval := evaluateOutcomeChains(state, deps)

	require.NotNil(t, eval)
	assert.Equal(t, "", eval.Pattern)
	assert.Equal(t, neutralScore, eval.Score)
}
