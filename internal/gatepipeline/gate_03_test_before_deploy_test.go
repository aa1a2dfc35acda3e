package gatepipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

func TestTestBeforeDeployBlocksStaleTests(t *testing.T) {
	gate := NewTestBeforeDeployGate()
	state := types.NewSessionState("main", time.Now())
	state.LastTestRun = float64(time.Now().Add(-time.Hour).Unix())
	deps := testDeps(t)

	result := gate.Check("Bash", map[string]any{"command": "git push origin main"}, state, "PreToolUse", deps)
	assert.True(t, result.Blocked)
	assert.Contains(t, result.Message, "git production")
}

func TestTestBeforeDeployAllowsFreshPassingTests(t *testing.T) {
	gate := NewTestBeforeDeployGate()
	state := types.NewSessionState("main", time.Now())
	state.LastTestRun = float64(time.Now().Unix())
	zero := 0
	state.LastTestExitCode = &zero
	deps := testDeps(t)

	result := gate.Check("Bash", map[string]any{"command": "git push origin main"}, state, "PreToolUse", deps)
	assert.False(t, result.Blocked)
}

func TestTestBeforeDeployIgnoresNonDeployCommands(t *testing.T) {
	gate := NewTestBeforeDeployGate()
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)

	result := gate.Check("Bash", map[string]any{"command": "ls -la"}, state, "PreToolUse", deps)
	assert.False(t, result.Blocked)
}
