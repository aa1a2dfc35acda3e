package gatepipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

func TestRunStopsAtFirstBlock(t *testing.T) {
	reg := NewRegistry()
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)
	deps.FileExists = func(string) bool { return true }

	out := Run(reg, "Edit", map[string]any{"file_path": "/repo/unread.go"}, state, "PreToolUse", deps)
	require.NotNil(t, out.Stop)
	assert.False(t, out.Allowed())
	assert.Equal(t, gate01Name, out.Stop.GateName)
}

func TestRunAllowsReadFileWithFreshMemory(t *testing.T) {
	reg := NewRegistry()
	state := types.NewSessionState("main", time.Now())
	state.FilesRead = []string{"/repo/main.go"}
	state.MemoryLastQueried = float64(time.Now().Unix())
	state.SessionTestBaseline = true
	deps := testDeps(t)
	deps.FileExists = func(string) bool { return true }

	out := Run(reg, "Edit", map[string]any{"file_path": "/repo/main.go"}, state, "PreToolUse", deps)
	assert.True(t, out.Allowed())
}

func TestRunRecordsTimingsForEveryGate(t *testing.T) {
	reg := NewRegistry()
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)

	out := Run(reg, "Read", map[string]any{"file_path": "/repo/main.go"}, state, "PreToolUse", deps)
	assert.True(t, out.Allowed())
	assert.Len(t, out.Timings, len(reg.Gates()))
}

func TestVerifyManifestDetectsDrift(t *testing.T) {
	reg := NewRegistry()
	recorded := reg.Manifest()

	require.NoError(t, VerifyManifest(reg.Manifest(), recorded))

	recorded[0] = "renamed"
	err := VerifyManifest(reg.Manifest(), recorded)
	require.Error(t, err)
}

func TestSafetyGatePanicFailsClosed(t *testing.T) {
	panicky := GateFunc{
		GateNameValue: "PANICKY",
		GateTierValue: TierSafety,
		CheckFunc: func(string, map[string]any, *types.SessionState, string, *Deps) *types.GateResult {
			panic("boom")
		},
	}
	result := runOneGate(panicky, "Edit", nil, types.NewSessionState("main", time.Now()), "PreToolUse", testDeps(t))
	assert.True(t, result.Blocked)
}

func TestAdvisoryGatePanicFailsOpen(t *testing.T) {
	panicky := GateFunc{
		GateNameValue: "PANICKY",
		GateTierValue: TierAdvisory,
		CheckFunc: func(string, map[string]any, *types.SessionState, string, *Deps) *types.GateResult {
			panic("boom")
		},
	}
	result := runOneGate(panicky, "Edit", nil, types.NewSessionState("main", time.Now()), "PreToolUse", testDeps(t))
	assert.False(t, result.Blocked)
	assert.Equal(t, types.EscalationAllow, result.Escalation)
}
