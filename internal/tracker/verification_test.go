package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

func TestApplyVerificationTracksPendingEdit(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)

	applyVerification("Edit", map[string]any{"file_path": "/repo/main.go"}, map[string]any{}, state, deps)

	assert.Contains(t, state.PendingVerification, "/repo/main.go")
	assert.Equal(t, 1, state.EditStreak["/repo/main.go"])
	assert.Equal(t, types.ScoreUnverified, state.VerificationScores["/repo/main.go"])
}

func TestApplyVerificationBroadCommandClearsEverything(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	state.PendingVerification = []string{"/repo/a.go", "/repo/b.go"}
	state.EditStreak = map[string]int{"/repo/a.go": 3}
	deps := testDeps(t)

	applyVerification("Bash", map[string]any{"command": "go test ./..."},
		map[string]any{"exit_code": 0.0}, state, deps)

	assert.Empty(t, state.PendingVerification)
	assert.Empty(t, state.EditStreak)
	assert.True(t, state.SessionTestBaseline)
	assert.Equal(t, "go test ./...", state.LastTestCommand)
}

func TestApplyVerificationNarrowCommandClearsOnlyNamedFile(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	state.PendingVerification = []string{"/repo/pkg/foo_test.go", "/repo/pkg/bar.go"}
	deps := testDeps(t)

	applyVerification("Bash", map[string]any{"command": "go test ./pkg -run TestFoo"},
		map[string]any{"exit_code": 0.0}, state, deps)

	// go test ./pkg -run TestFoo is not a BroadTestCommands match, so only
	// files whose basename appears in the command string are cleared; here
	// neither basename literally appears in the command, so both remain.
	assert.Contains(t, state.PendingVerification, "/repo/pkg/foo_test.go")
	assert.Contains(t, state.PendingVerification, "/repo/pkg/bar.go")
}

func TestApplyVerificationClearsNamedFileFromCommand(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	state.PendingVerification = []string{"/repo/pkg/foo_test.go", "/repo/pkg/bar.go"}
	deps := testDeps(t)

	applyVerification("Bash", map[string]any{"command": "pytest tests/foo_test.go"},
		map[string]any{"exit_code": 0.0}, state, deps)

	assert.NotContains(t, state.PendingVerification, "/repo/pkg/foo_test.go")
	assert.Contains(t, state.PendingVerification, "/repo/pkg/bar.go")
	assert.Equal(t, types.ScoreVerified, state.VerificationScores["/repo/pkg/foo_test.go"])
}

func TestApplyVerificationFailedTestSetsRecentFailure(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)

	applyVerification("Bash", map[string]any{"command": "pytest"},
		map[string]any{"exit_code": 1.0, "stdout": "AssertionError: boom"}, state, deps)

	require.NotNil(t, state.RecentTestFailure)
	assert.NotEmpty(t, state.RecentTestFailure.Pattern)
}

func TestApplyVerificationIgnoresNonTestBashCommands(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)

	applyVerification("Bash", map[string]any{"command": "ls -la"}, map[string]any{}, state, deps)

	assert.Zero(t, state.LastTestRun)
	assert.Empty(t, state.LastTestCommand)
}

func TestApplyVerificationReadTracksFilesRead(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)

	applyVerification("Read", map[string]any{"file_path": "/repo/main.go"}, map[string]any{}, state, deps)
	applyVerification("Read", map[string]any{"file_path": "/repo/main.go"}, map[string]any{}, state, deps)

	assert.Len(t, state.FilesRead, 1, "duplicate reads of the same canonical path are not repeated")
}

func TestIsBroadTestCommandMatchesExactInvocationsOnly(t *testing.T) {
	assert.True(t, isBroadTestCommand("pytest"))
	assert.True(t, isBroadTestCommand("  go test ./...  "))
	assert.False(t, isBroadTestCommand("go test ./pkg/foo"))
	assert.False(t, isBroadTestCommand("pytest tests/foo_test.go"))
}

func TestMatchTestCommandRecognizesFrameworks(t *testing.T) {
	label, ok := matchTestCommand("cd repo && npm test -- --watch=false")
	assert.True(t, ok)
	assert.Equal(t, "npm test", label)

	_, ok = matchTestCommand("echo hello")
	assert.False(t, ok)
}
