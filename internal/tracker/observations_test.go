package tracker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

func TestCaptureObservationSkipsUncapturableTool(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)

	captured := captureObservation("mcp__analytics__query", map[string]any{}, map[string]any{}, "sess-1", state, deps)

	assert.False(t, captured)
}

func TestCaptureObservationAppendsToQueue(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)

	captured := captureObservation("Read", map[string]any{"file_path": "/repo/main.go"},
		map[string]any{}, "sess-1", state, deps)

	require.True(t, captured)
	data, err := os.ReadFile(deps.Store.CaptureQueuePath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"tool\":\"Read\"")
	assert.Contains(t, string(data), "/repo/main.go")
}

func TestCaptureObservationDedupesIdenticalCalls(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)

	first := captureObservation("Read", map[string]any{"file_path": "/repo/main.go"}, map[string]any{}, "sess-1", state, deps)
	second := captureObservation("Read", map[string]any{"file_path": "/repo/main.go"}, map[string]any{}, "sess-1", state, deps)

	assert.True(t, first)
	assert.False(t, second, "identical observation within the recent window is suppressed")
}

func TestCaptureObservationErrorGetsHighPriority(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)

	captureObservation("Bash", map[string]any{"command": "go test"}, map[string]any{"exit_code": 1.0}, "sess-1", state, deps)

	data, err := os.ReadFile(deps.Store.CaptureQueuePath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"priority\":\"high\"")
	assert.Contains(t, string(data), "\"outcome\":\"error\"")
}

func TestCaptureObservationReadGetsLowPriority(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)

	captureObservation("Read", map[string]any{"file_path": "/repo/a.go"}, map[string]any{}, "sess-1", state, deps)

	data, err := os.ReadFile(deps.Store.CaptureQueuePath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"priority\":\"low\"")
}

func TestObservationKeyDistinguishesEditsByContent(t *testing.T) {
	keyA := observationKey("Edit", map[string]any{"file_path": "/a.go", "old_string": "foo"})
	keyB := observationKey("Edit", map[string]any{"file_path": "/a.go", "old_string": "bar"})
	assert.NotEqual(t, keyA, keyB)
}

func TestIsRecentDuplicateOnlyChecksTail(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queue.jsonl")

	var lines []string
	for i := 0; i < recentDuplicateLines+5; i++ {
		lines = append(lines, `{"_obs_hash":"stale0001"}`)
	}
	lines = append(lines, `{"_obs_hash":"fresh0001"}`)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	assert.False(t, isRecentDuplicate(path, "stale0001"), "beyond the tail window, so not flagged as duplicate")
	assert.True(t, isRecentDuplicate(path, "fresh0001"))
}
