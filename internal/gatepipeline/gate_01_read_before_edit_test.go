package gatepipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/vc-sentinel/internal/gatestate"
	"github.com/steveyegge/vc-sentinel/internal/types"
)

func testDeps(t *testing.T) *Deps {
	t.Helper()
	store, err := gatestate.New(t.TempDir())
	require.NoError(t, err)
	return DefaultDeps(store, nil)
}

func TestReadBeforeEditBlocksUnreadFile(t *testing.T) {
	gate := NewReadBeforeEditGate()
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)
	deps.FileExists = func(string) bool { return true }

	result := gate.Check("Edit", map[string]any{"file_path": "/repo/main.go"}, state, "PreToolUse", deps)
	assert.True(t, result.Blocked)
	assert.Contains(t, result.Message, "must Read")
}

func TestReadBeforeEditAllowsRelatedRead(t *testing.T) {
	gate := NewReadBeforeEditGate()
	state := types.NewSessionState("main", time.Now())
	state.FilesRead = []string{"/repo/main.go"}
	deps := testDeps(t)
	deps.FileExists = func(string) bool { return true }

	result := gate.Check("Edit", map[string]any{"file_path": "/repo/main_test.go"}, state, "PreToolUse", deps)
	assert.False(t, result.Blocked)
}

func TestReadBeforeEditAllowsNewFileWrite(t *testing.T) {
	gate := NewReadBeforeEditGate()
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)
	deps.FileExists = func(string) bool { return false }

	result := gate.Check("Write", map[string]any{"file_path": "/repo/new.go"}, state, "PreToolUse", deps)
	assert.False(t, result.Blocked)
}
