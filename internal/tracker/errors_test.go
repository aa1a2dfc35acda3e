package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

func TestDetectErrorsFirstMatchWins(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)

	detected := detectErrors(nil, map[string]any{
		"stdout": "Traceback (most recent call last):\nFAILED test_foo",
	}, state, deps)

	require.True(t, detected)
	require.Len(t, state.UnloggedErrors, 1)
	assert.Equal(t, "Traceback", state.UnloggedErrors[0])
	assert.Equal(t, 1, state.ErrorPatternCounts["Traceback"])
}

func TestDetectErrorsNoSignatureFound(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)

	detected := detectErrors(nil, map[string]any{"stdout": "all good here"}, state, deps)

	assert.False(t, detected)
	assert.Empty(t, state.UnloggedErrors)
}

func TestDetectErrorsDedupesWithinWindow(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)
	now := time.Now()
	deps.Now = func() time.Time { return now }

	detectErrors(nil, map[string]any{"stdout": "fatal: not a git repository"}, state, deps)
	now = now.Add(10 * time.Second)
	detectErrors(nil, map[string]any{"stdout": "fatal: not a git repository"}, state, deps)

	require.Contains(t, state.ErrorWindows, "fatal:")
	assert.Equal(t, 2, state.ErrorWindows["fatal:"].Count)
	assert.Len(t, state.UnloggedErrors, 2, "both occurrences are still logged, only the window entry is deduped")
}

func TestDetectErrorsNewWindowAfterExpiry(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)
	now := time.Now()
	deps.Now = func() time.Time { return now }

	detectErrors(nil, map[string]any{"stdout": "fatal: boom"}, state, deps)
	now = now.Add(61 * time.Second)
	detectErrors(nil, map[string]any{"stdout": "fatal: boom"}, state, deps)

	assert.Equal(t, 1, state.ErrorWindows["fatal:"].Count, "window expired, so this starts a fresh count")
}

func TestDeduplicateErrorWindowEvictsOldestAtCap(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	base := time.Now()

	for i := 0; i < maxErrorWindows; i++ {
		pattern := "pattern-" + padNumber(i)
		deduplicateErrorWindow(state, pattern, base.Add(time.Duration(i)*time.Hour))
	}
	require.Len(t, state.ErrorWindows, maxErrorWindows)
	require.Contains(t, state.ErrorWindows, "pattern-"+padNumber(0))

	deduplicateErrorWindow(state, "pattern-new", base.Add(time.Duration(maxErrorWindows)*time.Hour))

	assert.Len(t, state.ErrorWindows, maxErrorWindows, "cap is never exceeded")
	assert.NotContains(t, state.ErrorWindows, "pattern-"+padNumber(0), "the oldest entry by LastSeen is evicted")
	assert.Contains(t, state.ErrorWindows, "pattern-new")
}

func padNumber(i int) string {
	return string(rune('a' + i%26))
}
