package tracker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

type fakeMemoryQuerier struct {
	resp *MemoryQueryResponse
	err  error
}

func (f fakeMemoryQuerier) Query(query string, nResults int, timeout time.Duration) (*MemoryQueryResponse, error) {
	return f.resp, f.err
}

type alwaysOnToggles struct{}

func (alwaysOnToggles) LiveToggle(string) bool             { return true }
func (alwaysOnToggles) TuneOverride(_ string, def float64) float64 { return def }

func TestEvaluateMemoryMentorGatedByToggle(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)
	deps.Memory = fakeMemoryQuerier{resp: &MemoryQueryResponse{
		IDs: []string{"a"}, Documents: []string{"doc"}, Distances: []float64{0.1},
	}}

	match := evaluateMemoryMentor("Bash", map[string]any{"command": "go test"}, state, deps)

	assert.Nil(t, match, "mentor_all is off by default so nothing fires")
}

func TestEvaluateMemoryMentorReturnsBestMatchUnderThreshold(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	state.CurrentStrategyID = "retry-with-timeout"
	deps := testDeps(t)
	deps.Toggles = alwaysOnToggles{}
	deps.Memory = fakeMemoryQuerier{resp: &MemoryQueryResponse{
		IDs:       []string{"a", "b"},
		Documents: []string{"far match", "close match"},
		Distances: []float64{0.9, 0.2},
	}}

	match := evaluateMemoryMentor("Bash", map[string]any{"command": "go test"}, state, deps)

	require.NotNil(t, match)
	assert.Equal(t, "b", match.ID)
	assert.Equal(t, "close match", match.Document)
	assert.True(t, state.MentorMemoryMatch)
	assert.NotEmpty(t, state.MentorHistoricalContext)
}

func TestEvaluateMemoryMentorRejectsMatchOverThreshold(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	state.CurrentStrategyID = "retry-with-timeout"
	deps := testDeps(t)
	deps.Toggles = alwaysOnToggles{}
	deps.Memory = fakeMemoryQuerier{resp: &MemoryQueryResponse{
		IDs:       []string{"a"},
		Documents: []string{"distant"},
		Distances: []float64{0.8},
	}}

	match := evaluateMemoryMentor("Bash", map[string]any{"command": "go test"}, state, deps)

	assert.Nil(t, match)
	assert.False(t, state.MentorMemoryMatch)
}

func TestEvaluateMemoryMentorNilWhenNoQuerier(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	deps := testDeps(t)
	deps.Toggles = alwaysOnToggles{}

	match := evaluateMemoryMentor("Bash", map[string]any{"command": "go test"}, state, deps)

	assert.Nil(t, match)
}

func TestEvaluateMemoryMentorNilOnQueryError(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	state.CurrentStrategyID = "x"
	deps := testDeps(t)
	deps.Toggles = alwaysOnToggles{}
	deps.Memory = fakeMemoryQuerier{err: errors.New("gateway unreachable")}

	match := evaluateMemoryMentor("Bash", map[string]any{"command": "go test"}, state, deps)

	assert.Nil(t, match)
}

func TestExtractQueryContextPrioritizesFailurePattern(t *testing.T) {
	state := types.NewSessionState("main", time.Now())
	state.RecentTestFailure = &types.RecentTestFailure{Pattern: "assertion error"}
	state.CurrentStrategyID = "retry"

	query := extractQueryContext("Edit", map[string]any{"file_path": "/repo/main.go"}, state)

	assert.Contains(t, query, "error: assertion error")
	assert.Contains(t, query, "main.go")
}

func TestExtractQueryContextEmptyWhenNoSignal(t *testing.T) {
	state := types.NewSessionState("main", time.Now())

	query := extractQueryContext("Read", map[string]any{}, state)

	assert.Empty(t, query)
}
