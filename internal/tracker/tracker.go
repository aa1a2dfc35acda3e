// Package tracker implements the Post-Tool Tracker: after every tool call
// it mutates the session document (counters, verification state, error
// patterns), compresses the call into an Observation for the capture
// queue, optionally enqueues an auto-remember event, and runs the mentor
// modules that write advisory fields into state.
//
// Every step here is fail-open by convention: a panic or error in one
// step must never prevent the remaining steps from running, and must
// never surface as a hook failure to the host.
package tracker

import (
	"time"

	"github.com/steveyegge/vc-sentinel/internal/gatestate"
	"github.com/steveyegge/vc-sentinel/internal/types"
)

// Toggles is the same duck-typed LIVE_STATE surface gatepipeline.Toggles
// exposes, redeclared here so tracker does not need to import gatepipeline
// (which would create an import cycle through cmd/ wiring both).
type Toggles interface {
	LiveToggle(name string) bool
	TuneOverride(key string, def float64) float64
}

type noToggles struct{}

func (noToggles) LiveToggle(string) bool                     { return false }
func (noToggles) TuneOverride(_ string, def float64) float64 { return def }

// MemoryQuerier is the memory mentor's view of the memory gateway client:
// a single best-effort query with a caller-supplied timeout budget.
type MemoryQuerier interface {
	Query(query string, nResults int, timeout time.Duration) (*MemoryQueryResponse, error)
}

// MemoryQueryResponse mirrors the gateway's query result shape (see
// internal/memorygateway): parallel arrays the way ChromaDB returns them.
type MemoryQueryResponse struct {
	IDs       []string
	Documents []string
	Distances []float64
}

// Rememberer is the auto-remember step's view of the memory gateway: an
// immediate best-effort save attempt, used only for critical events.
type Rememberer interface {
	Available() bool
	Remember(content, context, tags string) error
}

// Deps bundles the tracker's collaborators. MemoryQuerier and Rememberer
// are both optional (nil-safe); a Deps with neither still runs counters,
// verification, error detection, and observation capture.
type Deps struct {
	Store    *gatestate.Store
	Now      func() time.Time
	Toggles  Toggles
	Memory   MemoryQuerier
	Remember Rememberer
	LogDebug func(msg string)
}

// DefaultDeps returns a Deps with Now defaulted to time.Now and Toggles
// defaulted to an always-off stub, matching gatepipeline.DefaultDeps.
func DefaultDeps(store *gatestate.Store, toggles Toggles) *Deps {
	if toggles == nil {
		toggles = noToggles{}
	}
	return &Deps{
		Store:   store,
		Now:     time.Now,
		Toggles: toggles,
	}
}

func (d *Deps) logDebug(msg string) {
	if d.LogDebug != nil {
		d.LogDebug(msg)
	}
}

// Result summarizes what one Handle call did, for the hook's own stderr
// diagnostics and for tests; it is never part of the external protocol.
type Result struct {
	ObservationCaptured bool
	ErrorDetected       bool
	ChainNudge          *ChainEvaluation
	MemoryNudge         *MemoryMatch
	AnalyticsNudges     []string
}

// Handle runs every tracker responsibility, in the fixed order the
// runtime document's shape depends on: counters, verification, error
// detection, observation capture, auto-remember, then the three mentor
// modules. Each step is isolated so a panic in one does not skip the
// rest; callers get back whatever partial Result was assembled.
func Handle(toolName string, toolInput, toolResponse map[string]any, sessionID string, state *types.SessionState, deps *Deps) *Result {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Toggles == nil {
		deps.Toggles = noToggles{}
	}

	result := &Result{}

	runStep(deps, "counters", func() { applyCounters(toolName, state) })
	runStep(deps, "analytics_usage", func() { recordAnalyticsToolUsage(toolName, state, deps) })
	runStep(deps, "verification", func() { applyVerification(toolName, toolInput, toolResponse, state, deps) })
	runStep(deps, "errors", func() {
		result.ErrorDetected = detectErrors(toolInput, toolResponse, state, deps)
		if result.ErrorDetected {
			last := state.UnloggedErrors[len(state.UnloggedErrors)-1]
			AutoRememberEvent("error signature: "+last, toolName, "auto,error", false, state, deps)
		}
	})
	runStep(deps, "observation", func() {
		result.ObservationCaptured = captureObservation(toolName, toolInput, toolResponse, sessionID, state, deps)
	})
	runStep(deps, "outcome_chains", func() { result.ChainNudge = evaluateOutcomeChains(state, deps) })
	runStep(deps, "mentor_memory", func() {
		result.MemoryNudge = evaluateMemoryMentor(toolName, toolInput, state, deps)
	})
	runStep(deps, "mentor_analytics", func() {
		result.AnalyticsNudges = evaluateAnalyticsMentor(toolName, toolInput, state, deps)
	})

	return result
}

// runStep isolates one tracker responsibility behind a recover so a bug in
// one step never prevents the rest of the pipeline, or the final Save,
// from running.
func runStep(deps *Deps, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			deps.logDebug(name + " panicked (non-blocking)")
		}
	}()
	fn()
}

// applyCounters increments the tool-call bookkeeping. Token estimation is
// a coarse 4-chars-per-token heuristic over the tool name only -- the
// post-tool hook never sees the full conversation, so this is a lower
// bound, not a budget enforcement signal.
func applyCounters(toolName string, state *types.SessionState) {
	state.ToolCallCount++
	if state.ToolCallCounts == nil {
		state.ToolCallCounts = map[string]int{}
	}
	state.ToolCallCounts[toolName]++
	state.EstimatedTokens += estimateTokens(toolName)
}

// tokenEstimates gives a few common tools a sharper estimate than the
// generic fallback; this mirrors the original's per-tool table rather
// than a single flat constant.
var tokenEstimates = map[string]int{
	"Read":  500,
	"Edit":  300,
	"Write": 400,
	"Bash":  150,
	"Grep":  200,
	"Glob":  100,
}

func estimateTokens(toolName string) int {
	if n, ok := tokenEstimates[toolName]; ok {
		return n
	}
	return 100
}
