// Package gatepipeline implements the Pre-Tool Gate Pipeline: an ordered,
// fixed-registration list of independent policy gates evaluated against a
// snapshot of session state for every tool call the host agent attempts.
package gatepipeline

import (
	"fmt"
	"os"
	"time"

	"github.com/steveyegge/vc-sentinel/internal/gatestate"
	"github.com/steveyegge/vc-sentinel/internal/types"
)

// Toggles is the narrow slice of sentinelcfg.Store a gate needs: a named
// boolean lookup and a named numeric override lookup. Defined here rather
// than imported directly so gatepipeline does not depend on sentinelcfg's
// viper/fsnotify machinery for its own tests.
type Toggles interface {
	LiveToggle(name string) bool
	TuneOverride(key string, def float64) float64
}

// noToggles is the zero-value Toggles used when DefaultDeps is built
// without a live config store: every toggle reads false, every override
// reads its default.
type noToggles struct{}

func (noToggles) LiveToggle(string) bool                  { return false }
func (noToggles) TuneOverride(_ string, def float64) float64 { return def }

// Tier classifies a gate's fail-open/fail-closed behavior on crash. Tier 1
// gates guard safety; an unhandled panic inside one is fatal to the
// pipeline (fail-closed). Tier 2/3 gates are quality and advisory; a
// panic inside one is recovered, logged, and treated as Allow.
type Tier int

const (
	TierSafety   Tier = 1
	TierQuality  Tier = 2
	TierAdvisory Tier = 3
)

// Deps bundles the collaborators a gate may need beyond the event and
// state it is given directly, so gates stay pure functions of their
// explicit arguments plus this narrow capability set.
type Deps struct {
	Store   *gatestate.Store
	Now     func() time.Time
	Toggles Toggles

	// FileExists lets gates check whether an edit target pre-exists
	// without importing os directly, so they stay trivially testable.
	FileExists func(path string) bool
}

// DefaultDeps wires Deps to the real clock and filesystem. toggles may be
// nil, in which case every LIVE_STATE toggle reads false.
func DefaultDeps(store *gatestate.Store, toggles Toggles) *Deps {
	if toggles == nil {
		toggles = noToggles{}
	}
	return &Deps{
		Store:   store,
		Now:     time.Now,
		Toggles: toggles,
		FileExists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
	}
}

// Gate is the capability every policy module conforms to: a name, a tier,
// and a pure check function over the event and a state snapshot.
type Gate interface {
	Name() string
	Tier() Tier
	Check(toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) *types.GateResult
}

// GateFunc adapts a plain function to the Gate interface for gates with
// no extra fields beyond their check logic.
type GateFunc struct {
	GateNameValue string
	GateTierValue Tier
	CheckFunc     func(toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) *types.GateResult
}

func (g GateFunc) Name() string { return g.GateNameValue }
func (g GateFunc) Tier() Tier   { return g.GateTierValue }
func (g GateFunc) Check(toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) *types.GateResult {
	return g.CheckFunc(toolName, toolInput, state, eventType, deps)
}

// Registry is the single source of truth for gate order. It is built once
// at startup via NewRegistry and never reordered at runtime.
type Registry struct {
	gates []Gate
}

// NewRegistry returns the registry in the fixed registered order described
// in the component design: safety gates first, advisory gates next, rate
// limiting last so earlier blocks don't inflate the rate window.
func NewRegistry() *Registry {
	return &Registry{gates: []Gate{
		NewReadBeforeEditGate(),
		NewNoDestroyGate(),
		NewTestBeforeDeployGate(),
		NewMemoryFirstGate(),
		NewProofBeforeFixedGate(),
		NewSaveFixGate(),
		NewCriticalFileGuardGate(),
		NewStrategyBanGate(),
		NewModelEnforcementGate(),
		NewWorkspaceIsolationGate(),
		NewConfidenceCheckGate(),
		NewCausalChainGate(),
		NewCodeQualityGate(),
		NewInjectionDefenseGate(),
		NewCanaryGate(),
		NewHindsightGate(),
		NewRateLimitGate(),
	}}
}

// Gates returns the registered gates in order.
func (r *Registry) Gates() []Gate { return r.gates }

// Manifest returns the ordered gate names, used by VerifyManifest to
// detect drift between the code's registration order and a previously
// recorded manifest.
func (r *Registry) Manifest() []string {
	names := make([]string, len(r.gates))
	for i, g := range r.gates {
		names[i] = g.Name()
	}
	return names
}

// VerifyManifest compares the registry's current order against a
// previously recorded manifest (e.g. loaded from a file checked into the
// operator's config) and reports the first divergence, if any.
func VerifyManifest(current, recorded []string) error {
	if len(current) != len(recorded) {
		return fmt.Errorf("gate registry drift: expected %d gates, have %d", len(recorded), len(current))
	}
	for i := range current {
		if current[i] != recorded[i] {
			return fmt.Errorf("gate registry drift at position %d: expected %q, have %q", i, recorded[i], current[i])
		}
	}
	return nil
}

// Outcome is the folded result of running the full pipeline: the first
// stopping result (block/ask), if any, plus every warning encountered
// along the way and per-gate timings for the health dashboard.
type Outcome struct {
	Stop     *types.GateResult
	Warnings []*types.GateResult
	Timings  map[string]float64
}

// Allowed reports whether the pipeline as a whole allowed the call.
func (o *Outcome) Allowed() bool { return o.Stop == nil }

// Run evaluates every gate in order against state, short-circuiting on
// the first Block or Ask result. State mutations performed by gates
// (e.g. appending to the rate-limit window) are retained regardless of
// whether the pipeline stops, matching "state is persisted once at the
// end of the pipeline" -- callers persist state via gatestate.Store after
// Run returns.
func Run(reg *Registry, toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) *Outcome {
	out := &Outcome{Timings: make(map[string]float64)}

	for _, gate := range reg.gates {
		result := runOneGate(gate, toolName, toolInput, state, eventType, deps)
		out.Timings[gate.Name()] = result.DurationMS

		if result.IsWarning() {
			out.Warnings = append(out.Warnings, result)
			continue
		}
		if result.IsStop() {
			out.Stop = result
			return out
		}
	}
	return out
}

// runOneGate invokes one gate with tier-appropriate crash handling and
// records its duration.
func runOneGate(gate Gate, toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) (result *types.GateResult) {
	start := deps.Now()
	defer func() {
		result.DurationMS = float64(deps.Now().Sub(start).Microseconds()) / 1000.0
	}()

	if gate.Tier() == TierSafety {
		// Tier 1: a crash is fatal to the pipeline. We still recover so a
		// single process doesn't take the host down, but we convert the
		// panic into a hard block rather than an allow.
		defer func() {
			if r := recover(); r != nil {
				result = types.NewBlock(gate.Name(), fmt.Sprintf("safety gate panicked, failing closed: %v", r))
			}
		}()
		return gate.Check(toolName, toolInput, state, eventType, deps)
	}

	// Tier 2/3: fail open on crash.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "[GATE %s] WARNING: gate panicked, failing open: %v\n", gate.Name(), r)
			result = types.NewAllow(gate.Name())
		}
	}()
	return gate.Check(toolName, toolInput, state, eventType, deps)
}
