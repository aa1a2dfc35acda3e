package gatepipeline

import (
	"fmt"
	"math"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

const gate12Name = "GATE 12: CAUSAL CHAIN ENFORCEMENT"

const fixHistoryFreshnessWindow = 300.0 // seconds

// NewCausalChainGate denies editing code while actively fixing a known
// test failure unless fix history has been queried recently, so the
// strategy-ban gate always has data to work with.
func NewCausalChainGate() Gate {
	return GateFunc{
		GateNameValue: gate12Name,
		GateTierValue: TierQuality,
		CheckFunc: func(toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) *types.GateResult {
			if eventType != "PreToolUse" {
				return types.NewAllow(gate12Name)
			}
			if toolName != "Edit" && toolName != "Write" && toolName != "NotebookEdit" {
				return types.NewAllow(gate12Name)
			}
			if state.RecentTestFailure == nil {
				return types.NewAllow(gate12Name)
			}
			if !state.FixingError {
				return types.NewAllow(gate12Name)
			}

			filePath := extractFilePath(toolInput)
			if IsExemptStandard(filePath) {
				return types.NewAllow(gate12Name)
			}

			now := deps.Now()
			var age float64
			if state.FixHistoryQueried > 0 {
				age = float64(now.Unix()) - state.FixHistoryQueried
			} else {
				age = math.Inf(1)
			}

			fixFreshness := state.TuneOverride("gate_15_causal_chain.fix_history_freshness", fixHistoryFreshnessWindow)
			if age <= fixFreshness {
				return types.NewAllow(gate12Name)
			}

			pattern := state.RecentTestFailure.Pattern
			if pattern == "" {
				pattern = "unknown"
			}
			failureAge := int(now.Sub(state.RecentTestFailure.Timestamp).Seconds())

			result := types.NewBlock(gate12Name, fmt.Sprintf(
				"[%s] BLOCKED: Test failure detected (%s, %ds ago) but query_fix_history() not called. Call query_fix_history(%q) before editing code to check what strategies have been tried.",
				gate12Name, pattern, failureAge, pattern))
			result.Severity = types.SeverityError
			return result
		},
	}
}
