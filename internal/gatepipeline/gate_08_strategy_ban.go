package gatepipeline

import (
	"fmt"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

const gate08Name = "GATE 8: STRATEGY BAN"

// NewStrategyBanGate denies re-attempting a fix strategy that fix-history
// has already marked as banned for the current failure (tried repeatedly
// without success and flagged via record_outcome).
func NewStrategyBanGate() Gate {
	return GateFunc{
		GateNameValue: gate08Name,
		GateTierValue: TierQuality,
		CheckFunc: func(toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) *types.GateResult {
			if eventType != "PreToolUse" {
				return types.NewAllow(gate08Name)
			}
			if toolName != "Edit" && toolName != "Write" && toolName != "NotebookEdit" {
				return types.NewAllow(gate08Name)
			}
			if !state.FixingError || state.CurrentStrategyID == "" {
				return types.NewAllow(gate08Name)
			}

			for _, banned := range state.BannedStrategies {
				if banned == state.CurrentStrategyID {
					return types.NewBlock(gate08Name, fmt.Sprintf(
						"[%s] BLOCKED: Strategy '%s' is banned for this failure -- it has already been tried and recorded as unsuccessful. Query fix history for a different approach.",
						gate08Name, state.CurrentStrategyID))
				}
			}

			return types.NewAllow(gate08Name)
		},
	}
}
