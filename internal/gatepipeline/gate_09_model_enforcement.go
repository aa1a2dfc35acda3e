package gatepipeline

import (
	"fmt"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

const gate09Name = "GATE 9: MODEL ENFORCEMENT"

// deniedModels blocks a Task subagent spawn from pinning a model string
// known to be deprecated or unsuitable for autonomous code edits. This is
// deliberately a small deny-list rather than an allow-list: an empty or
// unrecognised model string is never denied, only a known-bad one.
var deniedModels = map[string]string{
	"claude-1":          "retired model line",
	"claude-instant-1":  "retired model line",
	"claude-2":          "superseded, no longer supported for this workflow",
	"claude-2.1":        "superseded, no longer supported for this workflow",
}

// NewModelEnforcementGate denies a Task subagent spawn that explicitly
// pins a model known to be unsuitable for autonomous code edits.
func NewModelEnforcementGate() Gate {
	return GateFunc{
		GateNameValue: gate09Name,
		GateTierValue: TierQuality,
		CheckFunc: func(toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) *types.GateResult {
			if eventType != "PreToolUse" || toolName != "Task" {
				return types.NewAllow(gate09Name)
			}

			model := stringField(toolInput, "model")
			if model == "" {
				return types.NewAllow(gate09Name)
			}

			if reason, denied := deniedModels[model]; denied {
				return types.NewBlock(gate09Name, fmt.Sprintf(
					"[%s] BLOCKED: Model '%s' is not permitted for subagent spawning (%s). Omit the model override or choose a supported one.",
					gate09Name, model, reason))
			}

			return types.NewAllow(gate09Name)
		},
	}
}
