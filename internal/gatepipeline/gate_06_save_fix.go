package gatepipeline

import (
	"fmt"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

const gate06Name = "GATE 6: SAVE FIX"

// saveFixMaxWarnings is the number of warned edits allowed before the
// gate denies further edits away from the fixed file -- the tracker sets
// FixPendingSave when a previously-failing test starts passing again, and
// clears it (via remember_this) once the fix has been written to memory.
const saveFixMaxWarnings = 2

// NewSaveFixGate denies editing files other than the one just fixed until
// the fix has been recorded to memory, so lessons learned survive past
// the current session instead of evaporating the moment the test goes
// green.
func NewSaveFixGate() Gate {
	return GateFunc{
		GateNameValue: gate06Name,
		GateTierValue: TierQuality,
		CheckFunc: func(toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) *types.GateResult {
			if eventType != "PreToolUse" {
				return types.NewAllow(gate06Name)
			}
			if toolName != "Edit" && toolName != "Write" && toolName != "NotebookEdit" {
				return types.NewAllow(gate06Name)
			}
			if !state.FixPendingSave {
				return types.NewAllow(gate06Name)
			}

			filePath := extractFilePath(toolInput)
			if IsExemptBase(filePath) {
				return types.NewAllow(gate06Name)
			}

			// Editing the file that was just fixed is iteration, not a
			// move away from the lesson -- allow freely.
			if state.FixedFilePath != "" && filePath == state.FixedFilePath {
				return types.NewAllow(gate06Name)
			}

			state.FixSaveWarnings++
			maxWarnings := int(state.TuneOverride("gate_06_save_fix.max_warnings", float64(saveFixMaxWarnings)))

			if state.FixSaveWarnings > maxWarnings {
				return types.NewBlock(gate06Name, fmt.Sprintf(
					"[%s] BLOCKED: A fix was just verified but not yet saved to memory. Call remember_this() to record what fixed it before moving to other files.",
					gate06Name))
			}

			return types.NewWarn(gate06Name, fmt.Sprintf(
				"[%s] WARNING (%d/%d): Fix verified but not yet saved. Call remember_this() to record it.",
				gate06Name, state.FixSaveWarnings, maxWarnings))
		},
	}
}
