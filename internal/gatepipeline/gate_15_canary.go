package gatepipeline

import (
	"fmt"
	"strings"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

const gate15Name = "GATE 15: CANARY"

// canaryMarker is a fixed sentinel string expected to remain present in
// any file that already contains it -- a tripwire against an edit that
// silently strips the framework's own safety annotations.
const canaryMarker = "DO-NOT-REMOVE-CANARY"

// NewCanaryGate denies an Edit that removes a canary marker present in
// the original content but absent from the replacement, catching edits
// that silently strip a file's safety annotations rather than updating
// them.
func NewCanaryGate() Gate {
	return GateFunc{
		GateNameValue: gate15Name,
		GateTierValue: TierSafety,
		CheckFunc: func(toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) *types.GateResult {
			if eventType != "PreToolUse" || toolName != "Edit" {
				return types.NewAllow(gate15Name)
			}

			oldString := stringField(toolInput, "old_string")
			newString := stringField(toolInput, "new_string")

			if strings.Contains(oldString, canaryMarker) && !strings.Contains(newString, canaryMarker) {
				filePath := extractFilePath(toolInput)
				return types.NewBlock(gate15Name, fmt.Sprintf(
					"[%s] BLOCKED: Edit to '%s' removes the canary marker present in the original text. Keep the marker or make the removal an explicit, separate edit.",
					gate15Name, pathBase(filePath)))
			}

			return types.NewAllow(gate15Name)
		},
	}
}
