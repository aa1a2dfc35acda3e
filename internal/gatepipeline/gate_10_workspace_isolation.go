package gatepipeline

import (
	"fmt"
	"path/filepath"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

const gate10Name = "GATE 10: WORKSPACE ISOLATION"

// NewWorkspaceIsolationGate denies an edit when another non-main session
// holds a live claim on the target file, so two agents sharing a
// workspace don't clobber each other's in-flight edits. Solo sessions
// (session_id == "main") are exempt.
func NewWorkspaceIsolationGate() Gate {
	return GateFunc{
		GateNameValue: gate10Name,
		GateTierValue: TierQuality,
		CheckFunc: func(toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) *types.GateResult {
			if eventType != "PreToolUse" {
				return types.NewAllow(gate10Name)
			}
			if toolName != "Edit" && toolName != "Write" && toolName != "NotebookEdit" {
				return types.NewAllow(gate10Name)
			}
			if state.SessionID == "main" {
				return types.NewAllow(gate10Name)
			}

			filePath := extractFilePath(toolInput)
			if filePath == "" {
				return types.NewAllow(gate10Name)
			}
			filePath = filepath.Clean(filePath)

			owner, err := deps.Store.ClaimOwner(filePath)
			if err != nil {
				result := types.NewWarn(gate10Name, fmt.Sprintf(
					"[%s] WARNING: Gate crashed (non-blocking): %v", gate10Name, err))
				return result
			}

			if owner != "" && owner != state.SessionID {
				result := types.NewBlock(gate10Name, fmt.Sprintf(
					"[%s] BLOCKED: File '%s' is currently being edited by session '%s'. Wait for the other agent to finish or work on a different file.",
					gate10Name, filePath, owner))
				result.Severity = types.SeverityWarn
				return result
			}

			if _, err := deps.Store.Claim(state.SessionID, filePath); err != nil {
				return types.NewWarn(gate10Name, fmt.Sprintf(
					"[%s] WARNING: Gate crashed (non-blocking): %v", gate10Name, err))
			}

			return types.NewAllow(gate10Name)
		},
	}
}
