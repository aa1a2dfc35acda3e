package gatepipeline

import (
	"fmt"
	"os"
	"strings"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

const gate05Name = "GATE 5: PROOF BEFORE FIXED"

// blockThreshold is the effective-unverified count at which edits are
// denied outright; there is no warn phase for the aggregate count, only
// for the same-file streak below.
const blockThreshold = 3.0

// NewProofBeforeFixedGate denies further edits to other files once too
// many edits are pending verification, and denies repeated edits to the
// same file without an intervening verification command.
func NewProofBeforeFixedGate() Gate {
	return GateFunc{
		GateNameValue: gate05Name,
		GateTierValue: TierQuality,
		CheckFunc: func(toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) *types.GateResult {
			if eventType != "PreToolUse" {
				return types.NewAllow(gate05Name)
			}
			if toolName != "Edit" && toolName != "Write" && toolName != "NotebookEdit" {
				return types.NewAllow(gate05Name)
			}

			filePath := extractFilePath(toolInput)
			if IsExemptBase(filePath) {
				return types.NewAllow(gate05Name)
			}
			if isTestFile(filePath) {
				return types.NewAllow(gate05Name)
			}

			var pendingOther []string
			for _, p := range state.PendingVerification {
				if p != filePath {
					pendingOther = append(pendingOther, p)
				}
			}

			currentStreak := state.EditStreak[filePath]

			if currentStreak >= 3 {
				fmt.Fprintf(os.Stderr, "[%s] WARNING: %s edited %d times without verification. Run any Bash command (test, lint, script) to verify and reset the counter.\n",
					gate05Name, pathBase(filePath), currentStreak+1)
			}

			if currentStreak >= 5 {
				return types.NewBlock(gate05Name, fmt.Sprintf(
					"[%s] BLOCKED: %s edited %d times without verification. Run any Bash command (test, script, or check) to reset and continue.",
					gate05Name, pathBase(filePath), currentStreak+1))
			}

			effectiveUnverified := 0.0
			for _, p := range pendingOther {
				score := state.VerificationScores[p]
				if score > 0 {
					effectiveUnverified += 0.5
				} else {
					effectiveUnverified += 1.0
				}
			}

			blockAt := state.TuneOverride("gate_05_proof_before_fixed.block_threshold", blockThreshold)
			if effectiveUnverified >= blockAt {
				n := len(pendingOther)
				if n > 5 {
					n = 5
				}
				names := make([]string, n)
				for i := 0; i < n; i++ {
					names[i] = pathBase(pendingOther[i])
				}
				return types.NewBlock(gate05Name, fmt.Sprintf(
					"[%s] BLOCKED: %d files with unverified edits (%s). Run any Bash command (pytest, python script, etc.) to verify and clear pending files.",
					gate05Name, len(pendingOther), strings.Join(names, ", ")))
			}

			return types.NewAllow(gate05Name)
		},
	}
}
