package gatepipeline

import (
	"fmt"
	"strings"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

const gate11Name = "GATE 11: CONFIDENCE CHECK"

// confidenceMaxWarnings blocks on the (confidenceMaxWarnings+1)th attempt
// to edit the same target file while confidence signals still fail.
const confidenceMaxWarnings = 2

func isReEdit(filePath string, state *types.SessionState) bool {
	if filePath == "" {
		return false
	}
	for _, p := range state.PendingVerification {
		if p == filePath {
			return true
		}
	}
	return false
}

// checkConfidenceSignals returns the human-readable failure descriptions
// for every confidence signal currently failing.
func checkConfidenceSignals(state *types.SessionState) []string {
	var failures []string
	if !state.SessionTestBaseline {
		failures = append(failures, "no test run this session")
	}
	if len(state.PendingVerification) > 0 && !state.FixingError {
		failures = append(failures, fmt.Sprintf("%d file(s) with unverified edits", len(state.PendingVerification)))
	}
	return failures
}

func stringSetContains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// NewConfidenceCheckGate denies new-file edits made without supporting
// evidence (no test run this session, or unresolved unverified edits),
// warning once per failing signal before progressively blocking repeated
// attempts on the same target file.
func NewConfidenceCheckGate() Gate {
	return GateFunc{
		GateNameValue: gate11Name,
		GateTierValue: TierQuality,
		CheckFunc: func(toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) *types.GateResult {
			if eventType != "PreToolUse" {
				return types.NewAllow(gate11Name)
			}
			if toolName != "Edit" && toolName != "Write" && toolName != "NotebookEdit" {
				return types.NewAllow(gate11Name)
			}

			filePath := extractFilePath(toolInput)
			if IsExemptFull(filePath, nil) {
				return types.NewAllow(gate11Name)
			}
			if isReEdit(filePath, state) {
				return types.NewAllow(gate11Name)
			}

			failures := checkConfidenceSignals(state)
			if len(failures) == 0 {
				if state.ConfidenceWarningsPerFile != nil {
					delete(state.ConfidenceWarningsPerFile, filePath)
				}
				return types.NewAllow(gate11Name)
			}

			if state.ConfidenceWarningsPerFile == nil {
				state.ConfidenceWarningsPerFile = map[string]int{}
			}
			fileWarnings := state.ConfidenceWarningsPerFile[filePath] + 1
			state.ConfidenceWarningsPerFile[filePath] = fileWarnings
			failureStr := strings.Join(failures, "; ")

			maxWarnings := int(state.TuneOverride("gate_11_confidence_check.max_warnings", float64(confidenceMaxWarnings)))
			if fileWarnings > maxWarnings {
				result := types.NewBlock(gate11Name, fmt.Sprintf(
					"[%s] BLOCKED: Low confidence (%s). Run a Bash command (e.g. a test suite) to set test baseline and clear pending verification. (%d attempts on %s -- exceeded %d warning limit)",
					gate11Name, failureStr, fileWarnings, pathBase(filePath), maxWarnings))
				result.Severity = types.SeverityWarn
				return result
			}

			var newFailures []string
			for _, f := range failures {
				if !stringSetContains(state.ConfidenceWarnedSignals, f) {
					newFailures = append(newFailures, f)
				}
			}
			if len(newFailures) == 0 {
				return types.NewAllow(gate11Name)
			}
			for _, f := range failures {
				if !stringSetContains(state.ConfidenceWarnedSignals, f) {
					state.ConfidenceWarnedSignals = append(state.ConfidenceWarnedSignals, f)
				}
			}

			result := types.NewWarn(gate11Name, fmt.Sprintf(
				"[%s] WARNING (%d/%d): Low confidence (%s). Consider running tests or verifying pending edits first.",
				gate11Name, fileWarnings, maxWarnings, failureStr))
			return result
		},
	}
}
