package gatepipeline

import (
	"fmt"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

const gate16Name = "GATE 16: HINDSIGHT"

const (
	hindsightScoreBlockThreshold      = 0.3
	hindsightEscalationBlockThreshold = 2
	hindsightChainScoreWarnThreshold  = 0.3
)

var hindsightWatchedTools = map[string]bool{"Edit": true, "Write": true, "NotebookEdit": true}

// NewHindsightGate reads the mentor signals the Post-Tool Tracker writes
// (outcome chains, memory mentor, analytics mentor) and denies further
// edits when they indicate sustained poor quality: a critically low
// mentor score combined with repeated consecutive escalations. Short of
// that, it warns on a low outcome-chain score or surfaces historical
// context from a memory match. It never reads pending_verification,
// edit_streak, fixing_error, or fix_history_queried for its own decision
// -- those are Gate 5's and Gate 12's territory, and this gate defers to
// them entirely while fixing_error is set.
func NewHindsightGate() Gate {
	return GateFunc{
		GateNameValue: gate16Name,
		GateTierValue: TierAdvisory,
		CheckFunc: func(toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) *types.GateResult {
			if eventType != "PreToolUse" || !hindsightWatchedTools[toolName] {
				return types.NewAllow(gate16Name)
			}

			if !(deps.Toggles.LiveToggle("mentor_hindsight_gate") || deps.Toggles.LiveToggle("mentor_all")) {
				return types.NewAllow(gate16Name)
			}

			if state.FixingError {
				return types.NewAllow(gate16Name)
			}

			filePath := extractFilePath(toolInput)
			if IsExemptStandard(filePath) {
				return types.NewAllow(gate16Name)
			}

			mentorScore := state.MentorLastScore
			if mentorScore == 0 && state.MentorLastVerdict == "" {
				mentorScore = 1.0 // never evaluated this session -- treat as healthy
			}
			mentorVerdict := state.MentorLastVerdict
			if mentorVerdict == "" {
				mentorVerdict = "proceed"
			}
			escalationCount := state.MentorEscalationCount
			chainScore := state.MentorChainScore
			if chainScore == 0 && state.MentorChainPattern == "" {
				chainScore = 1.0
			}
			warnedThisCycle := state.MentorWarnedThisCycle

			if mentorScore < hindsightScoreBlockThreshold && escalationCount >= hindsightEscalationBlockThreshold {
				return types.NewBlock(gate16Name, fmt.Sprintf(
					"[%s] BLOCKED: Mentor score critically low (%s) with %d consecutive escalations. Last verdict: %s. Run tests, verify your approach, or check memory for prior solutions.",
					gate16Name, formatScore(mentorScore), escalationCount, mentorVerdict))
			}

			if chainScore < hindsightChainScoreWarnThreshold && !warnedThisCycle {
				pattern := state.MentorChainPattern
				if pattern == "" {
					pattern = "unknown"
				}
				return types.NewWarn(gate16Name, fmt.Sprintf(
					"[%s] WARNING: Outcome chain score low (%s, pattern: %s). Consider changing approach.",
					gate16Name, formatScore(chainScore), pattern))
			}

			if state.MentorMemoryMatch && !warnedThisCycle && state.MentorHistoricalContext != "" {
				result := types.NewWarn(gate16Name, fmt.Sprintf("[%s] INFO: %s", gate16Name, state.MentorHistoricalContext))
				result.Severity = types.SeverityInfo
				return result
			}

			return types.NewAllow(gate16Name)
		},
	}
}
