package tracker

import (
	"fmt"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

// outcomeChainInterval: the classifier only fires every Nth call, the
// same throttle the original module used to avoid re-scoring on every
// single tool invocation.
const outcomeChainInterval = 10

const (
	stuckThreshold   = 0.7
	churnEditRatio   = 0.6
	churnTestRatio   = 0.3
	healthyReadRatio = 0.5
	healthyTestRatio = 0.3

	stuckScore   = 0.2
	churnScore   = 0.3
	healthyScore = 0.9
	neutralScore = 0.7
)

// ChainEvaluation is the outcome-chains mentor's verdict for one call.
type ChainEvaluation struct {
	Pattern string
	Score   float64
	Message string
}

// evaluateOutcomeChains classifies the recent mix of tool calls into
// stuck / churn / healthy / neutral, firing only every outcomeChainInterval
// calls and only once at least that many calls have happened. It writes
// state.MentorChainPattern/MentorChainScore regardless of whether it
// returns a non-nil evaluation to the caller.
func evaluateOutcomeChains(state *types.SessionState, deps *Deps) *ChainEvaluation {
	if state.ToolCallCount == 0 || state.ToolCallCount%outcomeChainInterval != 0 {
		return nil
	}
	total := totalCalls(state.ToolCallCounts)
	if total < outcomeChainInterval {
		return nil
	}

	var pattern, message string
	score := neutralScore

	if maxTool, maxCount := dominantTool(state.ToolCallCounts); maxTool != "" {
		ratio := float64(maxCount) / float64(total)
		if ratio >= stuckThreshold {
			pattern = "stuck"
			score = stuckScore
			message = fmt.Sprintf("Stuck loop: %s is %.0f%% of last %d calls", maxTool, ratio*100, total)
		}
	}

	if pattern == "" {
		editCount := sumCounts(state.ToolCallCounts, "Edit", "Write", "NotebookEdit")
		testCount := state.ToolCallCounts["Bash"]
		if editCount > 0 {
			editRatio := float64(editCount) / float64(total)
			if editRatio > churnEditRatio && float64(testCount) < float64(editCount)*churnTestRatio {
				pattern = "churn"
				score = churnScore
				message = fmt.Sprintf("Edit churn: %d edits vs %d bash calls (edit ratio %.0f%%)", editCount, testCount, editRatio*100)
			}
		}
	}

	if pattern == "" {
		readCount := sumCounts(state.ToolCallCounts, "Read", "Grep", "Glob")
		editCount := sumCounts(state.ToolCallCounts, "Edit", "Write")
		testCount := state.ToolCallCounts["Bash"]
		if readCount > 0 && editCount > 0 && testCount > 0 {
			if float64(readCount) >= float64(editCount)*healthyReadRatio && float64(testCount) >= float64(editCount)*healthyTestRatio {
				pattern = "healthy"
				score = healthyScore
				message = fmt.Sprintf("Healthy pattern: %dR/%dE/%dT", readCount, editCount, testCount)
			}
		}
	}

	state.MentorChainPattern = pattern
	state.MentorChainScore = score

	return &ChainEvaluation{Pattern: pattern, Score: score, Message: message}
}

func totalCalls(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

func dominantTool(counts map[string]int) (tool string, count int) {
	for t, n := range counts {
		if n > count {
			tool, count = t, n
		}
	}
	return tool, count
}

func sumCounts(counts map[string]int, tools ...string) int {
	total := 0
	for _, t := range tools {
		total += counts[t]
	}
	return total
}
