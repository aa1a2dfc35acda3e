package tracker

import (
	"fmt"
	"strings"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

// analyticsTrigger maps a path fragment to the analytics tool worth
// suggesting, its per-type cooldown, and a human label for the nudge
// text. The first matching fragment wins -- a single edit never
// recommends more than one tool.
type analyticsTrigger struct {
	fragment     string
	suggestedKey string
	cooldownSecs float64
	label        string
}

var analyticsTriggers = []analyticsTrigger{
	{"/gates/", "gate_dashboard", 900, "gate file"},
	{"/skills/", "skill_health", 900, "skill file"},
	{"enforcer", "gate_timing", 1200, "enforcer"},
	{"tracker", "gate_timing", 1200, "tracker"},
	{"/shared/", "gate_timing", 1200, "shared module"},
}

// analyticsPeriodicInterval is the checkpoint cadence for the
// session-summary nudge, independent of the per-edit triggers above.
const analyticsPeriodicInterval = 50

// analyticsPeriodicCooldown throttles the session-summary nudge itself.
const analyticsPeriodicCooldown = 1800

func analyticsUsedRecently(state *types.SessionState, key string, cooldown float64, now float64) bool {
	if state.AnalyticsNudgeCooldowns == nil {
		return false
	}
	last, ok := state.AnalyticsNudgeCooldowns[key]
	if !ok {
		return false
	}
	return now-last < cooldown
}

func markAnalyticsUsed(state *types.SessionState, key string, now float64) {
	if state.AnalyticsNudgeCooldowns == nil {
		state.AnalyticsNudgeCooldowns = map[string]float64{}
	}
	state.AnalyticsNudgeCooldowns[key] = now
}

// recordAnalyticsToolUsage marks an analytics MCP tool as actually used
// so the next edit-triggered nudge for that tool stays quiet through its
// own cooldown window, independent of whether this call itself was a
// nudge.
func recordAnalyticsToolUsage(toolName string, state *types.SessionState, deps *Deps) {
	const prefix = "mcp__analytics__"
	if !strings.HasPrefix(toolName, prefix) {
		return
	}
	markAnalyticsUsed(state, strings.TrimPrefix(toolName, prefix), float64(deps.Now().Unix()))
}

// evaluateAnalyticsMentor implements the analytics-awareness nudges:
// edits to framework-owned paths suggest the matching analytics tool
// (throttled per suggestion type), and every Nth call emits a
// session-summary checkpoint nudge. Returns the nudge strings to surface
// on stderr; an empty slice means nothing to say this call.
func evaluateAnalyticsMentor(toolName string, toolInput map[string]any, state *types.SessionState, deps *Deps) []string {
	if !deps.Toggles.LiveToggle("mentor_analytics") && !deps.Toggles.LiveToggle("mentor_all") {
		return nil
	}

	var messages []string
	now := float64(deps.Now().Unix())

	if toolName == "Edit" || toolName == "Write" {
		path := stringInput(toolInput, "file_path")
		if path != "" {
			for _, trig := range analyticsTriggers {
				if strings.Contains(path, trig.fragment) {
					if !analyticsUsedRecently(state, trig.suggestedKey, trig.cooldownSecs, now) {
						messages = append(messages, fmt.Sprintf(
							"You edited a %s. Run mcp__analytics__%s() to check impact.",
							trig.label, trig.suggestedKey))
						markAnalyticsUsed(state, trig.suggestedKey, now)
					}
					break
				}
			}
		}
	}

	total := totalCalls(state.ToolCallCounts)
	if total > 0 && total%analyticsPeriodicInterval == 0 {
		if !analyticsUsedRecently(state, "session_summary", analyticsPeriodicCooldown, now) {
			messages = append(messages, fmt.Sprintf(
				"[%d tool calls] Run mcp__analytics__session_summary() for a checkpoint.", total))
			markAnalyticsUsed(state, "session_summary", now)
		}
	}

	return messages
}
