package gatepipeline

import (
	"fmt"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

const gate04Name = "GATE 4: MEMORY FIRST"

const (
	memoryFreshnessWindow = 300.0 // seconds
	writeFreshnessWindow  = 600.0 // seconds — Write gets more time for composition
)

var gatedTools = map[string]bool{"Edit": true, "Write": true, "NotebookEdit": true, "Task": true}
var readOnlyAgents = map[string]bool{"researcher": true, "Explore": true}

// NewMemoryFirstGate denies edits and task spawning unless memory has been
// queried within a per-tool freshness window, so the agent always checks
// existing knowledge before acting on it.
func NewMemoryFirstGate() Gate {
	return GateFunc{
		GateNameValue: gate04Name,
		GateTierValue: TierQuality,
		CheckFunc: func(toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) *types.GateResult {
			if eventType != "PreToolUse" || !gatedTools[toolName] {
				return types.NewAllow(gate04Name)
			}

			if toolName == "Task" {
				if readOnlyAgents[stringField(toolInput, "subagent_type")] {
					return types.NewAllow(gate04Name)
				}
			}

			filePath := extractFilePath(toolInput)
			if filePath != "" && IsExemptBase(filePath) {
				if state.Gate4Exemptions == nil {
					state.Gate4Exemptions = map[string]int{}
				}
				state.Gate4Exemptions[pathBase(filePath)]++
				return types.NewAllow(gate04Name)
			}

			memoryLastQueried := deps.Store.MemoryFreshness(state)

			if toolName == "Write" && filePath != "" && !deps.FileExists(filePath) {
				if memoryLastQueried > 0 {
					return types.NewAllow(gate04Name)
				}
			}

			now := float64(deps.Now().Unix())
			elapsed := now - memoryLastQueried

			baseWindow := memoryFreshnessWindow
			if toolName == "Write" {
				baseWindow = writeFreshnessWindow
			}
			freshnessWindow := state.TuneOverride("gate_04_memory_first.freshness_window", baseWindow)

			if elapsed > freshnessWindow {
				var msg string
				if memoryLastQueried == 0 {
					msg = fmt.Sprintf("[%s] BLOCKED: Query memory before editing. Use search_knowledge() to check for existing knowledge about what you're changing.", gate04Name)
				} else {
					minutes := int(elapsed / 60)
					msg = fmt.Sprintf("[%s] BLOCKED: Memory last queried %d min ago. Query memory again before editing (stale knowledge window).", gate04Name, minutes)
				}
				return types.NewBlock(gate04Name, msg)
			}

			return types.NewAllow(gate04Name)
		},
	}
}
