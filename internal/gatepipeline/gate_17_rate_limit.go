package gatepipeline

import (
	"fmt"
	"os"
	"strings"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

const gate17Name = "GATE 17: RATE LIMIT"

const (
	rateBlockThreshold = 60.0 // calls/minute -- hard block
	rateWarnThreshold  = 40.0 // calls/minute -- stderr warning
	rateWindowSeconds  = 120.0
	rateMaxEntries     = 200
)

const analyticsToolPrefix = "mcp__analytics__"

// NewRateLimitGate denies tool calls once the rolling per-session rate
// exceeds a hard ceiling, and warns well before that point. Registered
// last so an earlier block doesn't still get counted toward the window.
func NewRateLimitGate() Gate {
	return GateFunc{
		GateNameValue: gate17Name,
		GateTierValue: TierQuality,
		CheckFunc: func(toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) *types.GateResult {
			if eventType != "PreToolUse" {
				return types.NewAllow(gate17Name)
			}
			if strings.HasPrefix(toolName, analyticsToolPrefix) {
				return types.NewAllow(gate17Name)
			}

			now := float64(deps.Now().UnixNano()) / 1e9
			timestamps := append(state.RateWindowTimestamps, now)

			cutoff := now - rateWindowSeconds
			var recent []float64
			for _, t := range timestamps {
				if t > cutoff {
					recent = append(recent, t)
				}
			}
			if len(recent) > rateMaxEntries {
				recent = recent[len(recent)-rateMaxEntries:]
			}
			state.RateWindowTimestamps = recent

			if len(recent) <= 1 {
				return types.NewAllow(gate17Name)
			}

			windowedRate := float64(len(recent)) / (rateWindowSeconds / 60.0)

			blockThreshold := state.TuneOverride("gate_11_rate_limit.block_threshold", rateBlockThreshold)
			if windowedRate > blockThreshold {
				return types.NewBlock(gate17Name, fmt.Sprintf(
					"[%s] BLOCKED: Tool call rate is %.1f calls/min (%d calls in %.0fs window, limit: %.0f/min). Slow down -- consider batching work or waiting before the next call.",
					gate17Name, windowedRate, len(recent), rateWindowSeconds, rateBlockThreshold))
			}

			if windowedRate > rateWarnThreshold {
				msg := fmt.Sprintf(
					"[%s] WARNING: Tool call rate is %.1f calls/min (%d calls in %.0fs window, warn: %.0f/min). Consider slowing down.",
					gate17Name, windowedRate, len(recent), rateWindowSeconds, rateWarnThreshold)
				fmt.Fprintln(os.Stderr, msg)
				return types.NewWarn(gate17Name, msg)
			}

			return types.NewAllow(gate17Name)
		},
	}
}
