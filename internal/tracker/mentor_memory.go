package tracker

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

// memoryQueryTimeout bounds the memory mentor's gateway round trip; a
// slow or hung gateway must never stall the post-tool hook.
const memoryQueryTimeout = 2 * time.Second

// memoryRelevanceThreshold is the cosine-distance ceiling for treating a
// hit as a genuine historical match rather than noise.
const memoryRelevanceThreshold = 0.5

// MemoryMatch is the memory mentor's verdict: the best historical hit
// under the relevance threshold, if any.
type MemoryMatch struct {
	ID       string
	Document string
	Distance float64
	Query    string
	Context  string
}

// extractQueryContext builds a short search query from whatever signal is
// available: the active failure pattern, the file being touched, the
// Bash command, and the current fix strategy, in that priority order,
// capped at three parts the way the original module truncates its query.
func extractQueryContext(toolName string, toolInput map[string]any, state *types.SessionState) string {
	var parts []string

	if state.RecentTestFailure != nil && state.RecentTestFailure.Pattern != "" {
		parts = append(parts, "error: "+state.RecentTestFailure.Pattern)
	}

	path := stringInput(toolInput, "file_path")
	if path == "" {
		path = stringInput(toolInput, "notebook_path")
	}
	if path != "" {
		parts = append(parts, filepath.Base(path))
	}

	if toolName == "Bash" {
		if cmd := stringInput(toolInput, "command"); cmd != "" {
			parts = append(parts, truncate(cmd, 100))
		}
	}

	if state.CurrentStrategyID != "" {
		parts = append(parts, "strategy: "+state.CurrentStrategyID)
	}

	if len(parts) == 0 {
		return ""
	}
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, " ")
}

// evaluateMemoryMentor queries the memory gateway for historical context
// relevant to the current call. Completely fail-open: a nil Memory
// client, an unreachable gateway, an empty response, or a best match
// outside the relevance threshold all just return nil.
func evaluateMemoryMentor(toolName string, toolInput map[string]any, state *types.SessionState, deps *Deps) *MemoryMatch {
	if deps.Memory == nil {
		return nil
	}
	if !deps.Toggles.LiveToggle("mentor_all") {
		return nil
	}

	query := extractQueryContext(toolName, toolInput, state)
	if query == "" {
		return nil
	}

	resp, err := deps.Memory.Query(query, 3, memoryQueryTimeout)
	if err != nil || resp == nil || len(resp.Documents) == 0 || len(resp.Distances) == 0 {
		return nil
	}

	bestIdx := -1
	bestDistance := resp.Distances[0] + 1
	for i, d := range resp.Distances {
		if d < bestDistance {
			bestDistance = d
			bestIdx = i
		}
	}
	if bestIdx < 0 || bestDistance > memoryRelevanceThreshold {
		return nil
	}

	doc := ""
	if bestIdx < len(resp.Documents) {
		doc = resp.Documents[bestIdx]
	}
	id := ""
	if bestIdx < len(resp.IDs) {
		id = resp.IDs[bestIdx]
	}

	match := &MemoryMatch{
		ID:       id,
		Document: truncate(doc, 500),
		Distance: bestDistance,
		Query:    truncate(query, 200),
		Context:  truncate(fmt.Sprintf("Historical match (distance=%.3f): %s", bestDistance, truncate(doc, 200)), 500),
	}

	state.MentorMemoryMatch = true
	state.MentorHistoricalContext = match.Context

	return match
}
