package tracker

import (
	"strings"
	"time"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

// errorSignatures is the broader, first-match-wins list scanned against
// combined stdout+stderr on every tool response. Order matters only in
// that the first hit is the one recorded; a command can legitimately
// trip several of these at once (e.g. a traceback that also prints
// "FAILED") and only the earliest-listed signature is kept.
var errorSignatures = []string{
	"Traceback",
	"SyntaxError:",
	"ImportError:",
	"ModuleNotFoundError:",
	"Permission denied",
	"npm ERR!",
	"fatal:",
	"error[E",
	"FAILED",
	"command not found",
	"No such file or directory",
	"ConnectionRefusedError",
	"OSError:",
}

// errorWindowDedupe is the same-pattern suppression window: a pattern
// seen again within this duration bumps the existing window's count
// instead of being treated as a fresh occurrence.
const errorWindowDedupe = 60 * time.Second

// maxErrorWindows caps the number of distinct tracked patterns; the
// oldest (by LastSeen) is evicted once the cap is exceeded.
const maxErrorWindows = 50

// detectErrors scans toolResponse for the first matching error signature
// and records it. Returns true if an error was detected (used by callers
// deciding whether this call deserves a higher observation priority).
func detectErrors(toolInput, toolResponse map[string]any, state *types.SessionState, deps *Deps) bool {
	text := combinedOutput(toolResponse)
	if text == "" {
		return false
	}

	var pattern string
	for _, sig := range errorSignatures {
		if strings.Contains(text, sig) {
			pattern = sig
			break
		}
	}
	if pattern == "" {
		return false
	}

	state.UnloggedErrors = append(state.UnloggedErrors, pattern)
	if state.ErrorPatternCounts == nil {
		state.ErrorPatternCounts = map[string]int{}
	}
	state.ErrorPatternCounts[pattern]++

	deduplicateErrorWindow(state, pattern, deps.Now())
	return true
}

// deduplicateErrorWindow applies the 60s same-pattern window: a repeat
// within the window just bumps Count and LastSeen; a new pattern (or one
// whose window expired) gets a fresh entry, evicting the globally oldest
// entry first if the cap would be exceeded.
func deduplicateErrorWindow(state *types.SessionState, pattern string, now time.Time) {
	if state.ErrorWindows == nil {
		state.ErrorWindows = map[string]*types.ErrorWindow{}
	}

	if w, ok := state.ErrorWindows[pattern]; ok && now.Sub(w.LastSeen) < errorWindowDedupe {
		w.Count++
		w.LastSeen = now
		return
	}

	if len(state.ErrorWindows) >= maxErrorWindows {
		evictOldestWindow(state)
	}
	state.ErrorWindows[pattern] = &types.ErrorWindow{
		Pattern:  pattern,
		LastSeen: now,
		Count:    1,
	}
}

func evictOldestWindow(state *types.SessionState) {
	var oldestKey string
	var oldestTime time.Time
	first := true
	for k, w := range state.ErrorWindows {
		if first || w.LastSeen.Before(oldestTime) {
			oldestKey = k
			oldestTime = w.LastSeen
			first = false
		}
	}
	if oldestKey != "" {
		delete(state.ErrorWindows, oldestKey)
	}
}
