package gatepipeline

import (
	"fmt"
	"regexp"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

const gate02Name = "GATE 2: NO-DESTROY"

// destroyPatterns mirrors the deploy-pattern idiom of Gate 3: a fixed,
// ordered (pattern, category) list matched against the Bash command
// string, case-insensitively.
var destroyPatterns = []struct {
	re       *regexp.Regexp
	category string
}{
	{regexp.MustCompile(`(?i)\brm\s+(-[a-z]*r[a-z]*f[a-z]*|-[a-z]*f[a-z]*r[a-z]*)\s+/(\s|$)`), "recursive delete of filesystem root"},
	{regexp.MustCompile(`(?i)\brm\s+-[a-z]*r[a-z]*f[a-z]*\s+(\.|\.\.|~)(\s|/|$)`), "recursive delete of home or working tree"},
	{regexp.MustCompile(`(?i)\bgit\s+reset\s+--hard\b`), "hard reset discards uncommitted work"},
	{regexp.MustCompile(`(?i)\bgit\s+clean\s+-[a-z]*d[a-z]*f[a-z]*\b`), "clean removes untracked files"},
	{regexp.MustCompile(`(?i)\bgit\s+push\s+.*--force\b`), "force push can overwrite remote history"},
	{regexp.MustCompile(`(?i)\bgit\s+branch\s+-D\b`), "forced branch deletion"},
	{regexp.MustCompile(`(?i)\bdrop\s+(table|database|schema)\b`), "destructive SQL"},
	{regexp.MustCompile(`(?i)\btruncate\s+table\b`), "destructive SQL"},
	{regexp.MustCompile(`(?i)\bmkfs\b`), "filesystem reformat"},
	{regexp.MustCompile(`(?i)\bdd\s+.*\bof=/dev/`), "raw device write"},
	{regexp.MustCompile(`(?i)\b:(){ :\|:& };:`), "fork bomb"},
}

// NewNoDestroyGate denies Bash commands matching a fixed, ordered list of
// irreversible destructive patterns: recursive deletes of broad paths,
// forced git history rewrites, destructive SQL, and raw device writes.
// Unlike Gate 3 (deploy), this gate has no freshness escape hatch — a
// matching command is always denied.
func NewNoDestroyGate() Gate {
	return GateFunc{
		GateNameValue: gate02Name,
		GateTierValue: TierSafety,
		CheckFunc: func(toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) *types.GateResult {
			if eventType != "PreToolUse" || toolName != "Bash" {
				return types.NewAllow(gate02Name)
			}

			command := stringField(toolInput, "command")
			for _, p := range destroyPatterns {
				if p.re.MatchString(command) {
					return types.NewBlock(gate02Name, fmt.Sprintf(
						"[%s] BLOCKED: Command matches a destructive pattern (%s). "+
							"If this is intentional, run it outside the agent session.",
						gate02Name, p.category))
				}
			}
			return types.NewAllow(gate02Name)
		},
	}
}
