package tracker

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/steveyegge/vc-sentinel/internal/signature"
	"github.com/steveyegge/vc-sentinel/internal/types"
)

// testCommandPatterns recognizes a shell invocation as a test-framework
// run, mirroring gatepipeline's deploy-pattern table in shape: an ordered
// (pattern, label) list checked against the Bash command string.
var testCommandPatterns = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`(?i)\bpytest\b`), "pytest"},
	{regexp.MustCompile(`(?i)\bpython\s+-m\s+pytest\b`), "pytest"},
	{regexp.MustCompile(`(?i)\bgo\s+test\b`), "go test"},
	{regexp.MustCompile(`(?i)\bnpm\s+test\b`), "npm test"},
	{regexp.MustCompile(`(?i)\byarn\s+test\b`), "yarn test"},
	{regexp.MustCompile(`(?i)\bcargo\s+test\b`), "cargo test"},
	{regexp.MustCompile(`(?i)\bmake\s+test\b`), "make test"},
	{regexp.MustCompile(`(?i)\bjest\b`), "jest"},
	{regexp.MustCompile(`(?i)\bmocha\b`), "mocha"},
	{regexp.MustCompile(`(?i)\brspec\b`), "rspec"},
	{regexp.MustCompile(`(?i)\bphpunit\b`), "phpunit"},
	{regexp.MustCompile(`(?i)\bdotnet\s+test\b`), "dotnet test"},
	{regexp.MustCompile(`(?i)\bmvn\s+test\b`), "maven"},
	{regexp.MustCompile(`(?i)\bgradle\s+test\b`), "gradle"},
}

// BroadTestCommands is the named, tunable allow-list of "run the whole
// suite" invocations (spec.md §9's open question): matching one of these
// clears pending_verification and edit_streak entirely rather than just
// the files named on the command line.
var BroadTestCommands = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*pytest\s*$`),
	regexp.MustCompile(`(?i)^\s*python\s+-m\s+pytest\s*$`),
	regexp.MustCompile(`(?i)^\s*go\s+test\s+\./\.\.\.\s*$`),
	regexp.MustCompile(`(?i)^\s*npm\s+test\s*$`),
	regexp.MustCompile(`(?i)^\s*make\s+test\s*$`),
	regexp.MustCompile(`(?i)^\s*cargo\s+test\s*$`),
}

func isBroadTestCommand(command string) bool {
	for _, re := range BroadTestCommands {
		if re.MatchString(command) {
			return true
		}
	}
	return false
}

func matchTestCommand(command string) (label string, ok bool) {
	for _, p := range testCommandPatterns {
		if p.re.MatchString(command) {
			return p.label, true
		}
	}
	return "", false
}

// applyVerification implements spec.md §4.2 step 2: shell/test command
// bookkeeping, Edit/Write/NotebookEdit pending-verification tracking, and
// Read's files_read accumulation.
func applyVerification(toolName string, toolInput, toolResponse map[string]any, state *types.SessionState, deps *Deps) {
	now := float64(deps.Now().Unix())

	switch toolName {
	case "Bash":
		command := stringInput(toolInput, "command")
		if command == "" {
			return
		}
		if _, ok := matchTestCommand(command); !ok {
			return
		}

		exitCode := responseExitCode(toolResponse)
		state.LastTestRun = now
		state.LastTestCommand = command
		state.LastTestExitCode = exitCode

		if exitCode != nil && *exitCode != 0 {
			pattern, _ := signature.ErrorSignature(combinedOutput(toolResponse))
			state.RecentTestFailure = &types.RecentTestFailure{
				Pattern:   pattern,
				Timestamp: deps.Now(),
			}
		} else {
			state.RecentTestFailure = nil
		}

		if isBroadTestCommand(command) {
			state.PendingVerification = []string{}
			state.EditStreak = map[string]int{}
			state.SessionTestBaseline = true
			return
		}

		if exitCode != nil && *exitCode == 0 {
			clearVerificationMarkersForCommand(command, state)
		}

	case "Edit", "Write", "NotebookEdit":
		path := stringInput(toolInput, "file_path")
		if path == "" {
			path = stringInput(toolInput, "notebook_path")
		}
		if path == "" {
			return
		}
		if !containsString(state.PendingVerification, path) {
			state.PendingVerification = append(state.PendingVerification, path)
		}
		if state.EditStreak == nil {
			state.EditStreak = map[string]int{}
		}
		state.EditStreak[path]++
		if state.VerificationScores == nil {
			state.VerificationScores = map[string]types.VerificationScore{}
		}
		state.VerificationScores[path] = types.ScoreUnverified

	case "Read":
		path := stringInput(toolInput, "file_path")
		if path == "" {
			path = stringInput(toolInput, "notebook_path")
		}
		if path == "" {
			return
		}
		canonical := filepath.Clean(path)
		if !containsString(state.FilesRead, canonical) {
			state.FilesRead = append(state.FilesRead, canonical)
		}
	}
}

// clearVerificationMarkersForCommand marks any pending file whose
// basename appears as a token in command as fully verified and drops it
// from pending_verification -- a test run that names specific files
// verifies just those files, not the whole session.
func clearVerificationMarkersForCommand(command string, state *types.SessionState) {
	if len(state.PendingVerification) == 0 {
		return
	}
	remaining := state.PendingVerification[:0:0]
	for _, path := range state.PendingVerification {
		base := filepath.Base(path)
		if base != "" && strings.Contains(command, base) {
			if state.VerificationScores == nil {
				state.VerificationScores = map[string]types.VerificationScore{}
			}
			state.VerificationScores[path] = types.ScoreVerified
			continue
		}
		remaining = append(remaining, path)
	}
	state.PendingVerification = remaining
}

func stringInput(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func responseExitCode(toolResponse map[string]any) *int {
	if toolResponse == nil {
		return nil
	}
	switch v := toolResponse["exit_code"].(type) {
	case float64:
		n := int(v)
		return &n
	case int:
		return &v
	}
	return nil
}

func combinedOutput(toolResponse map[string]any) string {
	if toolResponse == nil {
		return ""
	}
	var b strings.Builder
	if s, ok := toolResponse["stdout"].(string); ok {
		b.WriteString(s)
	}
	if s, ok := toolResponse["stderr"].(string); ok {
		b.WriteString("\n")
		b.WriteString(s)
	}
	return b.String()
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
