package gatepipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

const gate03Name = "GATE 3: TEST BEFORE DEPLOY"

// testFreshnessWindow is the max time since last_test_run before a deploy
// command is denied.
const testFreshnessWindow = 1800.0 // seconds

var deployPatterns = []struct {
	re       *regexp.Regexp
	category string
}{
	{regexp.MustCompile(`(?i)\bscp\b.*\b\d+\.\d+\.\d+\.\d+\b`), "remote copy"},
	{regexp.MustCompile(`(?i)\bscp\b.*@.*:`), "remote copy"},
	{regexp.MustCompile(`(?i)\brsync\b.*:`), "remote sync"},
	{regexp.MustCompile(`(?i)\bdocker\s+push\b`), "container"},
	{regexp.MustCompile(`(?i)\bkubectl\s+apply\b`), "kubernetes"},
	{regexp.MustCompile(`(?i)\bkubectl\s+rollout\b`), "kubernetes"},
	{regexp.MustCompile(`(?i)\bgit\s+push\b.*\b(main|master|prod|production)\b`), "git production"},
	{regexp.MustCompile(`(?i)\bssh\b.*deploy`), "remote deploy"},
	{regexp.MustCompile(`(?i)\bfab\s+deploy\b`), "fabric"},
	{regexp.MustCompile(`(?i)\bansible-playbook\b`), "ansible"},
	{regexp.MustCompile(`(?i)\bcaprover\b`), "caprover"},
	{regexp.MustCompile(`(?i)\bheroku\s+push\b`), "heroku"},
	{regexp.MustCompile(`(?i)\bfly\s+deploy\b`), "fly.io"},
	{regexp.MustCompile(`(?i)\bnpm\s+publish\b`), "package publish"},
	{regexp.MustCompile(`(?i)\bcargo\s+publish\b`), "package publish"},
	{regexp.MustCompile(`(?i)\btwine\s+upload\b`), "package publish"},
	{regexp.MustCompile(`(?i)\bgcloud\s+(app\s+deploy|run\s+deploy)\b`), "gcloud"},
	{regexp.MustCompile(`(?i)\baws\s+s3\s+sync\b`), "aws"},
	{regexp.MustCompile(`(?i)\bhelm\s+(upgrade|install)\b`), "helm"},
	{regexp.MustCompile(`(?i)\bterraform\s+apply\b`), "terraform"},
	{regexp.MustCompile(`(?i)\bpulumi\s+up\b`), "pulumi"},
	{regexp.MustCompile(`(?i)\bserverless\s+deploy\b`), "serverless"},
	{regexp.MustCompile(`(?i)\bcdk\s+deploy\b`), "aws cdk"},
	{regexp.MustCompile(`(?i)\bnpm\s+run\s+deploy\b`), "npm deploy"},
	{regexp.MustCompile(`(?i)\byarn\s+deploy\b`), "yarn deploy"},
	{regexp.MustCompile(`(?i)\bvercel\b.*--prod\b`), "vercel"},
	{regexp.MustCompile(`(?i)\bnetlify\s+deploy\b.*--prod\b`), "netlify"},
	{regexp.MustCompile(`(?i)\brailway\s+up\b`), "railway"},
	{regexp.MustCompile(`(?i)\bamplify\s+publish\b`), "aws amplify"},
}

// detectTestFramework guesses the framework last used from state, falling
// back to a generic suggestion when a Bash call has happened but no
// specific test command was recorded.
func detectTestFramework(state *types.SessionState) string {
	cmd := state.LastTestCommand
	switch {
	case cmd == "":
		// fall through to the Bash-usage fallback below
	case strings.Contains(cmd, "pytest"), strings.Contains(cmd, "python -m pytest"):
		return "pytest"
	case strings.Contains(cmd, "npm test"):
		return "npm test"
	case strings.Contains(cmd, "cargo test"):
		return "cargo test"
	case strings.Contains(cmd, "go test"):
		return "go test"
	case strings.Contains(cmd, "make test"):
		return "make test"
	}
	if state.ToolCallCounts["Bash"] > 0 {
		return "pytest"
	}
	return "unknown"
}

// NewTestBeforeDeployGate denies a deploy-shaped Bash command unless tests
// have run within the freshness window and the last run exited zero.
func NewTestBeforeDeployGate() Gate {
	return GateFunc{
		GateNameValue: gate03Name,
		GateTierValue: TierSafety,
		CheckFunc: func(toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) *types.GateResult {
			if eventType != "PreToolUse" || toolName != "Bash" {
				return types.NewAllow(gate03Name)
			}

			command := stringField(toolInput, "command")
			var category string
			for _, p := range deployPatterns {
				if p.re.MatchString(command) {
					category = p.category
					break
				}
			}
			if category == "" {
				return types.NewAllow(gate03Name)
			}

			now := float64(deps.Now().Unix())
			elapsed := now - state.LastTestRun

			if elapsed > testFreshnessWindow {
				framework := detectTestFramework(state)
				hint := ""
				if framework != "unknown" {
					hint = fmt.Sprintf(" Try: %s", framework)
				}
				var msg string
				if state.LastTestRun > 0 {
					minutesAgo := int(elapsed / 60)
					msg = fmt.Sprintf("[%s] BLOCKED: Deploy (%s) attempted but tests last ran %d minutes ago. Run tests before deploying.%s",
						gate03Name, category, minutesAgo, hint)
				} else {
					msg = fmt.Sprintf("[%s] BLOCKED: Deploy (%s) attempted but no tests have been run this session. Run tests before deploying.%s",
						gate03Name, category, hint)
				}
				return types.NewBlock(gate03Name, msg)
			}

			if state.LastTestExitCode != nil && *state.LastTestExitCode != 0 {
				return types.NewBlock(gate03Name, fmt.Sprintf(
					"[%s] BLOCKED: Deploy (%s) attempted but last test run failed (exit code: %d). Fix tests before deploying.",
					gate03Name, category, *state.LastTestExitCode))
			}

			return types.NewAllow(gate03Name)
		},
	}
}
