package gatepipeline

import (
	"fmt"
	"regexp"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

const gate07Name = "GATE 7: CRITICAL FILE GUARD"

const criticalFileFreshnessWindow = 300.0 // seconds, aligned with Gate 4

var criticalPatterns = []struct {
	re       *regexp.Regexp
	category string
}{
	{regexp.MustCompile(`(?i)(models|schema|migration).*\.(go|py)$`), "Database models"},
	{regexp.MustCompile(`(?i)(auth|login|session|jwt|oauth).*\.(go|py)$`), "Authentication"},
	{regexp.MustCompile(`(?i)(payment|billing|stripe|charge).*\.(go|py)$`), "Payment processing"},
	{regexp.MustCompile(`\.env$`), "Environment variables"},
	{regexp.MustCompile(`(?i)docker-compose.*\.ya?ml$`), "Docker orchestration"},
	{regexp.MustCompile(`Dockerfile$`), "Docker build"},
	{regexp.MustCompile(`(?i)\.github/workflows/.*\.ya?ml$`), "CI/CD pipeline"},
	{regexp.MustCompile(`(?i)(nginx|apache|caddy).*\.conf$`), "Web server config"},
	{regexp.MustCompile(`(?i)(settings|config)\.(go|py)$`), "App settings"},
	{regexp.MustCompile(`go\.mod$`), "Go module manifest"},
	{regexp.MustCompile(`(?i)requirements\.txt$`), "Python dependencies"},
	{regexp.MustCompile(`package\.json$`), "Node dependencies"},
	{regexp.MustCompile(`Cargo\.toml$`), "Rust dependencies"},
	{regexp.MustCompile(`\.ssh/`), "SSH directory"},
	{regexp.MustCompile(`authorized_keys$`), "SSH authorized keys"},
	{regexp.MustCompile(`(?i)id_(rsa|ed25519|ecdsa|dsa)(\.pub)?$`), "SSH key files"},
	{regexp.MustCompile(`(?i)sudoers`), "Sudo configuration"},
	{regexp.MustCompile(`crontab$`), "Cron schedule"},
	{regexp.MustCompile(`(?i)cron\.d/`), "Cron directory"},
	{regexp.MustCompile(`\.pem$`), "PEM certificates"},
	{regexp.MustCompile(`\.key$`), "Private key files"},
	{regexp.MustCompile(`\.pgpass$`), "PostgreSQL password file"},
	{regexp.MustCompile(`(?i)\.aws/credentials$`), "AWS credentials"},
	{regexp.MustCompile(`(?i)\.docker/config\.json$`), "Docker auth config"},
	{regexp.MustCompile(`(?i)sudoers\.d/`), "Sudo rules directory"},
	{regexp.MustCompile(`\.netrc$`), "FTP/HTTP password file"},
	{regexp.MustCompile(`\.npmrc$`), "npm auth tokens"},
	{regexp.MustCompile(`\.pypirc$`), "PyPI auth tokens"},
	{regexp.MustCompile(`internal/gatepipeline/gate_\d+.*\.go$`), "Gate file"},
	{regexp.MustCompile(`internal/gatestate/.*\.go$`), "Runtime state core"},
}

// NewCriticalFileGuardGate denies edits to a fixed list of high-risk
// paths unless memory has been queried within the last 5 minutes.
func NewCriticalFileGuardGate() Gate {
	return GateFunc{
		GateNameValue: gate07Name,
		GateTierValue: TierAdvisory,
		CheckFunc: func(toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) *types.GateResult {
			if eventType != "PreToolUse" {
				return types.NewAllow(gate07Name)
			}
			if toolName != "Edit" && toolName != "Write" && toolName != "NotebookEdit" {
				return types.NewAllow(gate07Name)
			}

			filePath := extractFilePath(toolInput)

			var category string
			for _, p := range criticalPatterns {
				if p.re.MatchString(filePath) {
					category = p.category
					break
				}
			}
			if category == "" {
				return types.NewAllow(gate07Name)
			}

			memoryLastQueried := deps.Store.MemoryFreshness(state)
			elapsed := float64(deps.Now().Unix()) - memoryLastQueried

			if elapsed > criticalFileFreshnessWindow {
				result := types.NewBlock(gate07Name, fmt.Sprintf(
					"[%s] BLOCKED: '%s' is a critical file (%s). Query memory about this file/component before editing. Use search_knowledge() first.",
					gate07Name, pathBase(filePath), category))
				result.Severity = types.SeverityCritical
				return result
			}

			return types.NewAllow(gate07Name)
		},
	}
}
