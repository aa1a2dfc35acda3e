package gatepipeline

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

const gate13Name = "GATE 13: CODE QUALITY"

// codeQualityMaxWarnings blocks escalating violations on the
// (codeQualityMaxWarnings+1)th occurrence for a single file.
const codeQualityMaxWarnings = 3

var codeExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".go": true, ".rs": true, ".java": true, ".rb": true, ".sh": true,
}

type qualityPattern struct {
	name      string
	re        *regexp.Regexp
	severity  string
	escalates bool
}

var qualityPatterns = []qualityPattern{
	{
		name:      "secret-in-code",
		re:        regexp.MustCompile(`(?i)(api_key|api_secret|password|secret_key|access_token|private_key)\s*=\s*["'][^"']{8,}["']`),
		severity:  "high",
		escalates: true,
	},
	{
		name:      "debug-print",
		re:        regexp.MustCompile(`(?m)^\s*(fmt\.Println\(|print\(|console\.log\(|debugger;|import pdb|breakpoint\(\))`),
		severity:  "medium",
		escalates: true,
	},
	{
		name:      "broad-except",
		re:        regexp.MustCompile(`except\s*:|except\s+Exception\s*:|recover\(\)\s*;?\s*$`),
		severity:  "low",
		escalates: true,
	},
	{
		name:      "todo-fixme",
		re:        regexp.MustCompile(`(?i)\b(TODO|FIXME|HACK|XXX)\b`),
		severity:  "info",
		escalates: false,
	},
}

type qualityViolation struct {
	name      string
	line      int
	escalates bool
}

func isCodeQualityExempt(filePath string) bool {
	if IsExemptFull(filePath, nil) {
		return true
	}
	return !codeExtensions[strings.ToLower(filepath.Ext(filePath))]
}

func codeQualityContent(toolName string, toolInput map[string]any) string {
	switch toolName {
	case "Edit":
		return stringField(toolInput, "new_string")
	case "Write":
		return stringField(toolInput, "content")
	case "NotebookEdit":
		return stringField(toolInput, "new_source")
	}
	return ""
}

func scanQualityContent(content string) []qualityViolation {
	var violations []qualityViolation
	lines := strings.Split(content, "\n")
	for _, p := range qualityPatterns {
		for i, line := range lines {
			if p.re.MatchString(line) {
				violations = append(violations, qualityViolation{name: p.name, line: i + 1, escalates: p.escalates})
				break
			}
		}
	}
	return violations
}

// NewCodeQualityGate scans new/edited content for hardcoded secrets,
// debug artifacts, bare exception handlers, and unresolved markers,
// warning per violation and blocking once a single file accumulates too
// many escalating violations across edits.
func NewCodeQualityGate() Gate {
	return GateFunc{
		GateNameValue: gate13Name,
		GateTierValue: TierQuality,
		CheckFunc: func(toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) *types.GateResult {
			if eventType != "PreToolUse" {
				return types.NewAllow(gate13Name)
			}
			if toolName != "Edit" && toolName != "Write" && toolName != "NotebookEdit" {
				return types.NewAllow(gate13Name)
			}

			filePath := extractFilePath(toolInput)
			if isCodeQualityExempt(filePath) {
				return types.NewAllow(gate13Name)
			}

			content := codeQualityContent(toolName, toolInput)
			if strings.TrimSpace(content) == "" {
				return types.NewAllow(gate13Name)
			}

			violations := scanQualityContent(content)
			if len(violations) == 0 {
				if state.CodeQualityWarningsPerFile != nil {
					delete(state.CodeQualityWarningsPerFile, filePath)
				}
				return types.NewAllow(gate13Name)
			}

			var escalating []qualityViolation
			for _, v := range violations {
				if v.escalates {
					escalating = append(escalating, v)
				}
			}

			if state.CodeQualityWarningsPerFile == nil {
				state.CodeQualityWarningsPerFile = map[string]int{}
			}
			fileCount := state.CodeQualityWarningsPerFile[filePath]
			if len(escalating) > 0 {
				fileCount++
				state.CodeQualityWarningsPerFile[filePath] = fileCount
			}

			details := make([]string, len(violations))
			for i, v := range violations {
				details[i] = fmt.Sprintf("%s (line %d)", v.name, v.line)
			}
			detail := strings.Join(details, ", ")

			maxWarnings := int(state.TuneOverride("gate_13_code_quality.max_warnings", float64(codeQualityMaxWarnings)))
			if len(escalating) > 0 && fileCount > maxWarnings {
				result := types.NewBlock(gate13Name, fmt.Sprintf(
					"[%s] BLOCKED: Code quality issues: %s. (%d violations on %s -- exceeded %d warning limit). Re-edit without the violation to clear. If also blocked by Gate 6, call remember_this() first.",
					gate13Name, detail, fileCount, pathBase(filePath), maxWarnings))
				result.Severity = types.SeverityWarn
				return result
			}

			result := types.NewWarn(gate13Name, fmt.Sprintf(
				"[%s] WARNING (%d/%d): %s in %s",
				gate13Name, fileCount, maxWarnings, detail, pathBase(filePath)))
			return result
		},
	}
}
