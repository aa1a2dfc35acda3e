package gatepipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

const gate01Name = "GATE 1: READ BEFORE EDIT"

// guardedExtensions are the file types blind edits are most dangerous for.
var guardedExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true,
	".rs": true, ".go": true, ".java": true, ".c": true, ".cpp": true,
	".rb": true, ".php": true, ".sh": true, ".sql": true, ".tf": true,
	".ipynb": true,
}

// stemNormalize strips test prefixes/suffixes from a basename stem so
// "foo.py" and "test_foo.py" compare equal.
func stemNormalize(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	for _, prefix := range []string{"test_", "test"} {
		if strings.HasPrefix(stem, prefix) {
			stem = stem[len(prefix):]
			break
		}
	}
	for _, suffix := range []string{"_test", "_spec", ".test", ".spec"} {
		if strings.HasSuffix(stem, suffix) {
			stem = stem[:len(stem)-len(suffix)]
			break
		}
	}
	return strings.ToLower(stem)
}

// isRelatedRead reports whether readPath is semantically related to
// editPath: same basename in another directory, or the same normalised
// stem once test affixes are stripped.
func isRelatedRead(readPath, editPath string) bool {
	if filepath.Base(readPath) == filepath.Base(editPath) {
		return true
	}
	return stemNormalize(readPath) == stemNormalize(editPath)
}

// NewReadBeforeEditGate denies edits to guarded-extension files that have
// not been read this session, accepting a semantically related read (same
// basename, or same stem after stripping test affixes) as a substitute.
// Writes to paths that don't exist yet are always allowed.
func NewReadBeforeEditGate() Gate {
	return GateFunc{
		GateNameValue: gate01Name,
		GateTierValue: TierSafety,
		CheckFunc: func(toolName string, toolInput map[string]any, state *types.SessionState, eventType string, deps *Deps) *types.GateResult {
			if eventType != "PreToolUse" {
				return types.NewAllow(gate01Name)
			}
			if toolName != "Edit" && toolName != "Write" && toolName != "NotebookEdit" {
				return types.NewAllow(gate01Name)
			}

			filePath := filepath.Clean(extractFilePath(toolInput))
			ext := strings.ToLower(filepath.Ext(filePath))
			if !guardedExtensions[ext] {
				return types.NewAllow(gate01Name)
			}
			if BaseExemptBasenames[filepath.Base(filePath)] {
				return types.NewAllow(gate01Name)
			}

			if toolName == "Write" && !deps.FileExists(filePath) {
				return types.NewAllow(gate01Name)
			}

			for _, read := range state.FilesRead {
				if read == filePath || isRelatedRead(read, filePath) {
					return types.NewAllow(gate01Name)
				}
			}

			return types.NewBlock(gate01Name, fmt.Sprintf(
				"[%s] BLOCKED: You must Read '%s' before editing it.", gate01Name, filePath))
		},
	}
}
