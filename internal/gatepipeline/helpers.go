package gatepipeline

import (
	"fmt"
	"path/filepath"
	"strings"
)

// pathBase is filepath.Base with an empty-string passthrough, used when
// tallying per-basename counters keyed off an optional path.
func pathBase(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

// extractFilePath pulls the target path out of a tool_input payload. Edit
// and Write use file_path; NotebookEdit uses notebook_path.
func extractFilePath(toolInput map[string]any) string {
	if v, ok := toolInput["file_path"].(string); ok && v != "" {
		return v
	}
	if v, ok := toolInput["notebook_path"].(string); ok && v != "" {
		return v
	}
	return ""
}

// stringField reads a string field from tool_input, returning "" if it is
// absent or of another type.
func stringField(toolInput map[string]any, key string) string {
	v, _ := toolInput[key].(string)
	return v
}

// isTestFile reports whether path's basename matches a common test/spec
// naming convention, independent of the exemption tiers (used by gates
// that want to recognise test files without exempting them from every
// content-sensitive check).
func isTestFile(path string) bool {
	lower := strings.ToLower(path)
	for _, pat := range StandardExemptPatterns {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return false
}

// formatScore renders a float score the way the gate messages expect:
// two decimal places, matching the original "%.2f" formatting.
func formatScore(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
