package gatepipeline

import (
	"os"
	"path/filepath"
	"strings"
)

// BaseExemptBasenames are always exempt from content-sensitive gates
// regardless of tier, since they are the runtime's own bookkeeping files.
var BaseExemptBasenames = map[string]bool{
	"state.json":       true,
	"HANDOFF.md":        true,
	"LIVE_STATE.json":   true,
	"CLAUDE.md":         true,
	"__init__.py":       true,
}

// baseExemptDirs are prefix-matched directories that are always exempt
// (the user's own skills directory).
func baseExemptDirs() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, ".claude", "skills")}
}

// StandardExemptPatterns are substrings (checked against the lowercased
// basename) that mark a file as a test or spec file.
var StandardExemptPatterns = []string{"test_", "_test.", ".test.", "spec_", "_spec.", ".spec."}

// FullExemptExtensions are non-code file extensions exempt from the
// strictest tier of content-sensitive gates.
var FullExemptExtensions = map[string]bool{
	".md": true, ".json": true, ".yaml": true, ".yml": true, ".toml": true,
	".cfg": true, ".ini": true, ".txt": true, ".sh": true, ".bash": true,
	".css": true, ".html": true, ".xml": true, ".csv": true, ".lock": true,
}

// IsExemptBase is tier 1: null/empty guard, exempt basenames, and the
// skills directory (prefix match).
func IsExemptBase(filePath string) bool {
	if filePath == "" {
		return true
	}
	if BaseExemptBasenames[filepath.Base(filePath)] {
		return true
	}
	norm := filepath.Clean(filePath)
	for _, d := range baseExemptDirs() {
		nd := filepath.Clean(d)
		if norm == nd || strings.HasPrefix(norm, nd+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// IsExemptStandard is tier 2: base plus test/spec file name patterns.
func IsExemptStandard(filePath string) bool {
	if IsExemptBase(filePath) {
		return true
	}
	lower := strings.ToLower(filepath.Base(filePath))
	for _, pat := range StandardExemptPatterns {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return false
}

// IsExemptFull is tier 3: standard plus a non-code extension filter. A
// nil extensions set falls back to FullExemptExtensions.
func IsExemptFull(filePath string, extensions map[string]bool) bool {
	if IsExemptStandard(filePath) {
		return true
	}
	if extensions == nil {
		extensions = FullExemptExtensions
	}
	ext := strings.ToLower(filepath.Ext(filePath))
	return extensions[ext]
}
