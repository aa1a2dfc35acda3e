package lifecycle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"golang.org/x/mod/semver"
)

// DefaultWriterVersion is stamped onto a digest when the caller supplies
// an invalid or empty version string.
const DefaultWriterVersion = "v0.0.0"

// HandoffDigest is the project-context document one session leaves for
// the next: what it was working on, what it finished, and what comes
// next. Session start composes the project-context memory query from
// these fields; session end is the only writer.
type HandoffDigest struct {
	SessionID     string    `json:"session_id"`
	Project       string    `json:"project,omitempty"`
	Feature       string    `json:"feature,omitempty"`
	WhatWasDone   string    `json:"what_was_done,omitempty"`
	NextSteps     []string  `json:"next_steps,omitempty"`
	WriterVersion string    `json:"writer_version"`
	WrittenAt     time.Time `json:"written_at"`
}

func digestPath(dir string) string {
	return filepath.Join(dir, "handoff_digest.json")
}

// LoadDigest reads the most recently written handoff digest under dir. A
// missing file returns a zero-value digest, not an error: the first
// session in a fresh workspace has nothing to hand off from.
func LoadDigest(dir string) (*HandoffDigest, error) {
	data, err := os.ReadFile(digestPath(dir))
	if os.IsNotExist(err) {
		return &HandoffDigest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lifecycle: reading handoff digest: %w", err)
	}
	var digest HandoffDigest
	if err := json.Unmarshal(data, &digest); err != nil {
		return &HandoffDigest{}, fmt.Errorf("lifecycle: corrupt handoff digest, treated as absent: %w", err)
	}
	return &digest, nil
}

// SaveDigest atomically writes digest under dir, stamping WrittenAt and
// normalizing WriterVersion to DefaultWriterVersion when the caller's
// value isn't a valid semver string.
func SaveDigest(dir string, digest HandoffDigest, now time.Time) error {
	digest.WrittenAt = now
	if !semver.IsValid(digest.WriterVersion) {
		digest.WriterVersion = DefaultWriterVersion
	}

	data, err := json.MarshalIndent(digest, "", "  ")
	if err != nil {
		return fmt.Errorf("lifecycle: marshalling handoff digest: %w", err)
	}
	if err := renameio.WriteFile(digestPath(dir), data, 0o644); err != nil {
		return fmt.Errorf("lifecycle: writing handoff digest: %w", err)
	}
	return nil
}
