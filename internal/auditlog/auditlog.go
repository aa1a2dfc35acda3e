// Package auditlog implements the append-only gate-decision log: one
// JSONL file per day, rotated to gzip once old enough, with opt-in
// deletion of ancient archives. Every gate decision that is not a plain
// allow is appended here so later sessions can correlate which gates
// block together and how often.
package auditlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

// Entry is one line of the audit log.
type Entry struct {
	Timestamp  time.Time  `json:"timestamp"`
	SessionID  string     `json:"session_id"`
	Gate       string     `json:"gate"`
	Decision   Escalation `json:"decision"`
	Message    string     `json:"message,omitempty"`
	DurationMS float64    `json:"duration_ms,omitempty"`
}

// Escalation mirrors types.Escalation as a string for JSON stability
// independent of the gate-result type's own encoding.
type Escalation = types.Escalation

// Log appends entries to daily JSONL files under dir.
type Log struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// Open returns a Log writing into dir, creating it if necessary.
func Open(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("auditlog: creating directory: %w", err)
	}
	return &Log{dir: dir, now: time.Now}, nil
}

// Append writes one entry to today's file.
func (l *Log) Append(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}

	path := filepath.Join(l.dir, entry.Timestamp.Format("2006-01-02")+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("auditlog: opening %s: %w", path, err)
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("auditlog: marshaling entry: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("auditlog: writing %s: %w", path, err)
	}
	return nil
}

// RecordGateResult appends an entry derived from a gate result, unless
// the result is a plain allow with no message — allows are the overwhelming
// majority of calls and recording every one would make the log useless for
// block-correlation analysis.
func (l *Log) RecordGateResult(sessionID string, result *types.GateResult) error {
	if result == nil {
		return nil
	}
	result.NormalizeEscalation()
	if result.Escalation == types.EscalationAllow && result.Message == "" {
		return nil
	}
	return l.Append(Entry{
		SessionID:  sessionID,
		Gate:       result.GateName,
		Decision:   result.Escalation,
		Message:    result.Message,
		DurationMS: result.DurationMS,
	})
}
