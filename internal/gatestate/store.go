// Package gatestate is the State Store: per-session JSON documents on
// disk plus the cross-session sideband timestamp and file-claim files.
// Every other component reads and mutates session state exclusively
// through this package's atomic read-modify-write cycle.
package gatestate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

// Store owns the on-disk layout for one runtime instance (one project
// workspace). Paths are rooted at Dir.
type Store struct {
	Dir string

	// mu serializes the read -> mutate -> replace cycle for a single
	// process; it does not protect against other processes, which rely on
	// the atomic rename itself plus each session owning its own document.
	mu sync.Mutex
}

// New returns a Store rooted at dir, creating dir and its session
// subdirectory if they don't exist.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, "sessions"), 0o755); err != nil {
		return nil, fmt.Errorf("gatestate: creating state dir: %w", err)
	}
	return &Store{Dir: dir}, nil
}

func (s *Store) sessionPath(sessionID string) string {
	return filepath.Join(s.Dir, "sessions", sessionID+".json")
}

func (s *Store) sidebandPath() string {
	return filepath.Join(s.Dir, ".memory_last_queried")
}

func (s *Store) claimsPath() string {
	return filepath.Join(s.Dir, "claims.json")
}

// CaptureQueuePath is the append-only observation queue the tracker writes
// to and the memory gateway drains on flush_queue.
func (s *Store) CaptureQueuePath() string {
	return filepath.Join(s.Dir, ".capture_queue.jsonl")
}

// AutoRememberQueuePath is the bounded auto-remember queue drained at
// session start when the gateway is unreachable at capture time.
func (s *Store) AutoRememberQueuePath() string {
	return filepath.Join(s.Dir, ".auto_remember_queue.jsonl")
}

// Load reads the session document for sessionID. If the file does not
// exist, a freshly initialised document is returned. If the file exists
// but fails to parse (state corruption, per the error-handling taxonomy),
// the corrupt document is replaced with fresh defaults and a descriptive
// error is still returned so the caller can log a warning -- the caller
// decides whether to proceed with the fresh document.
func (s *Store) Load(sessionID string) (*types.SessionState, error) {
	data, err := os.ReadFile(s.sessionPath(sessionID))
	if os.IsNotExist(err) {
		return types.NewSessionState(sessionID, time.Now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("gatestate: reading session state: %w", err)
	}

	var state types.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		fresh := types.NewSessionState(sessionID, time.Now())
		return fresh, fmt.Errorf("gatestate: corrupt session document, replaced with defaults: %w", err)
	}
	return &state, nil
}

// Save atomically persists state via a temp-file-then-rename, so a crash
// mid-write leaves the prior document intact.
func (s *Store) Save(state *types.SessionState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("gatestate: marshalling session state: %w", err)
	}
	if err := renameio.WriteFile(s.sessionPath(state.SessionID), data, 0o644); err != nil {
		return fmt.Errorf("gatestate: writing session state: %w", err)
	}
	return nil
}

// Mutate loads sessionID's document, applies fn under the process lock,
// and atomically persists the result. fn may return an error to abort the
// mutation without writing anything.
func (s *Store) Mutate(sessionID string, fn func(*types.SessionState) error) (*types.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, loadErr := s.Load(sessionID)
	if state == nil {
		return nil, loadErr
	}
	if err := fn(state); err != nil {
		return state, err
	}
	if err := s.Save(state); err != nil {
		return state, err
	}
	return state, loadErr
}

// SidebandTimestamp is the cross-process "memory last queried" signal.
type SidebandTimestamp struct {
	Timestamp float64 `json:"timestamp"`
}

// ReadSideband reads the sideband timestamp file, returning zero if it
// does not exist.
func (s *Store) ReadSideband() (float64, error) {
	data, err := os.ReadFile(s.sidebandPath())
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("gatestate: reading sideband: %w", err)
	}
	var sb SidebandTimestamp
	if err := json.Unmarshal(data, &sb); err != nil {
		return 0, nil // corrupt sideband is treated as absent, not fatal
	}
	return sb.Timestamp, nil
}

// WriteSideband atomically stamps the sideband file with now.
func (s *Store) WriteSideband(now time.Time) error {
	data, err := json.Marshal(SidebandTimestamp{Timestamp: float64(now.UnixNano()) / 1e9})
	if err != nil {
		return fmt.Errorf("gatestate: marshalling sideband: %w", err)
	}
	if err := renameio.WriteFile(s.sidebandPath(), data, 0o644); err != nil {
		return fmt.Errorf("gatestate: writing sideband: %w", err)
	}
	return nil
}

// MemoryFreshness returns max(state.MemoryLastQueried, sideband.Timestamp)
// -- the combined cross-process freshness signal the memory-first and
// critical-file gates consult.
func (s *Store) MemoryFreshness(state *types.SessionState) float64 {
	sb, err := s.ReadSideband()
	if err != nil || sb == 0 {
		return state.MemoryLastQueried
	}
	if sb > state.MemoryLastQueried {
		return sb
	}
	return state.MemoryLastQueried
}
