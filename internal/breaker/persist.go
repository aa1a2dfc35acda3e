package breaker

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/renameio/v2"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

// PersistedState is a Breaker's state serialised to disk, so the
// short-lived per-invocation shim processes (sentinel-pretool,
// sentinel-posttool) share one circuit breaker across process
// boundaries instead of each starting CLOSED, matching
// enforcer_shim.py's file-backed shared.circuit_breaker module.
type PersistedState struct {
	State              types.CircuitState `json:"state"`
	ConsecutiveFails   int                 `json:"consecutive_fails"`
	ConsecutiveSuccess int                 `json:"consecutive_success"`
	OpenedAtUnix       int64               `json:"opened_at_unix"`
}

// Export snapshots b's internal state for persistence.
func (b *Breaker) Export() PersistedState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return PersistedState{
		State:              b.state,
		ConsecutiveFails:   b.consecutiveFails,
		ConsecutiveSuccess: b.consecutiveSuccess,
		OpenedAtUnix:       b.openedAt.Unix(),
	}
}

// Restore builds a Breaker from a previously exported state.
func Restore(cfg Config, p PersistedState) *Breaker {
	b := New(cfg)
	b.state = p.State
	b.consecutiveFails = p.ConsecutiveFails
	b.consecutiveSuccess = p.ConsecutiveSuccess
	if p.OpenedAtUnix > 0 {
		b.openedAt = time.Unix(p.OpenedAtUnix, 0)
	}
	return b
}

// LoadFromFile reads path and restores a Breaker from it. A missing file
// returns a fresh CLOSED breaker, not an error: the first invocation on a
// machine has nothing to restore.
func LoadFromFile(path string, cfg Config) (*Breaker, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(cfg), nil
	}
	if err != nil {
		return New(cfg), err
	}
	var p PersistedState
	if err := json.Unmarshal(data, &p); err != nil {
		return New(cfg), nil // corrupt state file is treated as absent
	}
	return Restore(cfg, p), nil
}

// SaveToFile atomically persists b's current state to path.
func (b *Breaker) SaveToFile(path string) error {
	data, err := json.Marshal(b.Export())
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, data, 0o644)
}
