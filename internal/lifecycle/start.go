// Package lifecycle implements Session Lifecycle start/end: the
// boot-time and shutdown-time housekeeping that sits outside the
// per-tool-call gate pipeline and tracker. Grounded stylistically on
// internal/executor's bootstrap/cleanup pairing — named sequential
// steps, fail-soft logging to stderr, never aborting the sequence on a
// single step's error.
package lifecycle

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/steveyegge/vc-sentinel/internal/auditlog"
	"github.com/steveyegge/vc-sentinel/internal/gatestate"
	"github.com/steveyegge/vc-sentinel/internal/types"
)

// QueueFlusher drains the capture/auto-remember queues into the gateway.
type QueueFlusher interface {
	FlushQueue() (int, error)
}

// StartDeps bundles session-start's collaborators. Memory and Flusher are
// optional (nil-safe): a StartDeps with neither still rotates audit logs,
// loads state, and writes the sideband timestamp.
type StartDeps struct {
	Store      *gatestate.Store
	AuditLog   *auditlog.Log
	AuditDir   string
	Memory     MemoryQuerier
	Flusher    QueueFlusher
	Now        func() time.Time
	LogWarning func(msg string)
}

// StartResult reports what Start did, for the caller to fold into the
// host's boot context.
type StartResult struct {
	State          *types.SessionState
	RotatedAudit   auditlog.RotationResult
	DrainedQueue   int
	InjectedMemory []InjectedEntry
}

// Start runs the session-start sequence: rotate audit logs, load state,
// drain the capture queue, inject prior-session memory, stamp the
// sideband timestamp. Every step is independently fail-soft: a failure
// in one never skips the remaining steps, matching the tracker's own
// fail-open convention for per-tool-call steps.
func Start(ctx context.Context, deps *StartDeps, sessionID string) (*StartResult, error) {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	warn := deps.LogWarning
	if warn == nil {
		warn = func(msg string) { fmt.Fprintln(os.Stderr, msg) }
	}

	result := &StartResult{}

	if deps.AuditDir != "" {
		rotated, err := auditlog.Rotate(deps.AuditDir, auditlog.DefaultRotationConfig(), now())
		if err != nil {
			warn(fmt.Sprintf("lifecycle: audit rotation failed: %v", err))
		}
		result.RotatedAudit = rotated
	}

	state, err := deps.Store.Load(sessionID)
	if err != nil {
		warn(fmt.Sprintf("lifecycle: session state load warning: %v", err))
	}
	result.State = state

	if deps.Flusher != nil {
		drained, err := deps.Flusher.FlushQueue()
		if err != nil {
			warn(fmt.Sprintf("lifecycle: queue drain failed: %v", err))
		}
		result.DrainedQueue = drained
	}

	digest, err := LoadDigest(deps.Store.Dir)
	if err != nil {
		warn(fmt.Sprintf("lifecycle: handoff digest load warning: %v", err))
	}
	if digest != nil {
		result.InjectedMemory = InjectMemories(deps.Memory, *digest)
	}

	if err := deps.Store.WriteSideband(now()); err != nil {
		warn(fmt.Sprintf("lifecycle: sideband write failed: %v", err))
	}
	if state != nil {
		state.MemoryLastQueried = float64(now().Unix())
		_ = deps.Store.Save(state)
	}

	return result, nil
}
