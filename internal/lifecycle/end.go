package lifecycle

import (
	"fmt"
	"time"

	"github.com/steveyegge/vc-sentinel/internal/gatestate"
	"github.com/steveyegge/vc-sentinel/internal/types"
)

// EndResult reports what End did.
type EndResult struct {
	Digest         HandoffDigest
	ClearedPending []string
}

// End runs the session-end sequence: persist the handoff digest for the
// next session to read at Start, clear pending_verification now that the
// session is closing, and release the session's file claims so other
// sessions can pick up claimed paths. Each step is attempted even if an
// earlier one fails, matching Start's fail-soft convention -- a failed
// digest write should not leave stale claims behind.
func End(store *gatestate.Store, sessionID string, digest HandoffDigest, now time.Time) (*EndResult, error) {
	digest.SessionID = sessionID
	result := &EndResult{Digest: digest}

	var firstErr error
	if err := SaveDigest(store.Dir, digest, now); err != nil {
		firstErr = fmt.Errorf("lifecycle: saving handoff digest: %w", err)
	}

	state, err := store.Mutate(sessionID, func(s *types.SessionState) error {
		result.ClearedPending = s.PendingVerification
		s.PendingVerification = []string{}
		return nil
	})
	if err != nil && firstErr == nil {
		firstErr = fmt.Errorf("lifecycle: clearing pending verification: %w", err)
	}
	_ = state

	if err := store.ReleaseSessionClaims(sessionID); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("lifecycle: releasing claims: %w", err)
	}

	return result, firstErr
}
