package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/vc-sentinel/internal/gatestate"
	"github.com/steveyegge/vc-sentinel/internal/types"
)

func TestEndSavesDigestClearsPendingAndReleasesClaims(t *testing.T) {
	store, err := gatestate.New(t.TempDir())
	require.NoError(t, err)

	now := time.Date(2026, 7, 31, 18, 0, 0, 0, time.UTC)
	_, err = store.Mutate("sess-1", func(s *types.SessionState) error {
		s.PendingVerification = []string{"a.go", "b.go"}
		return nil
	})
	require.NoError(t, err)

	acquired, err := store.Claim("sess-1", "a.go")
	require.NoError(t, err)
	assert.True(t, acquired)

	digest := HandoffDigest{Project: "vc-sentinel", WhatWasDone: "lifecycle end"}
	result, err := End(store, "sess-1", digest, now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.go", "b.go"}, result.ClearedPending)
	assert.Equal(t, "sess-1", result.Digest.SessionID)

	state, err := store.Load("sess-1")
	require.NoError(t, err)
	assert.Empty(t, state.PendingVerification)

	owner, err := store.ClaimOwner("a.go")
	require.NoError(t, err)
	assert.Empty(t, owner)

	saved, err := LoadDigest(store.Dir)
	require.NoError(t, err)
	assert.Equal(t, "vc-sentinel", saved.Project)
	assert.True(t, saved.WrittenAt.Equal(now))
}
