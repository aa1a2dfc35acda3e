package gatestate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

func TestLoadMissingReturnsFreshDocument(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	state, err := store.Load("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", state.SessionID)
	assert.Equal(t, 0, state.ToolCallCount)
}

func TestMutateIsAtomicAndMonotonic(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := store.Mutate("sess-1", func(s *types.SessionState) error {
			s.ToolCallCount++
			return nil
		})
		require.NoError(t, err)
	}

	state, err := store.Load("sess-1")
	require.NoError(t, err)
	assert.Equal(t, 3, state.ToolCallCount)
}

func TestClaimStalenessAndRelease(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	acquired, err := store.Claim("sess-a", "/x/foo.py")
	require.NoError(t, err)
	assert.True(t, acquired)

	owner, err := store.ClaimOwner("/x/foo.py")
	require.NoError(t, err)
	assert.Equal(t, "sess-a", owner)

	require.NoError(t, store.ReleaseSessionClaims("sess-a"))

	owner, err = store.ClaimOwner("/x/foo.py")
	require.NoError(t, err)
	assert.Equal(t, "", owner)
}

func TestSidebandRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, store.WriteSideband(now))

	ts, err := store.ReadSideband()
	require.NoError(t, err)
	assert.InDelta(t, float64(now.Unix()), ts, 1)
}
