package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/vc-sentinel/internal/gatestate"
)

type fakeFlusher struct {
	drained int
	err     error
	called  bool
}

func (f *fakeFlusher) FlushQueue() (int, error) {
	f.called = true
	return f.drained, f.err
}

func TestStartLoadsStateAndStampsSideband(t *testing.T) {
	store, err := gatestate.New(t.TempDir())
	require.NoError(t, err)

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	deps := &StartDeps{
		Store: store,
		Now:   func() time.Time { return now },
	}

	result, err := Start(context.Background(), deps, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, result.State)
	assert.Equal(t, "sess-1", result.State.SessionID)

	sb, err := store.ReadSideband()
	require.NoError(t, err)
	assert.InDelta(t, float64(now.Unix()), sb, 1)
}

func TestStartDrainsQueueWhenFlusherPresent(t *testing.T) {
	store, err := gatestate.New(t.TempDir())
	require.NoError(t, err)

	flusher := &fakeFlusher{drained: 4}
	deps := &StartDeps{Store: store, Flusher: flusher, Now: time.Now}

	result, err := Start(context.Background(), deps, "sess-2")
	require.NoError(t, err)
	assert.True(t, flusher.called)
	assert.Equal(t, 4, result.DrainedQueue)
}

func TestStartInjectsMemoryFromPriorDigest(t *testing.T) {
	store, err := gatestate.New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, SaveDigest(store.Dir, HandoffDigest{
		SessionID: "sess-prev",
		Project:   "vc-sentinel",
	}, time.Now()))

	projectQuery := buildProjectContextQuery(HandoffDigest{Project: "vc-sentinel"})
	mem := &fakeMemory{
		count: 3,
		byQuery: map[string]*QueryResponse{
			projectQuery: {
				IDs:       []string{"m1"},
				Documents: []string{"note"},
				Distances: []float64{0.1},
			},
		},
	}

	deps := &StartDeps{Store: store, Memory: mem, Now: time.Now}
	result, err := Start(context.Background(), deps, "sess-3")
	require.NoError(t, err)
	require.Len(t, result.InjectedMemory, 1)
	assert.Equal(t, "m1", result.InjectedMemory[0].ID)
}

func TestStartRotatesAuditLogsWhenDirSet(t *testing.T) {
	store, err := gatestate.New(t.TempDir())
	require.NoError(t, err)
	auditDir := t.TempDir()

	deps := &StartDeps{Store: store, AuditDir: auditDir, Now: time.Now}
	_, err = Start(context.Background(), deps, "sess-4")
	require.NoError(t, err)
}

func TestStartNeverFailsOnMissingCollaborators(t *testing.T) {
	store, err := gatestate.New(t.TempDir())
	require.NoError(t, err)

	deps := &StartDeps{Store: store, Now: time.Now}
	result, err := Start(context.Background(), deps, "sess-5")
	require.NoError(t, err)
	assert.NotNil(t, result)
}
