package breaker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

func TestLoadFromFileMissingReturnsFreshClosedBreaker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cb.json")
	b, err := LoadFromFile(path, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, types.CircuitClosed, b.State())
}

func TestSaveThenLoadRoundTripsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cb.json")
	cfg := Config{FailureThreshold: 1, SuccessThreshold: 1, RecoveryTimeout: time.Minute}

	b := New(cfg)
	b.RecordFailure()
	require.Equal(t, types.CircuitOpen, b.State())
	require.NoError(t, b.SaveToFile(path))

	restored, err := LoadFromFile(path, cfg)
	require.NoError(t, err)
	assert.Equal(t, types.CircuitOpen, restored.State())

	state, fails, successes := restored.Metrics()
	assert.Equal(t, types.CircuitOpen, state)
	assert.Equal(t, 1, fails)
	assert.Equal(t, 0, successes)
}

func TestLoadFromFileCorruptFileTreatedAsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cb.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	b, err := LoadFromFile(path, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, types.CircuitClosed, b.State())
}
