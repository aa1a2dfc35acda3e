package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSessionIDsReturnsNilOnMissingDir(t *testing.T) {
	ids, err := listSessionIDs(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestListSessionIDsStripsJSONSuffix(t *testing.T) {
	dir := t.TempDir()
	sessionsDir := filepath.Join(dir, "sessions")
	require.NoError(t, os.MkdirAll(sessionsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sessionsDir, "abc123.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sessionsDir, "notes.txt"), []byte("x"), 0o644))

	ids, err := listSessionIDs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc123"}, ids)
}

func TestFilterSessionIDsReturnsExactMatch(t *testing.T) {
	ids := []string{"a", "b", "c"}
	assert.Equal(t, []string{"b"}, filterSessionIDs(ids, "b"))
	assert.Nil(t, filterSessionIDs(ids, "missing"))
}
