package auditlog

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFileWithAge(t *testing.T, path string, age time.Duration, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	modTime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func TestRotateLeavesRecentFilesUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2026-03-05.jsonl")
	writeFileWithAge(t, path, 1*time.Hour, `{"gate":"g1"}`)

	result, err := Rotate(dir, DefaultRotationConfig(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Compressed)

	_, err = os.Stat(path)
	assert.NoError(t, err, "recent file should not be compressed")
}

func TestRotateCompressesFilesOlderThanThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2026-03-01.jsonl")
	writeFileWithAge(t, path, 72*time.Hour, `{"gate":"g1","decision":"block"}`)

	result, err := Rotate(dir, DefaultRotationConfig(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Compressed)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "original .jsonl should be removed after compression")

	gz, err := os.Open(path + ".gz")
	require.NoError(t, err)
	defer gz.Close()

	r, err := gzip.NewReader(gz)
	require.NoError(t, err)
	defer r.Close()
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Contains(t, string(content), "block")
}

func TestRotateDeletionIsDormantByDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2025-01-01.jsonl.gz")
	writeFileWithAge(t, path, 365*24*time.Hour, "")

	result, err := Rotate(dir, DefaultRotationConfig(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Deleted)

	_, err = os.Stat(path)
	assert.NoError(t, err, "old .gz should survive while deletion is disabled")
}

func TestRotateDeletesOldArchivesWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2025-01-01.jsonl.gz")
	writeFileWithAge(t, path, 40*24*time.Hour, "")

	cfg := DefaultRotationConfig()
	cfg.DeleteEnabled = true

	result, err := Rotate(dir, cfg, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRotateOnMissingDirectoryIsNoop(t *testing.T) {
	result, err := Rotate(filepath.Join(t.TempDir(), "missing"), DefaultRotationConfig(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Compressed)
	assert.Equal(t, 0, result.Deleted)
}
