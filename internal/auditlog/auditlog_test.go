package auditlog

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

func TestAppendCreatesDailyFileNamedByDate(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(dir)
	require.NoError(t, err)

	ts := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	require.NoError(t, log.Append(Entry{Timestamp: ts, SessionID: "s1", Gate: "gate_03", Decision: types.EscalationBlock}))

	path := filepath.Join(dir, "2026-03-05.jsonl")
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestAppendWritesOneJSONLinePerCall(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(dir)
	require.NoError(t, err)
	log.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, log.Append(Entry{SessionID: "s1", Gate: "gate_01", Decision: types.EscalationWarn}))
	require.NoError(t, log.Append(Entry{SessionID: "s1", Gate: "gate_02", Decision: types.EscalationBlock}))

	f, err := os.Open(filepath.Join(dir, "2026-01-01.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
	}
	assert.Equal(t, 2, lines)
}

func TestRecordGateResultSkipsPlainAllow(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(dir)
	require.NoError(t, err)
	log.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, log.RecordGateResult("s1", types.NewAllow("gate_01")))

	_, statErr := os.Stat(filepath.Join(dir, "2026-01-01.jsonl"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRecordGateResultRecordsBlockAndWarn(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(dir)
	require.NoError(t, err)
	log.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, log.RecordGateResult("s1", types.NewBlock("gate_02", "denied")))
	require.NoError(t, log.RecordGateResult("s1", types.NewWarn("gate_03", "careful")))

	entries := ReadRecent(dir, 1, log.now())
	require.Len(t, entries, 2)
}

func TestRecordGateResultHandlesNilResult(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(dir)
	require.NoError(t, err)
	assert.NoError(t, log.RecordGateResult("s1", nil))
}
