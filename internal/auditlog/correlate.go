package auditlog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/steveyegge/vc-sentinel/internal/types"
)

// ReadRecent reads every entry from the last days days of daily files
// under dir, transparently decompressing .gz archives. Malformed lines
// and unreadable files are skipped rather than aborting the scan.
func ReadRecent(dir string, days int, now time.Time) []Entry {
	var entries []Entry

	for d := 0; d < days; d++ {
		day := now.AddDate(0, 0, -d).Format("2006-01-02")
		for _, suffix := range []string{".jsonl", ".jsonl.gz"} {
			path := filepath.Join(dir, day+suffix)
			entries = append(entries, readEntriesFile(path, suffix == ".jsonl.gz")...)
		}
	}
	return entries
}

func readEntriesFile(path string, gzipped bool) []Entry {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var r io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil
		}
		defer gz.Close()
		r = gz
	}

	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// CorrelationPair reports how often two gates blocked within the same
// tool call (same session, same second).
type CorrelationPair struct {
	GateA           string
	GateB           string
	CoOccurrencePct float64
	Count           int
}

// CorrelationReport summarizes block co-occurrence over a window of days,
// porting gate_correlation.py's analyze_correlations.
type CorrelationReport struct {
	Pairs           []CorrelationPair
	GateBlockCounts map[string]int
	TotalEvents     int
	DaysAnalyzed    int
}

// AnalyzeCorrelations groups block decisions by (session, second) and
// counts how often each pair of gates blocks together, reporting the
// top 20 pairs by co-occurrence count.
func AnalyzeCorrelations(dir string, days int, now time.Time) CorrelationReport {
	entries := ReadRecent(dir, days, now)

	type groupKey struct {
		session string
		second  string
	}
	groups := map[groupKey]map[string]bool{}
	gateBlocks := map[string]int{}

	for _, e := range entries {
		if e.Decision != types.EscalationBlock {
			continue
		}
		key := groupKey{session: e.SessionID, second: e.Timestamp.Format(time.RFC3339)}
		if groups[key] == nil {
			groups[key] = map[string]bool{}
		}
		groups[key][e.Gate] = true
		gateBlocks[e.Gate]++
	}

	coOccurrence := map[[2]string]int{}
	for _, gates := range groups {
		names := make([]string, 0, len(gates))
		for g := range gates {
			names = append(names, g)
		}
		sort.Strings(names)
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				coOccurrence[[2]string{names[i], names[j]}]++
			}
		}
	}

	pairs := make([]CorrelationPair, 0, len(coOccurrence))
	for pair, count := range coOccurrence {
		minBlocks := gateBlocks[pair[0]]
		if gateBlocks[pair[1]] < minBlocks {
			minBlocks = gateBlocks[pair[1]]
		}
		pct := 0.0
		if minBlocks > 0 {
			pct = float64(count) / float64(minBlocks) * 100
		}
		pairs = append(pairs, CorrelationPair{
			GateA:           pair[0],
			GateB:           pair[1],
			CoOccurrencePct: pct,
			Count:           count,
		})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Count > pairs[j].Count })
	if len(pairs) > 20 {
		pairs = pairs[:20]
	}

	return CorrelationReport{
		Pairs:           pairs,
		GateBlockCounts: gateBlocks,
		TotalEvents:     len(entries),
		DaysAnalyzed:    days,
	}
}
