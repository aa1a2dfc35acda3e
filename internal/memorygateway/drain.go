package memorygateway

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/steveyegge/vc-sentinel/internal/types"
	"github.com/steveyegge/vc-sentinel/internal/vector"
)

// drainQueue implements flush_queue: atomically rename the capture queue
// to a work file, read it, batch-upsert every observation into the
// observations collection, and delete the work file only once every
// batch has committed. A failure midway leaves the work file in place so
// the next flush_queue retries it instead of losing the backlog.
func drainQueue(ctx context.Context, store vector.Store, cache *SearchCache, queuePath string) (int, error) {
	workPath := queuePath + ".work"

	if err := os.Rename(queuePath, workPath); err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("memorygateway: renaming capture queue to work file: %w", err)
	}

	f, err := os.Open(workPath)
	if err != nil {
		return 0, fmt.Errorf("memorygateway: opening work file: %w", err)
	}
	defer f.Close()

	var documents []string
	var metadatas []map[string]any
	var ids []string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var obs types.Observation
		if err := json.Unmarshal(scanner.Bytes(), &obs); err != nil {
			continue
		}
		if obs.ObsHash == "" {
			continue
		}

		keyFieldsJSON, _ := json.Marshal(obs.KeyFields)
		documents = append(documents, Scrub(fmt.Sprintf("%s %s %s", obs.Tool, obs.Outcome, string(keyFieldsJSON))))
		metadatas = append(metadatas, map[string]any{
			"tool":       obs.Tool,
			"session_id": obs.SessionID,
			"outcome":    obs.Outcome,
			"priority":   string(obs.Priority),
			"ts":         obs.TS,
		})
		ids = append(ids, obs.ObsHash)
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("memorygateway: reading work file: %w", err)
	}

	if len(ids) == 0 {
		return 0, os.Remove(workPath)
	}

	if err := store.Upsert(ctx, vector.CollectionObservations, documents, metadatas, ids); err != nil {
		return 0, fmt.Errorf("memorygateway: batch upsert from queue drain: %w", err)
	}
	cache.Invalidate()

	if err := os.Remove(workPath); err != nil {
		return len(ids), fmt.Errorf("memorygateway: removing drained work file: %w", err)
	}
	return len(ids), nil
}
