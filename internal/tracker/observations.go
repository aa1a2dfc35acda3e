package tracker

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/steveyegge/vc-sentinel/internal/signature"
	"github.com/steveyegge/vc-sentinel/internal/types"
)

// capturableTools is the expanded allow-list of tools whose calls are
// worth compressing into an observation; everything else is skipped
// before the dedup check even runs.
var capturableTools = map[string]bool{
	"Bash": true, "Edit": true, "Write": true, "NotebookEdit": true,
	"Read": true, "Glob": true, "Grep": true, "Skill": true,
	"WebSearch": true, "WebFetch": true, "Task": true,
}

// recentDuplicateLines is how far back into the queue tail the near-
// duplicate check looks.
const recentDuplicateLines = 20

// observationKey builds the per-tool salient-field string that gets
// hashed for dedup purposes; two calls producing the same key are
// considered the same observation regardless of timing.
func observationKey(toolName string, toolInput map[string]any) string {
	switch toolName {
	case "Bash":
		return "Bash:" + truncate(stringInput(toolInput, "command"), 200)
	case "Read":
		return "Read:" + stringInput(toolInput, "file_path")
	case "Edit", "Write":
		path := stringInput(toolInput, "file_path")
		content := stringInput(toolInput, "old_string")
		if content == "" {
			content = stringInput(toolInput, "content")
		}
		return toolName + ":" + path + ":" + signature.FNV1a8(truncate(content, 100))
	case "NotebookEdit":
		path := stringInput(toolInput, "notebook_path")
		content := stringInput(toolInput, "new_source")
		return "NotebookEdit:" + path + ":" + signature.FNV1a8(truncate(content, 100))
	case "Glob":
		return "Glob:" + stringInput(toolInput, "pattern")
	case "Grep":
		return "Grep:" + stringInput(toolInput, "pattern") + ":" + stringInput(toolInput, "path")
	case "WebSearch":
		return "WebSearch:" + truncate(stringInput(toolInput, "query"), 100)
	case "WebFetch":
		return "WebFetch:" + stringInput(toolInput, "url")
	default:
		return toolName
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// isRecentDuplicate checks the last recentDuplicateLines lines of the
// capture queue for obsHash. Any read failure is treated as "not a
// duplicate" -- the check is an optimization, never a correctness gate.
func isRecentDuplicate(queuePath, obsHash string) bool {
	f, err := os.Open(queuePath)
	if err != nil {
		return false
	}
	defer f.Close()

	var tail []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		tail = append(tail, scanner.Text())
		if len(tail) > recentDuplicateLines {
			tail = tail[1:]
		}
	}

	for _, line := range tail {
		if strings.Contains(line, `"_obs_hash":"`+obsHash+`"`) {
			return true
		}
	}
	return false
}

// classifyPriority gives errors high priority, reads low priority, and
// everything else medium -- matching the retention weighting the queue
// compaction step depends on.
func classifyPriority(toolName string, errored bool) types.Priority {
	if errored {
		return types.PriorityHigh
	}
	switch toolName {
	case "Read", "Glob", "Grep":
		return types.PriorityLow
	default:
		return types.PriorityMed
	}
}

func compressObservation(toolName string, toolInput map[string]any, errored bool, sessionID string, now float64, obsHash string) types.Observation {
	keyFields := map[string]any{}
	switch toolName {
	case "Bash":
		keyFields["command"] = truncate(stringInput(toolInput, "command"), 200)
	case "Edit", "Write", "NotebookEdit":
		path := stringInput(toolInput, "file_path")
		if path == "" {
			path = stringInput(toolInput, "notebook_path")
		}
		keyFields["file_path"] = path
	case "Read":
		keyFields["file_path"] = stringInput(toolInput, "file_path")
	case "Glob":
		keyFields["pattern"] = stringInput(toolInput, "pattern")
	case "Grep":
		keyFields["pattern"] = stringInput(toolInput, "pattern")
		keyFields["path"] = stringInput(toolInput, "path")
	case "WebSearch":
		keyFields["query"] = truncate(stringInput(toolInput, "query"), 100)
	case "WebFetch":
		keyFields["url"] = stringInput(toolInput, "url")
	case "Task":
		keyFields["description"] = stringInput(toolInput, "description")
	}

	outcome := "ok"
	if errored {
		outcome = "error"
	}

	return types.Observation{
		Tool:      toolName,
		TS:        now,
		SessionID: sessionID,
		KeyFields: keyFields,
		Outcome:   outcome,
		Priority:  classifyPriority(toolName, errored),
		ObsHash:   obsHash,
	}
}

// captureObservation implements spec.md §4.2 step 4. It never returns an
// error -- every failure mode (unwritable queue, bad permissions) is
// swallowed after a best-effort debug log, since observation capture must
// not block the tool call it is describing.
func captureObservation(toolName string, toolInput, toolResponse map[string]any, sessionID string, state *types.SessionState, deps *Deps) bool {
	if !capturableTools[toolName] {
		return false
	}
	if deps.Store == nil {
		return false
	}

	key := observationKey(toolName, toolInput)
	obsHash := signature.FNV1a8(key)
	queuePath := deps.Store.CaptureQueuePath()

	if isRecentDuplicate(queuePath, obsHash) {
		return false
	}

	errored := errorInResponse(toolResponse)
	obs := compressObservation(toolName, toolInput, errored, sessionID, float64(deps.Now().Unix()), obsHash)

	line, err := json.Marshal(obs)
	if err != nil {
		deps.logDebug("compress_observation marshal failed: " + err.Error())
		return false
	}

	if err := appendLine(queuePath, line); err != nil {
		deps.logDebug("capture_observation append failed: " + err.Error())
		return false
	}

	if state.ToolCallCount%queueCapInterval == 0 {
		capQueueFile(queuePath, deps)
	}
	return true
}

func errorInResponse(toolResponse map[string]any) bool {
	if toolResponse == nil {
		return false
	}
	if v, ok := toolResponse["is_error"].(bool); ok && v {
		return true
	}
	code := responseExitCode(toolResponse)
	return code != nil && *code != 0
}

func appendLine(path string, line []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(line, '\n'))
	return err
}
