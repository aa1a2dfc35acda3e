// Command sentinel-pretool is the PreToolUse hook entry point: the shim
// that decides daemon-fast-path vs. inline gate pipeline evaluation,
// grounded on enforcer_shim.py's try-daemon-then-fall-back-inline
// structure. Every top-level failure path still exits 0 -- the host must
// never be blocked by a framework bug in this binary.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/steveyegge/vc-sentinel/internal/breaker"
	"github.com/steveyegge/vc-sentinel/internal/gatepipeline"
	"github.com/steveyegge/vc-sentinel/internal/gatestate"
	"github.com/steveyegge/vc-sentinel/internal/sentinelcfg"
	"github.com/steveyegge/vc-sentinel/internal/types"
)

func main() {
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		os.Exit(0)
	}

	cfg := sentinelcfg.RuntimeConfigFromEnv()
	breakerPath := cfg.StateDir + "/pretool_circuit.json"
	cb, _ := breaker.LoadFromFile(breakerPath, breaker.DefaultConfig())

	if _, err := os.Stat(cfg.DaemonSocket); err == nil {
		if allowErr := cb.Allow(); allowErr == nil {
			if tryDaemon(cfg.DaemonSocket, raw) {
				cb.RecordSuccess()
				_ = cb.SaveToFile(breakerPath)
				return
			}
			cb.RecordFailure()
			_ = cb.SaveToFile(breakerPath)
		} else {
			fmt.Fprintf(os.Stderr, "[CB] daemon circuit open, using inline fallback\n")
		}
	}

	runInline(raw, cfg)
}

// tryDaemon sends raw to the daemon fast-path over a UDS and replays its
// exit_code/stdout/stderr. Returns false (without printing anything) if
// the daemon is unreachable, so the caller falls through to the inline
// path exactly once.
func tryDaemon(socketPath string, raw []byte) bool {
	conn, err := net.DialTimeout("unix", socketPath, 1*time.Second)
	if err != nil {
		return false
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(4 * time.Second))
	if _, err := conn.Write(append(raw, '\n')); err != nil {
		return false
	}

	var resp struct {
		ExitCode int    `json:"exit_code"`
		Stdout   string `json:"stdout"`
		Stderr   string `json:"stderr"`
	}
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return false
	}

	if resp.Stderr != "" {
		fmt.Fprint(os.Stderr, resp.Stderr)
	}
	if resp.Stdout != "" {
		fmt.Fprint(os.Stdout, resp.Stdout)
	}
	os.Exit(resp.ExitCode)
	return true
}

// runInline evaluates the gate pipeline in-process: the slow path,
// identical in behavior to the daemon fast-path, with no socket hop.
func runInline(raw []byte, cfg sentinelcfg.RuntimeConfig) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "sentinel-pretool: recovered panic: %v\n", r)
		}
		os.Exit(0)
	}()

	var event types.PreToolEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		fmt.Fprintf(os.Stderr, "sentinel-pretool: malformed hook input: %v\n", err)
		return
	}

	store, err := gatestate.New(cfg.StateDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sentinel-pretool: opening state store: %v\n", err)
		return
	}

	state, err := store.Load(event.SessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sentinel-pretool: state load warning: %v\n", err)
	}

	var toggleSource gatepipeline.Toggles
	if toggles, err := sentinelcfg.Load(cfg.LiveStatePath); err == nil {
		toggleSource = toggles
	}

	deps := gatepipeline.DefaultDeps(store, toggleSource)
	reg := gatepipeline.NewRegistry()
	out := gatepipeline.Run(reg, event.ToolName, event.ToolInput, state, event.HookEventName, deps)
	_ = store.Save(state)

	emitDecision(out)
}

func emitDecision(out *gatepipeline.Outcome) {
	if out.Allowed() {
		return
	}
	decision := out.Stop.ToHookDecision()
	if decision == nil {
		return
	}
	_ = json.NewEncoder(os.Stdout).Encode(decision)
}
