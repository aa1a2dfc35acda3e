// Command sentinel-posttool is the PostToolUse hook entry point: it runs
// the tracker against the just-completed tool call and persists the
// updated session document. It has no stdout contract -- every effect is
// side-effecting -- and always exits 0.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/steveyegge/vc-sentinel/internal/gatestate"
	"github.com/steveyegge/vc-sentinel/internal/memorygateway"
	"github.com/steveyegge/vc-sentinel/internal/sentinelcfg"
	"github.com/steveyegge/vc-sentinel/internal/tracker"
	"github.com/steveyegge/vc-sentinel/internal/types"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "sentinel-posttool: recovered panic: %v\n", r)
		}
		os.Exit(0)
	}()

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return
	}

	var event types.PostToolEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		fmt.Fprintf(os.Stderr, "sentinel-posttool: malformed hook input: %v\n", err)
		return
	}

	cfg := sentinelcfg.RuntimeConfigFromEnv()

	store, err := gatestate.New(cfg.StateDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sentinel-posttool: opening state store: %v\n", err)
		return
	}

	state, err := store.Load(event.SessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sentinel-posttool: state load warning: %v\n", err)
	}

	var toggleSource tracker.Toggles
	if toggles, err := sentinelcfg.Load(cfg.LiveStatePath); err == nil {
		toggleSource = toggles
	}

	deps := tracker.DefaultDeps(store, toggleSource)
	if _, err := os.Stat(cfg.GatewaySocket); err == nil {
		client := memorygateway.NewClient(cfg.GatewaySocket)
		deps.Memory = client
		deps.Remember = client
	}
	deps.LogDebug = func(msg string) { fmt.Fprintln(os.Stderr, msg) }

	result := tracker.Handle(event.ToolName, event.ToolInput, event.ToolResponse, event.SessionID, state, deps)
	if result.ErrorDetected {
		fmt.Fprintf(os.Stderr, "sentinel-posttool: error pattern detected for session %s\n", event.SessionID)
	}

	if err := store.Save(state); err != nil {
		fmt.Fprintf(os.Stderr, "sentinel-posttool: state save failed: %v\n", err)
	}
}
