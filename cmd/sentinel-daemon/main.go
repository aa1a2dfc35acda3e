// Command sentinel-daemon is the resident Gate Pipeline fast-path host:
// it keeps the gate registry, session state store, and toggle store warm
// across tool calls and serves {raw_hook_input} requests over a Unix
// domain socket, returning {exit_code, stdout, stderr}. A background
// ticker folds every run into the gate health dashboard and publishes it
// to Prometheus. Grounded on cmd/run-executor/main.go's discover-config,
// Start(ctx), signal.Notify, Stop(ctx) shape.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/vc-sentinel/internal/breaker"
	"github.com/steveyegge/vc-sentinel/internal/gatepipeline"
	"github.com/steveyegge/vc-sentinel/internal/gatestate"
	"github.com/steveyegge/vc-sentinel/internal/healthdash"
	"github.com/steveyegge/vc-sentinel/internal/memorygateway"
	"github.com/steveyegge/vc-sentinel/internal/sentinelcfg"
	"github.com/steveyegge/vc-sentinel/internal/tracker"
	"github.com/steveyegge/vc-sentinel/internal/types"
)

// daemonRequest is the UDS protocol's envelope: the same stdin JSON a
// shim would otherwise decode itself.
type daemonRequest struct {
	RawHookInput json.RawMessage `json:"raw_hook_input"`
}

type daemonResponse struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

func main() {
	cfg := sentinelcfg.RuntimeConfigFromEnv()

	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "sentinel-daemon: creating state dir: %v\n", err)
		os.Exit(1)
	}
	store, err := gatestate.New(cfg.StateDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sentinel-daemon: opening state store: %v\n", err)
		os.Exit(1)
	}

	toggleStore, err := sentinelcfg.Load(cfg.LiveStatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sentinel-daemon: loading toggles: %v\n", err)
		os.Exit(1)
	}

	var memClient *memorygateway.Client
	if _, err := os.Stat(cfg.GatewaySocket); err == nil {
		memClient = memorygateway.NewClient(cfg.GatewaySocket)
	}

	reg := gatepipeline.NewRegistry()
	stats := gatepipeline.NewStats()
	breakers := breaker.NewRegistry(breaker.DefaultConfig())

	d := &daemon{
		store:      store,
		toggles:    toggleStore,
		registry:   reg,
		stats:      stats,
		breakers:   breakers,
		memClient:  memClient,
		socketPath: cfg.DaemonSocket,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return d.serve(gctx) })
	group.Go(func() error { return d.tickHealth(gctx) })

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	cancel()
	if err := group.Wait(); err != nil && gctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "sentinel-daemon: %v\n", err)
	}
}

type daemon struct {
	store      *gatestate.Store
	toggles    *sentinelcfg.Store
	registry   *gatepipeline.Registry
	stats      *gatepipeline.Stats
	breakers   *breaker.Registry
	memClient  *memorygateway.Client
	socketPath string
}

func (d *daemon) serve(ctx context.Context) error {
	_ = os.Remove(d.socketPath)
	listener, err := net.Listen("unix", d.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", d.socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(d.socketPath)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		go d.handleConn(conn)
	}
}

func (d *daemon) handleConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	var req daemonRequest
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		_ = json.NewEncoder(conn).Encode(daemonResponse{ExitCode: 0})
		return
	}

	resp := d.handleRequest(req.RawHookInput)
	_ = json.NewEncoder(conn).Encode(resp)
}

func (d *daemon) handleRequest(raw json.RawMessage) daemonResponse {
	var probe struct {
		HookEventName string `json:"hook_event_name"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return daemonResponse{ExitCode: 0, Stderr: fmt.Sprintf("sentinel-daemon: malformed hook input: %v\n", err)}
	}

	switch probe.HookEventName {
	case "PostToolUse":
		return d.handlePostTool(raw)
	default:
		return d.handlePreTool(raw)
	}
}

func (d *daemon) handlePreTool(raw json.RawMessage) daemonResponse {
	var event types.PreToolEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return daemonResponse{ExitCode: 0, Stderr: fmt.Sprintf("sentinel-daemon: malformed pre-tool event: %v\n", err)}
	}

	state, err := d.store.Load(event.SessionID)
	var stderr string
	if err != nil {
		stderr = fmt.Sprintf("sentinel-daemon: state load warning: %v\n", err)
	}

	deps := gatepipeline.DefaultDeps(d.store, d.toggles)
	out := gatepipeline.Run(d.registry, event.ToolName, event.ToolInput, state, event.HookEventName, deps)
	d.stats.RecordOutcome(out, d.registry)
	_ = d.store.Save(state)

	var stdout string
	if !out.Allowed() {
		if decision := out.Stop.ToHookDecision(); decision != nil {
			data, _ := json.Marshal(decision)
			stdout = string(data)
		}
	}
	return daemonResponse{ExitCode: 0, Stdout: stdout, Stderr: stderr}
}

func (d *daemon) handlePostTool(raw json.RawMessage) daemonResponse {
	var event types.PostToolEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return daemonResponse{ExitCode: 0, Stderr: fmt.Sprintf("sentinel-daemon: malformed post-tool event: %v\n", err)}
	}

	state, err := d.store.Load(event.SessionID)
	var stderr string
	if err != nil {
		stderr = fmt.Sprintf("sentinel-daemon: state load warning: %v\n", err)
	}

	deps := tracker.DefaultDeps(d.store, d.toggles)
	if d.memClient != nil {
		deps.Memory = d.memClient
		deps.Remember = d.memClient
	}
	tracker.Handle(event.ToolName, event.ToolInput, event.ToolResponse, event.SessionID, state, deps)
	_ = d.store.Save(state)

	return daemonResponse{ExitCode: 0, Stderr: stderr}
}

// tickHealth folds the running Stats/breaker snapshot into the health
// dashboard every interval and publishes it to Prometheus, until ctx is
// cancelled.
func (d *daemon) tickHealth(ctx context.Context) error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			report := healthdash.BuildReport(d.stats, d.breakers)
			healthdash.PublishMetrics(report)
		}
	}
}
