// Command sentinel-gateway is the Memory Gateway: the single writer to
// the SQLite+FTS5 vector store, serving query/get/upsert/delete/count and
// flush_queue over a Unix domain socket. Grounded on
// cmd/run-executor/main.go's discover-config, Start(ctx), signal.Notify,
// Stop(ctx) shape.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/steveyegge/vc-sentinel/internal/memorygateway"
	"github.com/steveyegge/vc-sentinel/internal/sentinelcfg"
	"github.com/steveyegge/vc-sentinel/internal/vector"
)

func main() {
	cfg := sentinelcfg.RuntimeConfigFromEnv()

	store, err := vector.Open(cfg.VectorDBPath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sentinel-gateway: opening vector store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	queuePath := cfg.StateDir + "/capture_queue.jsonl"
	server, err := memorygateway.NewServer(cfg.GatewaySocket, queuePath, store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sentinel-gateway: constructing server: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := server.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "sentinel-gateway: %v\n", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	cancel()
	if err := server.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "sentinel-gateway: shutdown: %v\n", err)
	}
}
