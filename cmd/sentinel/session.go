package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/steveyegge/vc-sentinel/internal/gatestate"
	"github.com/steveyegge/vc-sentinel/internal/lifecycle"
	"github.com/steveyegge/vc-sentinel/internal/memorygateway"
	"github.com/steveyegge/vc-sentinel/internal/vector"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Run session-start and session-end housekeeping",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Rotate audit logs, drain queues, and inject prior-session memory",
	Long:  `Run at SessionStart: the host invokes this before handing control to the agent.`,
	Run: func(cmd *cobra.Command, args []string) {
		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		store, err := gatestate.New(cfg.StateDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sentinel session start: opening state store: %v\n", err)
			os.Exit(0)
		}

		var memory lifecycle.MemoryQuerier
		var flusher lifecycle.QueueFlusher
		if _, err := os.Stat(cfg.GatewaySocket); err == nil {
			client := memorygateway.NewClient(cfg.GatewaySocket)
			adapter := &memoryQuerierAdapter{client: client}
			memory = adapter
			flusher = client
		}

		deps := &lifecycle.StartDeps{
			Store:    store,
			AuditDir: cfg.AuditDir,
			Memory:   memory,
			Flusher:  flusher,
		}

		result, err := lifecycle.Start(context.Background(), deps, sessionID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sentinel session start: %v\n", err)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("%s %s\n", cyan("session:"), sessionID)
		if result != nil {
			fmt.Printf("  drained queue: %d\n", result.DrainedQueue)
			fmt.Printf("  injected memory: %d entr(ies)\n", len(result.InjectedMemory))
			for _, entry := range result.InjectedMemory {
				fmt.Printf("    - %s\n", entry.Display)
			}
		}
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "end",
	Short: "Write the handoff digest, clear pending verification, release claims",
	Long:  `Run at SessionEnd: the host invokes this as the session closes.`,
	Run: func(cmd *cobra.Command, args []string) {
		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			fmt.Fprintln(os.Stderr, "sentinel session end: --session is required")
			os.Exit(0)
		}
		project, _ := cmd.Flags().GetString("project")
		whatWasDone, _ := cmd.Flags().GetString("summary")

		store, err := gatestate.New(cfg.StateDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sentinel session end: opening state store: %v\n", err)
			os.Exit(0)
		}

		digest := lifecycle.HandoffDigest{
			Project:     project,
			WhatWasDone: whatWasDone,
		}

		result, err := lifecycle.End(store, sessionID, digest, time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "sentinel session end: %v\n", err)
		}
		if result != nil {
			fmt.Printf("cleared %d pending verification entr(ies)\n", len(result.ClearedPending))
		}
	},
}

// memoryQuerierAdapter narrows *memorygateway.Client to lifecycle's own
// MemoryQuerier shape: lifecycle declares its own QueryResponse and a
// string collection name so it doesn't need to import tracker or vector
// just to run its two boot-time queries.
type memoryQuerierAdapter struct {
	client *memorygateway.Client
}

func (a *memoryQuerierAdapter) Count(collection string) (int, error) {
	return a.client.Count(vector.Collection(collection))
}

func (a *memoryQuerierAdapter) Query(query string, nResults int, timeout time.Duration) (*lifecycle.QueryResponse, error) {
	resp, err := a.client.Query(query, nResults, timeout)
	if err != nil {
		return nil, err
	}
	return &lifecycle.QueryResponse{
		IDs:       resp.IDs,
		Documents: resp.Documents,
		Distances: resp.Distances,
	}, nil
}

func init() {
	sessionStartCmd.Flags().String("session", "", "session id (generated if omitted)")
	sessionEndCmd.Flags().String("session", "", "session id (required)")
	sessionEndCmd.Flags().String("project", "", "project name for the handoff digest")
	sessionEndCmd.Flags().String("summary", "", "what was done this session")

	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionEndCmd)
	rootCmd.AddCommand(sessionCmd)
}
