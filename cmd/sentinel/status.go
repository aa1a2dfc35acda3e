package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/vc-sentinel/internal/gatestate"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session state and sideband freshness",
	Long:  `Display every session document under the state directory, or one session with --session.`,
	Run: func(cmd *cobra.Command, args []string) {
		sessionID, _ := cmd.Flags().GetString("session")

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== Sentinel Session Status ==="))

		store, err := gatestate.New(cfg.StateDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: opening state store: %v\n", err)
			os.Exit(1)
		}

		ids, err := listSessionIDs(cfg.StateDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: listing sessions: %v\n", err)
			os.Exit(1)
		}

		if sessionID != "" {
			ids = filterSessionIDs(ids, sessionID)
		}

		if len(ids) == 0 {
			fmt.Printf("  %s\n", gray("No session state found"))
			return
		}

		for _, id := range ids {
			state, err := store.Load(id)
			if err != nil {
				fmt.Printf("  %s %s: %v\n", yellow("⚠"), id, err)
				continue
			}
			fmt.Printf("%s %s\n", yellow("Session:"), id)
			fmt.Printf("  Started:            %s\n", time.Unix(int64(state.SessionStart), 0).Format("2006-01-02 15:04:05"))
			fmt.Printf("  Tool calls:         %d\n", state.ToolCallCount)
			fmt.Printf("  Pending verify:     %d file(s)\n", len(state.PendingVerification))
			fmt.Printf("  Fixing error:       %v\n", state.FixingError)
			fmt.Printf("  Auto-remember:      %d\n", state.AutoRememberCount)
			if state.MemoryLastQueried > 0 {
				fmt.Printf("  Memory last queried: %s\n", time.Unix(int64(state.MemoryLastQueried), 0).Format("2006-01-02 15:04:05"))
			}
			fmt.Println()
		}
	},
}

func listSessionIDs(stateDir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(stateDir, "sessions"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	return ids, nil
}

func filterSessionIDs(ids []string, want string) []string {
	for _, id := range ids {
		if id == want {
			return []string{id}
		}
	}
	return nil
}

func init() {
	statusCmd.Flags().String("session", "", "show only this session id")
	rootCmd.AddCommand(statusCmd)
}
