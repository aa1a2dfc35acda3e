package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/vc-sentinel/internal/memorygateway"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Query the knowledge collection through the memory gateway",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		n, _ := cmd.Flags().GetInt("n")

		if _, err := os.Stat(cfg.GatewaySocket); err != nil {
			fmt.Fprintf(os.Stderr, "Error: memory gateway not running at %s\n", cfg.GatewaySocket)
			os.Exit(1)
		}

		client := memorygateway.NewClient(cfg.GatewaySocket)
		resp, err := client.Query(strings.Join(args, " "), n, 5*time.Second)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: query failed: %v\n", err)
			os.Exit(1)
		}

		gray := color.New(color.FgHiBlack).SprintFunc()
		if len(resp.IDs) == 0 {
			fmt.Printf("  %s\n", gray("no matches"))
			return
		}

		for i, id := range resp.IDs {
			doc := ""
			if i < len(resp.Documents) {
				doc = resp.Documents[i]
			}
			dist := 0.0
			if i < len(resp.Distances) {
				dist = resp.Distances[i]
			}
			fmt.Printf("%s (%.3f)\n  %s\n\n", id, dist, doc)
		}
	},
}

func init() {
	searchCmd.Flags().Int("n", 5, "number of results")
	rootCmd.AddCommand(searchCmd)
}
