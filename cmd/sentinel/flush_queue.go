package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/vc-sentinel/internal/memorygateway"
)

var flushQueueCmd = &cobra.Command{
	Use:   "flush-queue",
	Short: "Drain the capture queue into the memory gateway",
	Long:  `Ask the running memory gateway to drain its capture queue, the same drain session start performs on boot.`,
	Run: func(cmd *cobra.Command, args []string) {
		green := color.New(color.FgGreen).SprintFunc()

		if _, err := os.Stat(cfg.GatewaySocket); err != nil {
			fmt.Fprintf(os.Stderr, "Error: memory gateway not running at %s\n", cfg.GatewaySocket)
			os.Exit(1)
		}

		client := memorygateway.NewClient(cfg.GatewaySocket)
		n, err := client.FlushQueue()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: flush_queue failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s drained %d observation(s)\n", green("✓"), n)
	},
}

func init() {
	rootCmd.AddCommand(flushQueueCmd)
}
