package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/vc-sentinel/internal/vector"
)

var backupCmd = &cobra.Command{
	Use:   "backup [destination]",
	Short: "Snapshot the memory gateway's vector store",
	Long:  `Take a consistent VACUUM INTO snapshot of the vector store without stopping the gateway.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		green := color.New(color.FgGreen).SprintFunc()

		dest := fmt.Sprintf("%s.backup-%s", cfg.VectorDBPath, time.Now().Format("20060102-150405"))
		if len(args) == 1 {
			dest = args[0]
		}

		store, err := vector.Open(cfg.VectorDBPath, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: opening vector store: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := store.Backup(ctx, dest); err != nil {
			fmt.Fprintf(os.Stderr, "Error: backup failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s wrote %s\n", green("✓"), dest)
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
}
