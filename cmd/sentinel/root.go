package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/vc-sentinel/internal/sentinelcfg"
)

// cfg is the resolved set of runtime paths and sockets every subcommand
// needs, loaded once in main before any subcommand runs.
var cfg sentinelcfg.RuntimeConfig

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Operate and inspect the gate pipeline, memory gateway, and session state",
	Long:  `sentinel is the operator CLI for the gate pipeline's runtime state: health, memory, audit, and session bookkeeping.`,
}

func main() {
	cfg = sentinelcfg.RuntimeConfigFromEnv()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
