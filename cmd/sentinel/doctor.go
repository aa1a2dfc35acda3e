package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/vc-sentinel/internal/breaker"
	"github.com/steveyegge/vc-sentinel/internal/gatepipeline"
	"github.com/steveyegge/vc-sentinel/internal/healthdash"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check gate pipeline and memory gateway health",
	Long: `Run health checks against the gate registry, session state directory, and
configured sockets.

Exit codes:
  0 - All checks passed
  1 - One or more checks failed`,
	Run: func(cmd *cobra.Command, args []string) {
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		fmt.Printf("Running sentinel health checks...\n\n")

		var failures int

		fmt.Printf("%s State directory\n", cyan("→"))
		if info, err := os.Stat(cfg.StateDir); err != nil {
			failures++
			fmt.Printf("  %s Missing: %s\n", red("✗"), cfg.StateDir)
		} else if !info.IsDir() {
			failures++
			fmt.Printf("  %s Not a directory: %s\n", red("✗"), cfg.StateDir)
		} else {
			fmt.Printf("  %s %s\n", green("✓"), cfg.StateDir)
		}

		fmt.Printf("%s Gate registry\n", cyan("→"))
		reg := gatepipeline.NewRegistry()
		fmt.Printf("  %s %d gates registered\n", green("✓"), len(reg.Gates()))

		fmt.Printf("%s Daemon fast-path socket\n", cyan("→"))
		if _, err := os.Stat(cfg.DaemonSocket); err != nil {
			fmt.Printf("  %s Not running (inline fallback only): %s\n", yellow("⚠"), cfg.DaemonSocket)
		} else {
			fmt.Printf("  %s %s\n", green("✓"), cfg.DaemonSocket)
		}

		fmt.Printf("%s Memory gateway socket\n", cyan("→"))
		if _, err := os.Stat(cfg.GatewaySocket); err != nil {
			fmt.Printf("  %s Not running (memory injection disabled): %s\n", yellow("⚠"), cfg.GatewaySocket)
		} else {
			fmt.Printf("  %s %s\n", green("✓"), cfg.GatewaySocket)
		}

		fmt.Println()
		fmt.Printf("%s\n", cyan("Gate health dashboard:"))
		stats := gatepipeline.NewStats()
		breakers := breaker.NewRegistry(breaker.DefaultConfig())
		report := healthdash.BuildReport(stats, breakers)
		fmt.Println(healthdash.FormatDashboard(report))

		if failures > 0 {
			fmt.Printf("\n%s %d check(s) failed\n", red("✗"), failures)
			os.Exit(1)
		}
		fmt.Printf("\n%s All checks passed\n", green("✓"))
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
