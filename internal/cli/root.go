// Package cli wires the orchestration core into a cobra command tree.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "opsloop",
	Short: "Policy-gated orchestration loop for infrastructure workflows",
	Long: `Opsloop turns a goal into a dependency-ordered task plan, gates every
task through policy, executes batches in parallel, and records each
decision in an append-only audit trail.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(plansCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
