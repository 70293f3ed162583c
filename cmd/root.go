package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sleuth",
	Short: "Budgeted investigation engine with committee arbitration",
	Long: `sleuth drives open-ended research runs: it plans bounded search and
fetch actions under a hard budget, extracts candidate answers from the
results and arbitrates between them with a multi-model committee, pausing
for a human whenever the verdict cannot be trusted.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
