package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/sleuth/config"
)

var (
	resumeSelect int
	resumeNone   bool
)

var resumeCmd = &cobra.Command{
	Use:   "resume [run id]",
	Short: "Answer a paused run's question",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if !resumeNone && !cmd.Flags().Changed("select") {
			log.Fatal("pass --select N to confirm a candidate or --none to reject all")
		}
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		ctx := context.Background()
		store, err := openStore(ctx, cfg)
		if err != nil {
			log.Fatalf("opening run store: %v", err)
		}
		ctl, err := buildController(cfg, store)
		if err != nil {
			log.Fatalf("building controller: %v", err)
		}

		var selection *int
		if !resumeNone {
			selection = &resumeSelect
		}
		state, err := ctl.Resume(ctx, args[0], selection)
		if err != nil {
			log.Fatalf("resume failed: %v", err)
		}
		printState(state)
	},
}

func init() {
	resumeCmd.Flags().IntVar(&resumeSelect, "select", 0, "zero-based index of the confirmed candidate")
	resumeCmd.Flags().BoolVar(&resumeNone, "none", false, "reject every proposed candidate")
	rootCmd.AddCommand(resumeCmd)
}
