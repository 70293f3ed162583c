package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/sleuth/config"
	"github.com/mohammad-safakhou/sleuth/internal/run"
	"github.com/mohammad-safakhou/sleuth/internal/supervisor"
)

var runImageHint string

var runCmd = &cobra.Command{
	Use:   "run [request text]",
	Short: "Start an investigation and drive it until it pauses or finishes",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
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

		state, err := ctl.Start(ctx, supervisor.StartRequest{
			Text:      strings.Join(args, " "),
			ImageHint: runImageHint,
		})
		if err != nil {
			log.Fatalf("run failed: %v", err)
		}
		printState(state)
	},
}

func init() {
	runCmd.Flags().StringVar(&runImageHint, "image", "", "image URL to probe")
	rootCmd.AddCommand(runCmd)
}

func printState(state *run.RunState) {
	fmt.Printf("run %s: %s (turns %d, budget %d)\n", state.ID, state.Status, state.TurnCount, state.BudgetUsed)
	switch {
	case state.SelectedCandidate != nil:
		fmt.Printf("answer: %s", state.SelectedCandidate.Name)
		if state.SelectedCandidate.URL != "" {
			fmt.Printf(" (%s)", state.SelectedCandidate.URL)
		}
		fmt.Println()
	case state.AwaitingHuman:
		fmt.Println(state.HumanQuestion)
		fmt.Printf("resume with: sleuth resume %s --select N  (or --none)\n", state.ID)
	default:
		blob, _ := json.MarshalIndent(state.Candidates, "", "  ")
		fmt.Fprintf(os.Stdout, "no answer; last candidates:\n%s\n", blob)
	}
}
