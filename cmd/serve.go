package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/sleuth/config"
	"github.com/mohammad-safakhou/sleuth/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		store, err := openStore(context.Background(), cfg)
		if err != nil {
			log.Fatalf("opening run store: %v", err)
		}
		ctl, err := buildController(cfg, store)
		if err != nil {
			log.Fatalf("building controller: %v", err)
		}
		if err := server.New(cfg, ctl).Run(); err != nil {
			log.Fatalf("server: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
