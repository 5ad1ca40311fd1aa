package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SurEtBon/backend/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "suretbon",
	Short: "SurEtBon backend initialization",
	Long:  "Provisions the data lake bucket, migrates the bronze schema, and bulk-loads the OSM and Alim'Confiance source datasets into Postgres.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
