package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestAlimCmd = &cobra.Command{
	Use:   "alimconfiance",
	Short: "Load the Alim'Confiance sanitary inspection export",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newIngestEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.close()

		run, err := env.loader.LoadAlimConfiance(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Loaded %d rows into bronze.export_alimconfiance (archived at %s)\n",
			run.RowsLoaded, run.ObjectPath)
		return nil
	},
}

func init() {
	ingestCmd.AddCommand(ingestAlimCmd)
}
