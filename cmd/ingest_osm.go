package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestOSMCmd = &cobra.Command{
	Use:   "osm",
	Short: "Load the OSM France food service snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newIngestEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.close()

		run, err := env.loader.LoadOSM(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Loaded %d rows into bronze.osm_france_food_service (archived at %s)\n",
			run.RowsLoaded, run.ObjectPath)
		return nil
	},
}

func init() {
	ingestCmd.AddCommand(ingestOSMCmd)
}
