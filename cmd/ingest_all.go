package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/SurEtBon/backend/internal/runlog"
)

var ingestAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Load both source datasets concurrently",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newIngestEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.close()

		var osmRun, alimRun *runlog.Run

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			var err error
			osmRun, err = env.loader.LoadOSM(ctx)
			return err
		})
		g.Go(func() error {
			var err error
			alimRun, err = env.loader.LoadAlimConfiance(ctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}

		fmt.Printf("Loaded %d OSM rows and %d Alim'Confiance rows\n",
			osmRun.RowsLoaded, alimRun.RowsLoaded)
		return nil
	},
}

func init() {
	ingestCmd.AddCommand(ingestAllCmd)
}
