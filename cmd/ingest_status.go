package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/SurEtBon/backend/internal/runlog"
)

var ingestStatusLimit int

var ingestStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List recent ingest runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("status"); err != nil {
			return err
		}

		store, err := runlog.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(cmd.Context(), runlog.Filter{Limit: ingestStatusLimit})
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No ingest runs recorded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATASET\tSTATUS\tROWS\tSTARTED\tOBJECT")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				r.Dataset, r.Status, r.RowsLoaded,
				r.StartedAt.Format("2006-01-02 15:04:05"), r.ObjectPath)
		}
		return w.Flush()
	},
}

func init() {
	ingestStatusCmd.Flags().IntVar(&ingestStatusLimit, "limit", 20, "maximum runs to list")
	ingestCmd.AddCommand(ingestStatusCmd)
}
