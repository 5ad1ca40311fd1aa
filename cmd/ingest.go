package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/SurEtBon/backend/internal/bronze"
	"github.com/SurEtBon/backend/internal/fetcher"
	"github.com/SurEtBon/backend/internal/runlog"
	"github.com/SurEtBon/backend/pkg/supabase"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Bulk-load source datasets into the bronze schema",
	Long:  "One-time initialization loads: download the source export, archive it to the data lake bucket, and COPY it into the bronze table. Ongoing refreshes are owned by the data pipeline, not this tool.",
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

// ingestEnv bundles the loader and its owned resources.
type ingestEnv struct {
	loader *bronze.Loader
	close  func()
}

// newIngestEnv wires a Loader from config: HTTP fetcher, storage client,
// database pool, and run log.
func newIngestEnv(ctx context.Context) (*ingestEnv, error) {
	if err := cfg.Validate("ingest"); err != nil {
		return nil, err
	}

	pool, err := openPool(ctx)
	if err != nil {
		return nil, err
	}

	runs := runlog.NewPostgresWithPool(pool)

	fetch := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:    time.Duration(cfg.Ingest.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Ingest.MaxRetries,
	})
	storage := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey)

	loader := bronze.NewLoader(fetch, storage, pool, runs, cfg.Ingest, cfg.Bucket.Name)

	return &ingestEnv{
		loader: loader,
		close:  pool.Close,
	}, nil
}
