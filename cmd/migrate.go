package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/SurEtBon/backend/internal/bronze"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply bronze schema migrations",
	Long:  "Creates the bronze schema, the dataset tables, and the ingest-run bookkeeping table. Applies only pending migrations; safe to re-run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		pool, err := openPool(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := bronze.Migrate(cmd.Context(), pool); err != nil {
			return err
		}

		fmt.Println("Migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

// openPool creates a pgxpool.Pool from the configured database URL.
func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, eris.New("no database_url configured (set SURETBON_STORE_DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "ping database")
	}

	return pool, nil
}
