package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SurEtBon/backend/pkg/supabase"
)

var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Data lake bucket administration",
}

var bucketSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create or update the data_lake storage bucket",
	Long:  "Idempotently provisions the private data_lake bucket with the CSV/Parquet MIME allowlist and file size limit. Safe to re-run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("bucket"); err != nil {
			return err
		}

		limit, err := cfg.Bucket.FileSizeLimitBytes()
		if err != nil {
			return err
		}

		spec := supabase.BucketSpec{
			ID:               cfg.Bucket.Name,
			Name:             cfg.Bucket.Name,
			Public:           cfg.Bucket.Public,
			AllowedMimeTypes: cfg.Bucket.AllowedMimeTypes,
			FileSizeLimit:    limit,
		}

		client := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey)
		if err := client.EnsureBucket(cmd.Context(), spec); err != nil {
			return eris.Wrap(err, "bucket: setup")
		}

		zap.L().Info("bucket ready",
			zap.String("bucket", spec.ID),
			zap.Bool("public", spec.Public),
			zap.Int64("file_size_limit", spec.FileSizeLimit),
		)
		fmt.Printf("Bucket %q ready\n", spec.ID)
		return nil
	},
}

func init() {
	bucketCmd.AddCommand(bucketSetupCmd)
	rootCmd.AddCommand(bucketCmd)
}
