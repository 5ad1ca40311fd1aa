package bronze

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/SurEtBon/backend/internal/config"
	"github.com/SurEtBon/backend/internal/db"
	"github.com/SurEtBon/backend/internal/fetcher"
	"github.com/SurEtBon/backend/internal/resilience"
	"github.com/SurEtBon/backend/internal/runlog"
	"github.com/SurEtBon/backend/pkg/supabase"
)

const defaultBatchSize = 5000

// Loader orchestrates a dataset load: download, archive the raw file to the
// data lake bucket, COPY rows into the bronze table, then derive the geohash
// column in the database.
type Loader struct {
	fetch   fetcher.Fetcher
	storage supabase.Client
	pool    db.Pool
	runs    runlog.Store
	cfg     config.IngestConfig
	bucket  string
}

// NewLoader wires a Loader from its dependencies.
func NewLoader(fetch fetcher.Fetcher, storage supabase.Client, pool db.Pool, runs runlog.Store, cfg config.IngestConfig, bucket string) *Loader {
	return &Loader{
		fetch:   fetch,
		storage: storage,
		pool:    pool,
		runs:    runs,
		cfg:     cfg,
		bucket:  bucket,
	}
}

// rowMapper converts one CSV record to COPY values for the target columns.
// Returning a nil row skips the record.
type rowMapper func(idx map[string]int, record []string) ([]any, error)

// load runs the shared pipeline for one dataset snapshot.
func (l *Loader) load(ctx context.Context, ds Dataset, date string, columns []string, mapRow rowMapper) (*runlog.Run, error) {
	log := zap.L().With(zap.String("dataset", ds.Table), zap.String("date", date))

	run, err := l.runs.StartRun(ctx, ds.Table)
	if err != nil {
		return nil, err
	}

	total, objectPath, err := l.loadSteps(ctx, log, ds, date, columns, mapRow)
	if err != nil {
		if failErr := l.runs.FailRun(ctx, run.ID, err); failErr != nil {
			log.Warn("failed to record run failure", zap.Error(failErr))
		}
		return nil, err
	}

	if err := l.runs.CompleteRun(ctx, run.ID, total, objectPath); err != nil {
		return nil, err
	}
	run.Status = runlog.StatusSucceeded
	run.RowsLoaded = total
	run.ObjectPath = objectPath

	log.Info("dataset loaded", zap.Int64("rows", total), zap.String("object", objectPath))
	return run, nil
}

func (l *Loader) loadSteps(ctx context.Context, log *zap.Logger, ds Dataset, date string, columns []string, mapRow rowMapper) (int64, string, error) {
	tempDir := l.cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return 0, "", eris.Wrapf(err, "bronze: create temp dir %s", tempDir)
	}
	localPath := filepath.Join(tempDir, fmt.Sprintf("%s-%s.%s", ds.Name, date, ds.Format))

	log.Info("downloading dataset", zap.String("url", ds.URL))
	n, err := l.fetch.DownloadToFile(ctx, ds.URL, localPath)
	if err != nil {
		return 0, "", eris.Wrapf(err, "bronze: download %s", ds.Name)
	}
	defer os.Remove(localPath)
	log.Info("download complete", zap.Int64("bytes", n))

	objectPath, err := l.archive(ctx, ds, date, localPath)
	if err != nil {
		return 0, "", err
	}
	log.Info("raw file archived", zap.String("object", objectPath))

	total, err := l.copyRows(ctx, ds, localPath, columns, mapRow)
	if err != nil {
		return 0, "", err
	}

	if err := l.deriveGeohash(ctx, ds); err != nil {
		return 0, "", err
	}

	return total, objectPath, nil
}

// archive uploads the raw file to data_lake/<prefix>/<date>.<ext>, replacing
// any object left behind by a previous run for the same snapshot.
func (l *Loader) archive(ctx context.Context, ds Dataset, date, localPath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", eris.Wrapf(err, "bronze: read %s", localPath)
	}

	objectPath := fmt.Sprintf("%s/%s.%s", ds.BucketPrefix, date, ds.Format)

	retryCfg := resilience.RetryConfig{
		MaxAttempts: l.cfg.MaxRetries,
		OnRetry:     resilience.RetryLogger("supabase", "upload"),
	}
	err = resilience.Do(ctx, retryCfg, func(ctx context.Context) error {
		return l.storage.Upload(ctx, l.bucket, objectPath, ds.ContentType, data)
	})
	if err != nil {
		return "", eris.Wrapf(err, "bronze: archive %s", objectPath)
	}
	return objectPath, nil
}

// copyRows truncates the bronze table and streams the CSV into it via COPY.
func (l *Loader) copyRows(ctx context.Context, ds Dataset, localPath string, columns []string, mapRow rowMapper) (int64, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return 0, eris.Wrapf(err, "bronze: open %s", localPath)
	}
	defer f.Close()

	// Stop the CSV stream goroutine on every return path, not just clean
	// completion.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if _, err := l.pool.Exec(ctx, "TRUNCATE TABLE bronze."+ds.Table); err != nil {
		return 0, eris.Wrapf(err, "bronze: truncate %s", ds.Table)
	}

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{
		Delimiter:  ds.DelimiterRune(),
		HasHeader:  true,
		HeaderCh:   headerCh,
		Charset:    ds.Charset,
		LazyQuotes: true,
	})

	var idx map[string]int
	batchSize := l.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	var total int64
	batch := make([][]any, 0, batchSize)

	flush := func() error {
		n, err := db.CopyFromSchema(ctx, l.pool, "bronze", ds.Table, columns, batch)
		if err != nil {
			return err
		}
		total += n
		batch = batch[:0]
		return nil
	}

	for record := range rowCh {
		if idx == nil {
			idx = headerIndex(<-headerCh)
		}

		row, err := mapRow(idx, record)
		if err != nil {
			return 0, eris.Wrapf(err, "bronze: map row for %s", ds.Table)
		}
		if row == nil {
			continue
		}

		batch = append(batch, row)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return 0, err
			}
		}
	}
	if err := <-errCh; err != nil {
		return 0, err
	}
	if err := flush(); err != nil {
		return 0, err
	}

	return total, nil
}

// deriveGeohash fills the precision-8 geohash cell column from the point
// geometry. PostGIS owns the encoding; rows without a geometry keep NULL.
func (l *Loader) deriveGeohash(ctx context.Context, ds Dataset) error {
	sql := fmt.Sprintf("UPDATE bronze.%s SET geohash = ST_GeoHash(geom, 8) WHERE geom IS NOT NULL", ds.Table)
	if _, err := l.pool.Exec(ctx, sql); err != nil {
		return eris.Wrapf(err, "bronze: derive geohash for %s", ds.Table)
	}
	return nil
}

// headerIndex maps lowercased column names to record positions.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return idx
}

// field returns the named column from a record, or "" when absent.
func field(idx map[string]int, record []string, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// nullable converts "" to NULL for COPY.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// parseGeoPoint parses an OpenDataSoft "lat, lng" point field.
func parseGeoPoint(s string) (lat, lng float64, ok bool) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

// parseDate parses an ISO date, tolerating timestamp suffixes.
func parseDate(s string) (time.Time, bool) {
	if len(s) > 10 {
		s = s[:10]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
