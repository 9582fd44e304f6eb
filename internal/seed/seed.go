// Package seed moves metric records between the store and a JSON seed file.
package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/alisaviation/metricboard/internal/logger"
	"github.com/alisaviation/metricboard/internal/models"
	"github.com/alisaviation/metricboard/internal/storage"
)

const DefaultFile = "seed_data.json"

var (
	ErrFileMissing = errors.New("seed file not found")
	ErrEmptyInput  = errors.New("seed file is empty")
)

// Result reports what an import did. Loaded is false when there was nothing
// to import.
type Result struct {
	Loaded   bool
	Imported int
	Skipped  int
}

// Read decodes a seed document. Every item goes through the same coercion as
// a create payload; the first invalid item fails the whole document.
func Read(r io.Reader) ([]models.Metric, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	if isBlank(data) {
		return nil, ErrEmptyInput
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &models.ValidationError{Reason: "seed file must contain a JSON array"}
	}
	if len(items) == 0 {
		return nil, ErrEmptyInput
	}

	metrics := make([]models.Metric, 0, len(items))
	for i, item := range items {
		m, err := models.DecodeMetric(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

// isBlank reports whether data holds no document or a zero-valued one:
// null, false, 0, "", [] or {}.
func isBlank(data []byte) bool {
	if len(bytes.TrimSpace(data)) == 0 {
		return true
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return false
	}
	switch v := doc.(type) {
	case nil:
		return true
	case bool:
		return !v
	case float64:
		return v == 0
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}

// Write encodes metrics as an indented JSON array. A nil slice is written as [].
func Write(w io.Writer, metrics []models.Metric) error {
	if metrics == nil {
		metrics = []models.Metric{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(metrics); err != nil {
		return fmt.Errorf("encode seed: %w", err)
	}
	return nil
}

// Load reads the seed file at path. It returns ErrFileMissing or
// ErrEmptyInput when there is nothing to import.
func Load(path string) ([]models.Metric, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrFileMissing
		}
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Export writes every record to path, replacing the file.
func Export(ctx context.Context, sess storage.Session, path string) (int, error) {
	metrics, err := sess.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("read metrics: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create seed file: %w", err)
	}
	if err := Write(f, metrics); err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close seed file: %w", err)
	}

	logger.Log.Info(fmt.Sprintf("Exported %d metrics to %s", len(metrics), path))
	return len(metrics), nil
}

// Import inserts the records of the seed file at path in one transaction.
// Records whose id is already taken are left alone.
func Import(ctx context.Context, sess storage.Session, path string) (Result, error) {
	metrics, ok, err := loadReported(path)
	if !ok {
		return Result{}, err
	}

	stats, err := sess.Import(ctx, metrics)
	if err != nil {
		return Result{}, fmt.Errorf("import seed: %w", err)
	}
	logImported(stats, path)
	return Result{Loaded: true, Imported: stats.Imported, Skipped: stats.Skipped}, nil
}

// Bootstrap prepares the store at startup: it creates the schema and seeds
// it from path when it holds no records.
func Bootstrap(ctx context.Context, store storage.Storage, path string) (Result, error) {
	if err := store.EnsureSchema(ctx); err != nil {
		return Result{}, fmt.Errorf("ensure schema: %w", err)
	}

	sess, err := store.Session(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("acquire session: %w", err)
	}
	defer sess.Close()

	empty, err := sess.IsEmpty(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("check store: %w", err)
	}
	if !empty {
		logger.Log.Debug("Store already holds metrics, skipping seed")
		return Result{}, nil
	}
	logger.Log.Info("Database is empty. Loading seed data...", zap.String("path", path))

	metrics, ok, err := loadReported(path)
	if !ok {
		return Result{}, err
	}

	stats, seeded, err := sess.SeedIfEmpty(ctx, metrics)
	if err != nil {
		return Result{}, fmt.Errorf("seed store: %w", err)
	}
	if !seeded {
		logger.Log.Info("Store was seeded concurrently, skipping seed")
		return Result{}, nil
	}
	logImported(stats, path)
	return Result{Loaded: true, Imported: stats.Imported, Skipped: stats.Skipped}, nil
}

// loadReported loads path and logs the missing and empty cases, which are
// not errors. ok is false when nothing should be imported.
func loadReported(path string) ([]models.Metric, bool, error) {
	metrics, err := Load(path)
	switch {
	case errors.Is(err, ErrFileMissing):
		logger.Log.Warn(fmt.Sprintf("Seed file %s not found.", path))
		return nil, false, nil
	case errors.Is(err, ErrEmptyInput):
		logger.Log.Warn("Seed file is empty.", zap.String("path", path))
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return metrics, true, nil
}

func logImported(stats storage.ImportStats, path string) {
	logger.Log.Info(fmt.Sprintf("Imported %d metrics from %s", stats.Imported, path),
		zap.Int("skipped", stats.Skipped))
}
