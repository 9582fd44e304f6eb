package storage

import (
	"context"
	"errors"

	"github.com/alisaviation/metricboard/internal/models"
)

var (
	ErrNotFound    = errors.New("metric not found")
	ErrDuplicateID = errors.New("metric id already exists")
)

// ImportStats counts the outcome of a batch import.
type ImportStats struct {
	Imported int
	Skipped  int
}

// Storage is a connection factory for metric sessions.
type Storage interface {
	// EnsureSchema creates the metric table if it does not exist yet.
	EnsureSchema(ctx context.Context) error
	// Session acquires a connection scoped to the caller. It must be closed.
	Session(ctx context.Context) (Session, error)
	Close() error
}

// Session is a scoped handle on the store. Every method runs in its own
// transaction unless stated otherwise.
type Session interface {
	Create(ctx context.Context, metric models.Metric) (models.Metric, error)
	List(ctx context.Context, offset, limit uint64) ([]models.Metric, error)
	All(ctx context.Context) ([]models.Metric, error)
	Get(ctx context.Context, id int64) (models.Metric, error)
	Update(ctx context.Context, id int64, patch models.MetricPatch) (models.Metric, error)
	Delete(ctx context.Context, id int64) error
	IsEmpty(ctx context.Context) (bool, error)

	// Import inserts metrics in a single transaction, skipping any whose id
	// already exists.
	Import(ctx context.Context, metrics []models.Metric) (ImportStats, error)
	// SeedIfEmpty behaves like Import but only when the table is empty,
	// checked under a store-wide lock. The bool reports whether it ran.
	SeedIfEmpty(ctx context.Context, metrics []models.Metric) (ImportStats, bool, error)

	Close() error
}
