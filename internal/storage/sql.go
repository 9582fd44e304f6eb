package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/alisaviation/metricboard/internal/models"
)

// SQLStorage is a Storage backed by a database/sql pool.
type SQLStorage struct {
	DB      *sqlx.DB
	dialect Dialect
	builder sq.StatementBuilderType
}

func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStorage, error) {
	db, err := sqlx.ConnectContext(ctx, dialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect.name, err)
	}
	return NewSQLStorageFromDB(db, dialect)
}

func NewSQLStorageFromDB(db *sqlx.DB, dialect Dialect) (*SQLStorage, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &SQLStorage{
		DB:      db,
		dialect: dialect,
		builder: sq.StatementBuilder.PlaceholderFormat(dialect.placeholder),
	}, nil
}

func (p *SQLStorage) EnsureSchema(ctx context.Context) error {
	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, p.dialect.schema); err != nil {
		return fmt.Errorf("failed to create metric table: %w", err)
	}
	return tx.Commit()
}

func (p *SQLStorage) Session(ctx context.Context) (Session, error) {
	conn, err := p.DB.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &sqlSession{conn: conn, dialect: p.dialect, builder: p.builder}, nil
}

func (p *SQLStorage) Close() error {
	return p.DB.Close()
}

type sqlSession struct {
	conn    *sqlx.Conn
	dialect Dialect
	builder sq.StatementBuilderType
}

type queryExecer interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

func (s *sqlSession) selectMetrics() sq.SelectBuilder {
	return s.builder.Select(metricColumns...).From(metricTable)
}

func (s *sqlSession) Create(ctx context.Context, metric models.Metric) (models.Metric, error) {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return models.Metric{}, err
	}
	defer tx.Rollback()

	created, err := s.insert(ctx, tx, metric)
	if err != nil {
		return models.Metric{}, err
	}
	if metric.HasID() {
		if err := s.resync(ctx, tx); err != nil {
			return models.Metric{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return models.Metric{}, fmt.Errorf("commit failed: %w", err)
	}
	return created, nil
}

func (s *sqlSession) List(ctx context.Context, offset, limit uint64) ([]models.Metric, error) {
	query, args, err := s.selectMetrics().OrderBy("id").Limit(limit).Offset(offset).ToSql()
	if err != nil {
		return nil, err
	}
	metrics := make([]models.Metric, 0)
	if err := s.conn.SelectContext(ctx, &metrics, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list metrics: %w", err)
	}
	return metrics, nil
}

func (s *sqlSession) All(ctx context.Context) ([]models.Metric, error) {
	query, args, err := s.selectMetrics().OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	metrics := make([]models.Metric, 0)
	if err := s.conn.SelectContext(ctx, &metrics, query, args...); err != nil {
		return nil, fmt.Errorf("failed to read metrics: %w", err)
	}
	return metrics, nil
}

func (s *sqlSession) Get(ctx context.Context, id int64) (models.Metric, error) {
	return s.get(ctx, s.conn, id, "")
}

func (s *sqlSession) get(ctx context.Context, q sqlx.QueryerContext, id int64, suffix string) (models.Metric, error) {
	builder := s.selectMetrics().Where(sq.Eq{"id": id})
	if suffix != "" {
		builder = builder.Suffix(suffix)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return models.Metric{}, err
	}

	var metric models.Metric
	err = sqlx.GetContext(ctx, q, &metric, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Metric{}, ErrNotFound
	}
	if err != nil {
		return models.Metric{}, fmt.Errorf("failed to get metric %d: %w", id, err)
	}
	return metric, nil
}

func (s *sqlSession) Update(ctx context.Context, id int64, patch models.MetricPatch) (models.Metric, error) {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return models.Metric{}, err
	}
	defer tx.Rollback()

	stored, err := s.get(ctx, tx, id, s.dialect.lockRow)
	if err != nil {
		return models.Metric{}, err
	}
	if patch.Empty() {
		return stored, tx.Commit()
	}

	updated := patch.Apply(stored)
	query, args, err := s.builder.Update(metricTable).
		Set("name", updated.Name).
		Set("value", updated.Value).
		Set("metric_type", updated.MetricType).
		Set("color", updated.Color).
		Set("icon", updated.Icon).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.Metric{}, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return models.Metric{}, fmt.Errorf("failed to update metric %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return models.Metric{}, fmt.Errorf("commit failed: %w", err)
	}
	return updated, nil
}

func (s *sqlSession) Delete(ctx context.Context, id int64) error {
	query, args, err := s.builder.Delete(metricTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete metric %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlSession) IsEmpty(ctx context.Context) (bool, error) {
	n, err := s.count(ctx, s.conn, nil)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

func (s *sqlSession) count(ctx context.Context, q sqlx.QueryerContext, where sq.Sqlizer) (int64, error) {
	builder := s.builder.Select("COUNT(*)").From(metricTable)
	if where != nil {
		builder = builder.Where(where)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := sqlx.GetContext(ctx, q, &n, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count metrics: %w", err)
	}
	return n, nil
}

func (s *sqlSession) Import(ctx context.Context, metrics []models.Metric) (ImportStats, error) {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return ImportStats{}, err
	}
	defer tx.Rollback()

	stats, err := s.importTx(ctx, tx, metrics)
	if err != nil {
		return ImportStats{}, err
	}
	if err := tx.Commit(); err != nil {
		return ImportStats{}, fmt.Errorf("commit failed: %w", err)
	}
	return stats, nil
}

func (s *sqlSession) SeedIfEmpty(ctx context.Context, metrics []models.Metric) (ImportStats, bool, error) {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return ImportStats{}, false, err
	}
	defer tx.Rollback()

	if s.dialect.seedLock != "" {
		if _, err := tx.ExecContext(ctx, s.dialect.seedLock, seedLockKey); err != nil {
			return ImportStats{}, false, fmt.Errorf("failed to lock metric table: %w", err)
		}
	}
	n, err := s.count(ctx, tx, nil)
	if err != nil {
		return ImportStats{}, false, err
	}
	if n > 0 {
		return ImportStats{}, false, nil
	}

	stats, err := s.importTx(ctx, tx, metrics)
	if err != nil {
		return ImportStats{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return ImportStats{}, false, fmt.Errorf("commit failed: %w", err)
	}
	return stats, true, nil
}

func (s *sqlSession) importTx(ctx context.Context, tx *sqlx.Tx, metrics []models.Metric) (ImportStats, error) {
	var stats ImportStats
	// explicit ids leave the postgres sequence behind until resynced
	pendingResync := false

	for _, metric := range metrics {
		if metric.HasID() {
			n, err := s.count(ctx, tx, sq.Eq{"id": *metric.ID})
			if err != nil {
				return ImportStats{}, err
			}
			if n > 0 {
				stats.Skipped++
				continue
			}
			pendingResync = true
		} else if pendingResync {
			if err := s.resync(ctx, tx); err != nil {
				return ImportStats{}, err
			}
			pendingResync = false
		}

		if _, err := s.insert(ctx, tx, metric); err != nil {
			return ImportStats{}, err
		}
		stats.Imported++
	}

	if pendingResync {
		if err := s.resync(ctx, tx); err != nil {
			return ImportStats{}, err
		}
	}
	return stats, nil
}

func (s *sqlSession) insert(ctx context.Context, q queryExecer, metric models.Metric) (models.Metric, error) {
	builder := s.builder.Insert(metricTable)
	if metric.HasID() {
		builder = builder.Columns(metricColumns...).
			Values(*metric.ID, metric.Name, metric.Value, metric.MetricType, metric.Color, metric.Icon)
	} else {
		builder = builder.Columns(metricColumns[1:]...).
			Values(metric.Name, metric.Value, metric.MetricType, metric.Color, metric.Icon)
	}
	query, args, err := builder.Suffix("RETURNING " + strings.Join(metricColumns, ", ")).ToSql()
	if err != nil {
		return models.Metric{}, err
	}

	var created models.Metric
	if err := sqlx.GetContext(ctx, q, &created, query, args...); err != nil {
		if IsUniqueViolationError(err) {
			return models.Metric{}, fmt.Errorf("%w: %w", ErrDuplicateID, err)
		}
		return models.Metric{}, fmt.Errorf("failed to insert metric: %w", err)
	}
	return created, nil
}

func (s *sqlSession) resync(ctx context.Context, q sqlx.ExecerContext) error {
	if s.dialect.resync == "" {
		return nil
	}
	if _, err := q.ExecContext(ctx, s.dialect.resync); err != nil {
		return fmt.Errorf("failed to resync id sequence: %w", err)
	}
	return nil
}

func (s *sqlSession) Close() error {
	return s.conn.Close()
}
