package storage

import (
	"context"
	"strings"
)

// Open returns the store selected by dsn: "memory" for the in-process store,
// a postgres:// URL for PostgreSQL, anything else is a SQLite file path.
func Open(ctx context.Context, dsn string) (Storage, error) {
	switch {
	case dsn == "memory" || dsn == "memory://":
		return NewMemStorage(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenSQL(ctx, Postgres, dsn)
	default:
		return OpenSQL(ctx, SQLite, sqliteDSN(dsn))
	}
}
