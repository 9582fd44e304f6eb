package storage

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
)

const (
	metricTable = "metric"

	// seedLockKey identifies the advisory lock taken while seeding an empty table.
	seedLockKey = 7306249211
)

var metricColumns = []string{"id", "name", "value", "metric_type", "color", "icon"}

// Dialect carries the SQL that differs between supported databases.
type Dialect struct {
	name        string
	driver      string
	placeholder sq.PlaceholderFormat
	schema      string
	// seedLock runs first in the seeding transaction to serialize instances.
	seedLock string
	// lockRow is appended to the select of a read-modify-write.
	lockRow string
	// resync realigns the id sequence after rows with explicit ids were inserted.
	resync string
}

func (d Dialect) Name() string {
	return d.name
}

var Postgres = Dialect{
	name:        "postgres",
	driver:      "postgres",
	placeholder: sq.Dollar,
	schema: `
		CREATE TABLE IF NOT EXISTS metric (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			metric_type TEXT NOT NULL DEFAULT 'text',
			color TEXT NOT NULL DEFAULT 'blue',
			icon TEXT
		)
	`,
	seedLock: "SELECT pg_advisory_xact_lock($1)",
	lockRow:  "FOR UPDATE",
	resync:   "SELECT setval(pg_get_serial_sequence('metric', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM metric",
}

var SQLite = Dialect{
	name:        "sqlite",
	driver:      "sqlite3",
	placeholder: sq.Question,
	schema: `
		CREATE TABLE IF NOT EXISTS metric (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			metric_type TEXT NOT NULL DEFAULT 'text',
			color TEXT NOT NULL DEFAULT 'blue',
			icon TEXT
		)
	`,
}

// sqliteDSN turns a bare path or sqlite:// URL into a go-sqlite3 DSN whose
// transactions take the write lock on BEGIN.
func sqliteDSN(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	for _, param := range []string{"_txlock=immediate", "_busy_timeout=5000"} {
		key := param[:strings.IndexByte(param, '=')+1]
		if strings.Contains(dsn, key) {
			continue
		}
		if strings.Contains(dsn, "?") {
			dsn += "&" + param
		} else {
			dsn += "?" + param
		}
	}
	return dsn
}
