package store

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var (
	// SQLite uses github.com/mattn/go-sqlite3 (cgo).
	SQLite = &SQLiteDialect{}
	// ModernSQLite uses modernc.org/sqlite (pure Go).
	ModernSQLite = &ModernSQLiteDialect{}
)

// Dialect describes one SQLite driver flavour.
//
// Both drivers speak the same SQL, so a dialect only differs in the
// database/sql driver name it registers and in how connection options are
// spelled in the DSN.
type Dialect interface {
	// Name is the database/sql driver name, also reported as db.system.
	Name() string

	// PlaceholderFormat is handed to squirrel when statements are rendered.
	PlaceholderFormat() sq.PlaceholderFormat

	// DSN builds the connection string for a database file at path.
	// busy is how long a connection waits on a locked file before failing;
	// zero leaves the driver default.
	DSN(path string, busy time.Duration) string
}

// DialectByName resolves a driver name as used in configuration.
func DialectByName(name string) (Dialect, error) {
	switch name {
	case "", SQLite.Name():
		return SQLite, nil
	case ModernSQLite.Name():
		return ModernSQLite, nil
	default:
		return nil, fmt.Errorf("store: unknown sqlite driver %q", name)
	}
}

// SQLiteDialect targets github.com/mattn/go-sqlite3.
//
// The driver reads its own options (prefixed with an underscore) from the
// query string and strips it before handing the path to sqlite.
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string { return "sqlite3" }

func (d *SQLiteDialect) PlaceholderFormat() sq.PlaceholderFormat { return sq.Question }

func (d *SQLiteDialect) DSN(path string, busy time.Duration) string {
	if busy <= 0 {
		return path
	}
	return fmt.Sprintf("%s?_busy_timeout=%d", path, busy.Milliseconds())
}

// ModernSQLiteDialect targets modernc.org/sqlite, which takes pragmas as
// repeated _pragma query parameters.
type ModernSQLiteDialect struct{}

func (d *ModernSQLiteDialect) Name() string { return "sqlite" }

func (d *ModernSQLiteDialect) PlaceholderFormat() sq.PlaceholderFormat { return sq.Question }

func (d *ModernSQLiteDialect) DSN(path string, busy time.Duration) string {
	if busy <= 0 {
		return path
	}
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)", path, busy.Milliseconds())
}
