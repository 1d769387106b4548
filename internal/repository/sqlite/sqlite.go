// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary builds
// without CGo. Schema changes are goose migrations embedded from migrations/.
//
// The pattern for every query is the same:
//  1. db.conn.QueryRowContext / QueryContext / ExecContext with ? placeholders
//  2. rows.Scan(&field1, &field2) into Go values
//  3. driver errors go through translateError, which turns them into apperror kinds
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// memoryPath is the SQLite name for a private in-memory database.
const memoryPath = ":memory:"

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// Options tunes the connection.
type Options struct {
	// BusyTimeout is how long a writer waits on a locked database before
	// SQLite gives up with SQLITE_BUSY.
	BusyTimeout time.Duration

	// SkipMigrations leaves the schema as found. The migrate command uses it.
	SkipMigrations bool
}

// New opens the database at dbPath and applies pending migrations.
//
// dbPath examples:
//   - "data/registry.db"  → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	return Open(context.Background(), dbPath, Options{BusyTimeout: 5 * time.Second})
}

// Open is New with explicit options and context.
func Open(ctx context.Context, dbPath string, opts Options) (*DB, error) {
	dsn := dbPath
	if dbPath != memoryPath {
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)",
			dbPath, opts.BusyTimeout.Milliseconds())
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate database, so the pool is
	// pinned to a single connection.
	if dbPath == memoryPath {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if dbPath == memoryPath {
		if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
		}
	}

	db := &DB{conn: conn}
	if opts.SkipMigrations {
		return db, nil
	}
	if _, err := db.Migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// NewWithConn wraps an existing pool without migrating it. Used with sqlmock.
func NewWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return translateError("ping", err)
	}
	return nil
}

func (db *DB) migrations() (*goose.Provider, error) {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(goose.DialectSQLite3, db.conn, fsys)
}

// Migrate applies every pending migration and returns the resulting schema version.
func (db *DB) Migrate(ctx context.Context) (int64, error) {
	p, err := db.migrations()
	if err != nil {
		return 0, fmt.Errorf("loading migrations: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return 0, fmt.Errorf("applying migrations: %w", err)
	}
	return p.GetDBVersion(ctx)
}

// MigrateDown rolls back the most recent migration.
func (db *DB) MigrateDown(ctx context.Context) (int64, error) {
	p, err := db.migrations()
	if err != nil {
		return 0, fmt.Errorf("loading migrations: %w", err)
	}
	if _, err := p.Down(ctx); err != nil {
		return 0, fmt.Errorf("rolling back migration: %w", err)
	}
	return p.GetDBVersion(ctx)
}

// MigrationState describes one migration file and whether it has been applied.
type MigrationState struct {
	Version int64
	Path    string
	Applied bool
}

// MigrationStatus lists every known migration in version order.
func (db *DB) MigrationStatus(ctx context.Context) ([]MigrationState, error) {
	p, err := db.migrations()
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}
	statuses, err := p.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading migration status: %w", err)
	}

	out := make([]MigrationState, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationState{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}
