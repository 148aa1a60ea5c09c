// Package sqlstore persists users, communities, posts, comments and votes in SQLite or PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (dialect Dialect) IsValid() bool {
	switch dialect {
	case DialectSQLite, DialectPostgres:
		return true
	default:
		return false
	}
}

func (dialect Dialect) driverName() string {
	if dialect == DialectPostgres {
		return "pgx"
	}

	return "sqlite"
}

const (
	maxConnectAttempts = 5
	connectRetryDelay  = 2 * time.Second
)

// DB is a database handle that knows which SQL dialect it speaks.
type DB struct {
	*sql.DB
	dialect Dialect
}

func NewDB(ctx context.Context, dialect Dialect, dsn string) (*DB, error) {
	if !dialect.IsValid() {
		return nil, fmt.Errorf("unsupported database dialect: %q", dialect)
	}

	sqlDB, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sql db: %w", err)
	}

	if dialect == DialectSQLite {
		// one connection serializes writers and keeps in-memory databases alive
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	}

	err = prepare(ctx, sqlDB, dialect)
	if err != nil {
		closeErr := sqlDB.Close()
		if closeErr != nil {
			slog.ErrorContext(ctx, "failed to close sql db", "error", closeErr)
		}

		return nil, err
	}

	return &DB{DB: sqlDB, dialect: dialect}, nil
}

// prepare checks the connection and applies per connection settings. sqlDB must be closed when it
// fails.
func prepare(ctx context.Context, sqlDB *sql.DB, dialect Dialect) error {
	err := ping(ctx, sqlDB, dialect)
	if err != nil {
		return fmt.Errorf("failed to ping sql db: %w", err)
	}

	if dialect == DialectSQLite {
		_, err = sqlDB.ExecContext(ctx, "PRAGMA foreign_keys = ON")
		if err != nil {
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	return nil
}

func ping(ctx context.Context, sqlDB *sql.DB, dialect Dialect) error {
	attempts := 1
	if dialect == DialectPostgres {
		attempts = maxConnectAttempts
	}

	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		err = sqlDB.PingContext(ctx)
		if err == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		slog.WarnContext(ctx, "database connection attempt failed", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(connectRetryDelay):
		}
	}

	return err
}

func (db *DB) Dialect() Dialect {
	return db.dialect
}

func (db *DB) builder() sq.StatementBuilderType {
	if db.dialect == DialectPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}

	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// inTx runs fn in a transaction that is committed when fn returns nil and rolled back otherwise.
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err == nil {
			return
		}

		rollbackErr := tx.Rollback()
		if rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "failed to rollback transaction", "error", rollbackErr)
		}
	}()

	err = fn(tx)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func getMigrateInstance(db *DB) (*migrate.Migrate, error) {
	var (
		driver database.Driver
		err    error
	)

	switch db.dialect {
	case DialectPostgres:
		driver, err = migratepgx.WithInstance(db.DB, &migratepgx.Config{})
	default:
		driver, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s driver: %w", db.dialect, err)
	}

	d, err := iofs.New(migrationsFS, "migrations/"+string(db.dialect))
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, string(db.dialect), driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, nil
}

func MigrateUp(ctx context.Context, db *DB) error {
	m, err := getMigrateInstance(db)
	if err != nil {
		return fmt.Errorf("failed to get migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migration: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to get current active migration version: %w", err)
	}

	slog.InfoContext(ctx, "migration applied successfully", "version", version, "dirty", dirty)

	return nil
}

func MigrateDown(ctx context.Context, db *DB) error {
	m, err := getMigrateInstance(db)
	if err != nil {
		return fmt.Errorf("failed to get migrate instance: %w", err)
	}

	err = m.Down()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migration down: %w", err)
	}

	slog.InfoContext(ctx, "all migrations reverted")

	return nil
}

type rowsCloser interface {
	Close() error
}

func closeRows(ctx context.Context, rows rowsCloser) {
	err := rows.Close()
	if err != nil {
		slog.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
