package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/vbonduro/lightbnb/internal/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// sqlitePragmas are applied by modernc.org/sqlite to every new connection.
// case_sensitive_like keeps LIKE semantics aligned with Postgres.
const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=case_sensitive_like(1)"

// Open connects to the database selected by cfg.DBDriver, verifies the
// connection and, if cfg.DBAutoMigrate is set, applies pending migrations.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	driver, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("database connected", "driver", driver)

	if cfg.DBAutoMigrate {
		if err := Migrate(ctx, db, driver, logger); err != nil {
			if cerr := db.Close(); cerr != nil {
				return nil, fmt.Errorf("failed to run migrations: %w (also failed to close db: %v)", err, cerr)
			}
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return db, nil
}

func dataSource(cfg *config.Config) (driver, dsn string, err error) {
	switch cfg.DBDriver {
	case DriverPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.DBUser, cfg.DBPassword),
			Host:     net.JoinHostPort(cfg.DBHost, strconv.Itoa(cfg.DBPort)),
			Path:     "/" + cfg.DBName,
			RawQuery: url.Values{"sslmode": {cfg.DBSSLMode}}.Encode(),
		}
		return DriverPostgres, u.String(), nil
	case DriverSQLite:
		return DriverSQLite, fmt.Sprintf("file:%s?mode=rwc&_pragma=journal_mode(WAL)&%s", cfg.DBPath, sqlitePragmas), nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

// Migrate applies all pending up migrations for driver. The database handle
// stays open; only the connection borrowed for migrating is released.
func Migrate(ctx context.Context, db *sql.DB, driver string, logger *slog.Logger) error {
	src, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	defer func() { _ = src.Close() }()

	var target database.Driver
	switch driver {
	case DriverPostgres:
		conn, err := db.Conn(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire migration connection: %w", err)
		}
		defer func() { _ = conn.Close() }()
		target, err = postgres.WithConnection(ctx, conn, &postgres.Config{})
		if err != nil {
			return fmt.Errorf("failed to create migration driver: %w", err)
		}
	case DriverSQLite:
		target, err = sqlite.WithInstance(db, &sqlite.Config{})
		if err != nil {
			return fmt.Errorf("failed to create migration driver: %w", err)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}

	m, err := migrate.NewWithInstance("iofs", src, driver, target)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	logger.Info("database schema up to date", "version", version, "dirty", dirty)
	return nil
}

var testDBSeq atomic.Int64

// OpenForTesting returns a fresh, migrated in-memory SQLite database. Each
// call gets its own database.
func OpenForTesting() (*sql.DB, error) {
	name := fmt.Sprintf("lightbnb_test_%d", testDBSeq.Add(1))
	db, err := sql.Open(DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared&%s", name, sqlitePragmas))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps the in-memory database alive for the
	// lifetime of the handle.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := Migrate(context.Background(), db, DriverSQLite, slog.New(slog.DiscardHandler)); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
