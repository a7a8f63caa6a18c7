package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"prdchat/app/config"

	"github.com/go-sql-driver/mysql"
	"github.com/samber/do"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const initTimeout = 30 * time.Second

// New opens the store selected by the storage section of the config. Startup fails
// when the backend cannot be reached.
func New(di *do.Injector) (Store, error) {
	ctx := do.MustInvoke[context.Context](di)
	cfg := do.MustInvoke[*config.Config](di).Storage

	return Open(ctx, cfg)
}

func Open(ctx context.Context, cfg config.Storage) (Store, error) {
	switch cfg.Driver {
	case "memory":
		slog.Warn("Using in-memory session store, sessions are lost on restart")
		return NewMemoryStore(), nil
	case "file":
		store, err := NewFileStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		return initSQLStore(ctx, db, postgresDialect, cfg.Table)
	case "mysql":
		db, err := openMySQL(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return initSQLStore(ctx, db, mysqlDialect, cfg.Table)
	case "sqlite":
		db, err := openSQLite(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return initSQLStore(ctx, db, sqliteDialect, cfg.Table)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func openMySQL(dsn string) (*sql.DB, error) {
	mysqlCfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mysql dsn: %w", err)
	}
	// report matched rather than changed rows, so an update with identical values is
	// not mistaken for a missing session
	mysqlCfg.ClientFoundRows = true

	connector, err := mysql.NewConnector(mysqlCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create mysql connector: %w", err)
	}

	return sql.OpenDB(connector), nil
}

func openSQLite(dsn string) (*sql.DB, error) {
	if path := sqlitePath(dsn); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	return db, nil
}

// sqlitePath extracts the database file of a sqlite DSN, empty for in-memory databases.
func sqlitePath(dsn string) string {
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if path == "" || strings.Contains(path, ":memory:") {
		return ""
	}

	return path
}

func initSQLStore(ctx context.Context, db *sql.DB, d dialect, table string) (Store, error) {
	ctx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s ping failed: %w", d.driver, err)
	}

	store := newSQLStore(db, d, table)
	if err := store.EnsureTable(ctx); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("Session store ready", "driver", d.driver, "table", table)

	return store, nil
}
