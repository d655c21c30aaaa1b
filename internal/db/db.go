// Package db opens the corpus database and applies its schema.
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Dialects understood by Open.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

// Open picks the driver from dsn: postgres:// and postgresql:// URLs go to
// Postgres, anything else is a SQLite file path.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	if IsPostgres(dsn) {
		return OpenPostgres(ctx, dsn)
	}
	return OpenSQLite(ctx, dsn)
}

// IsPostgres reports whether dsn names a Postgres server.
func IsPostgres(dsn string) bool {
	d := strings.ToLower(dsn)
	return strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://")
}

// OpenSQLite opens (creating if needed) the database file at path and
// applies the schema. Writes are serialised on one connection.
func OpenSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	raw, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	raw.SetMaxOpenConns(1)
	raw.SetMaxIdleConns(1)
	raw.SetConnMaxLifetime(0)
	return prepare(ctx, sqlx.NewDb(raw, "sqlite3"), sqliteSchema)
}

// OpenPostgres connects through the pgx stdlib driver and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	raw, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	raw.SetMaxOpenConns(10)
	raw.SetMaxIdleConns(5)
	raw.SetConnMaxLifetime(30 * time.Minute)
	return prepare(ctx, sqlx.NewDb(raw, "pgx"), postgresSchema)
}

func prepare(ctx context.Context, db *sqlx.DB, schema string) (*sqlx.DB, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// Dialect names the schema flavour db was opened with.
func Dialect(db *sqlx.DB) string {
	if db.DriverName() == "pgx" {
		return Postgres
	}
	return SQLite
}
