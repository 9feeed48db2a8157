package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/lherron/momcheck/internal/config"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Dialect names the SQL flavour behind a DB
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DB wraps a database connection. Pool is only set for Postgres.
type DB struct {
	*sql.DB
	Pool    *pgxpool.Pool
	dialect Dialect
	path    string
}

// Open connects to the database described by cfg
func Open(ctx context.Context, cfg *config.Config) (*DB, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg)
	case config.DriverSQLite:
		return openSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
}

func openSQLite(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Pragmas are per connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragma %q: %w", pragma, err)
		}
	}

	return &DB{DB: db, dialect: SQLite, path: path}, nil
}

func openPostgres(ctx context.Context, cfg *config.Config) (*DB, error) {
	if err := ensureDatabase(ctx, cfg); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN(""))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &DB{
		DB:      stdlib.OpenDBFromPool(pool),
		Pool:    pool,
		dialect: Postgres,
		path:    fmt.Sprintf("%s:%d/%s", cfg.DBHost, cfg.DBPort, cfg.DBName),
	}, nil
}

// ensureDatabase creates the configured database through the maintenance
// database when it does not exist yet.
func ensureDatabase(ctx context.Context, cfg *config.Config) error {
	conn, err := pgx.Connect(ctx, cfg.PostgresDSN("postgres"))
	if err != nil {
		return fmt.Errorf("failed to connect to maintenance database: %w", err)
	}
	defer conn.Close(ctx)

	var one int
	err = conn.QueryRow(ctx, "SELECT 1 FROM pg_database WHERE datname = $1", cfg.DBName).Scan(&one)
	if err == nil {
		return nil
	}
	if err != pgx.ErrNoRows {
		return fmt.Errorf("failed to look up database %s: %w", cfg.DBName, err)
	}

	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{cfg.DBName}.Sanitize()); err != nil {
		return fmt.Errorf("failed to create database %s: %w", cfg.DBName, err)
	}
	return nil
}

// Dialect returns the SQL dialect of the connection
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Path returns the database file path, or host:port/name for Postgres
func (db *DB) Path() string {
	return db.path
}

// Close closes the connection and, for Postgres, the pool behind it
func (db *DB) Close() error {
	err := db.DB.Close()
	if db.Pool != nil {
		db.Pool.Close()
	}
	return err
}

// Rebind rewrites ? placeholders into $n for Postgres
func (db *DB) Rebind(query string) string {
	if db.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Reset drops every table and recreates the schema from the embedded migrations
func (db *DB) Reset(ctx context.Context) error {
	if err := db.dropAll(ctx); err != nil {
		return err
	}
	return db.Migrate(ctx)
}

// Migrate applies pending migrations for the connection's dialect
func (db *DB) Migrate(ctx context.Context) error {
	gooseDialect := "postgres"
	if db.dialect == SQLite {
		gooseDialect = "sqlite3"
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	goose.SetLogger(goose.NopLogger())

	if err := goose.UpContext(ctx, db.DB, "migrations/"+string(db.dialect)); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// SchemaVersion returns the current migration version
func (db *DB) SchemaVersion(ctx context.Context) (int64, error) {
	return goose.GetDBVersionContext(ctx, db.DB)
}

func (db *DB) dropAll(ctx context.Context) error {
	if db.dialect == Postgres {
		return db.dropAllPostgres(ctx)
	}
	return db.dropAllSQLite(ctx)
}

func (db *DB) dropAllSQLite(ctx context.Context) error {
	tables, err := db.strings(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
	`)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return err
	}
	defer db.ExecContext(ctx, "PRAGMA foreign_keys = ON")

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}

func (db *DB) dropAllPostgres(ctx context.Context) error {
	tables, err := db.strings(ctx, "SELECT tablename FROM pg_tables WHERE schemaname = 'public'")
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	for _, table := range tables {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)+" CASCADE"); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	functions, err := db.strings(ctx, `
		SELECT p.proname || '(' || pg_get_function_identity_arguments(p.oid) || ')'
		FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		WHERE n.nspname = 'public'
	`)
	if err != nil {
		return fmt.Errorf("failed to list functions: %w", err)
	}
	for _, fn := range functions {
		if _, err := db.ExecContext(ctx, "DROP FUNCTION IF EXISTS "+fn+" CASCADE"); err != nil {
			return fmt.Errorf("failed to drop function %s: %w", fn, err)
		}
	}
	return nil
}

func (db *DB) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
