// Package loader writes finished backup batches into the relational schema.
//
// Every batch is written inside one transaction. Postgres batches go through
// the COPY protocol; SQLite batches through a prepared insert per table.
package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/lherron/momcheck/internal/db"
	"github.com/lherron/momcheck/internal/xmldoc"
)

// sqliteChunk bounds the number of bound parameters of a lookup query
const sqliteChunk = 500

// Loader implements backup.Sink on top of a db.DB
type Loader struct {
	db     *db.DB
	log    logrus.FieldLogger
	counts map[string]int
}

// New creates a loader writing to database
func New(database *db.DB, logger logrus.FieldLogger) *Loader {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		logger = l
	}
	return &Loader{db: database, log: logger, counts: make(map[string]int)}
}

// Counts returns the number of rows written per table
func (l *Loader) Counts() map[string]int {
	out := make(map[string]int, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

// writer is the per-transaction write surface of one dialect
type writer interface {
	// Copy bulk-inserts rows into table
	Copy(ctx context.Context, table string, columns []string, rows [][]any) error
	// ExecEach runs query once per argument row
	ExecEach(ctx context.Context, query string, rows [][]any) error
	// IDs maps each key found in column of table to the row's id
	IDs(ctx context.Context, table, column string, keys []string) (map[string]int, error)
}

func (l *Loader) within(ctx context.Context, fn func(w writer) error) error {
	if l.db.Dialect() == db.Postgres {
		tx, err := l.db.Pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := fn(&pgWriter{tx: tx}); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit: %w", err)
		}
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteWriter{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// copy writes rows and keeps the per-table count
func (l *Loader) copy(ctx context.Context, w writer, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	if err := w.Copy(ctx, table, columns, rows); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	l.counts[table] += len(rows)
	l.log.WithFields(logrus.Fields{"table": table, "rows": len(rows)}).Debug("rows written")
	return nil
}

// date renders a calendar date for the dialect's date columns
func (l *Loader) date(t *time.Time) any {
	if t == nil {
		return nil
	}
	if l.db.Dialect() == db.SQLite {
		return t.Format(time.DateOnly)
	}
	return *t
}

func (l *Loader) timestamp(t time.Time) any {
	if l.db.Dialect() == db.SQLite {
		return t.UTC().Format(time.DateTime)
	}
	return t
}

func plainText(fragment *string) any {
	if fragment == nil {
		return nil
	}
	return xmldoc.PlainText(*fragment)
}

type pgWriter struct {
	tx pgx.Tx
}

func (w *pgWriter) Copy(ctx context.Context, table string, columns []string, rows [][]any) error {
	_, err := w.tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	return err
}

func (w *pgWriter) ExecEach(ctx context.Context, query string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(query, row...)
	}
	return w.tx.SendBatch(ctx, batch).Close()
}

func (w *pgWriter) IDs(ctx context.Context, table, column string, keys []string) (map[string]int, error) {
	ids := make(map[string]int, len(keys))
	if len(keys) == 0 {
		return ids, nil
	}

	query := fmt.Sprintf("SELECT id, %s FROM %s WHERE %s = ANY($1)",
		pgx.Identifier{column}.Sanitize(), pgx.Identifier{table}.Sanitize(), pgx.Identifier{column}.Sanitize())
	rows, err := w.tx.Query(ctx, query, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		var key string
		if err := rows.Scan(&id, &key); err != nil {
			return nil, err
		}
		ids[key] = id
	}
	return ids, rows.Err()
}

type sqliteWriter struct {
	tx *sql.Tx
}

func (w *sqliteWriter) Copy(ctx context.Context, table string, columns []string, rows [][]any) error {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoted, ", "), placeholders(len(columns)))
	return w.ExecEach(ctx, query, rows)
}

func (w *sqliteWriter) ExecEach(ctx context.Context, query string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := w.tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return err
		}
	}
	return nil
}

func (w *sqliteWriter) IDs(ctx context.Context, table, column string, keys []string) (map[string]int, error) {
	ids := make(map[string]int, len(keys))

	for start := 0; start < len(keys); start += sqliteChunk {
		end := min(start+sqliteChunk, len(keys))
		chunk := keys[start:end]

		args := make([]any, len(chunk))
		for i, k := range chunk {
			args[i] = k
		}
		query := fmt.Sprintf("SELECT id, %s FROM %s WHERE %s IN (%s)",
			quoteIdent(column), quoteIdent(table), quoteIdent(column), placeholders(len(chunk)))

		if err := func() error {
			rows, err := w.tx.QueryContext(ctx, query, args...)
			if err != nil {
				return err
			}
			defer rows.Close()

			for rows.Next() {
				var id int
				var key string
				if err := rows.Scan(&id, &key); err != nil {
					return err
				}
				ids[key] = id
			}
			return rows.Err()
		}(); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
