package db

import (
	"context"
	"database/sql"
	"fmt"
)

// SequenceSpec names a table whose integer primary key is backed by a sequence.
type SequenceSpec struct {
	Table    string
	IDColumn string
}

// SequenceDrift captures a sequence that lags behind the max existing ID.
// Rows are inserted with explicit IDs, so every table drifts after an import.
type SequenceDrift struct {
	Table    string `json:"table"`
	MaxID    int    `json:"max_id"`
	SeqValue int    `json:"seq_value"`
}

// DefaultSequenceSpecs returns every table with a generated primary key.
func DefaultSequenceSpecs() []SequenceSpec {
	tables := []string{
		"users",
		"images",
		"archives",
		"fonds",
		"collections",
		"private_collections",
		"charters",
		"saved_charters",
		"private_charters",
		"persons",
		"person_names",
	}
	specs := make([]SequenceSpec, len(tables))
	for i, t := range tables {
		specs[i] = SequenceSpec{Table: t, IDColumn: "id"}
	}
	return specs
}

// SequenceDrifts returns any sequences whose value is below the max existing ID.
func (db *DB) SequenceDrifts(ctx context.Context, specs []SequenceSpec) ([]SequenceDrift, error) {
	drifts := []SequenceDrift{}

	for _, spec := range specs {
		maxID, err := db.maxExistingID(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("failed to compute max ID for %s: %w", spec.Table, err)
		}

		seqValue, err := db.currentSequence(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("failed to read sequence for %s: %w", spec.Table, err)
		}

		if seqValue < maxID {
			drifts = append(drifts, SequenceDrift{
				Table:    spec.Table,
				MaxID:    maxID,
				SeqValue: seqValue,
			})
		}
	}

	return drifts, nil
}

// FixSequenceDrifts moves lagging sequences up to the max existing IDs.
// Returns the list of sequences that were updated.
func (db *DB) FixSequenceDrifts(ctx context.Context, specs []SequenceSpec) ([]SequenceDrift, error) {
	drifts, err := db.SequenceDrifts(ctx, specs)
	if err != nil {
		return nil, err
	}

	for _, drift := range drifts {
		if err := db.setSequence(ctx, drift.Table, drift.MaxID); err != nil {
			return nil, fmt.Errorf("failed to update sequence for %s: %w", drift.Table, err)
		}
	}

	return drifts, nil
}

// ResetSequences fixes drift on every default table
func (db *DB) ResetSequences(ctx context.Context) ([]SequenceDrift, error) {
	return db.FixSequenceDrifts(ctx, DefaultSequenceSpecs())
}

func (db *DB) maxExistingID(ctx context.Context, spec SequenceSpec) (int, error) {
	query := fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) FROM %s", quoteIdent(spec.IDColumn), quoteIdent(spec.Table))
	var maxID int
	if err := db.QueryRowContext(ctx, query).Scan(&maxID); err != nil {
		return 0, err
	}
	return maxID, nil
}

func (db *DB) currentSequence(ctx context.Context, spec SequenceSpec) (int, error) {
	if db.dialect == Postgres {
		var seqName sql.NullString
		err := db.QueryRowContext(ctx, "SELECT pg_get_serial_sequence($1, $2)", spec.Table, spec.IDColumn).Scan(&seqName)
		if err != nil {
			return 0, err
		}
		if !seqName.Valid {
			return 0, fmt.Errorf("table %s has no serial sequence", spec.Table)
		}
		var seq int
		query := "SELECT CASE WHEN is_called THEN last_value ELSE last_value - 1 END FROM " + seqName.String
		if err := db.QueryRowContext(ctx, query).Scan(&seq); err != nil {
			return 0, err
		}
		return seq, nil
	}

	var seq sql.NullInt64
	err := db.QueryRowContext(ctx, "SELECT seq FROM sqlite_sequence WHERE name = ?", spec.Table).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil
	}
	return int(seq.Int64), nil
}

func (db *DB) setSequence(ctx context.Context, table string, value int) error {
	if db.dialect == Postgres {
		_, err := db.ExecContext(ctx, "SELECT setval(pg_get_serial_sequence($1, 'id'), $2)", table, value)
		return err
	}

	res, err := db.ExecContext(ctx, "UPDATE sqlite_sequence SET seq = ? WHERE name = ?", value, table)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}
	_, err = db.ExecContext(ctx, "INSERT INTO sqlite_sequence (name, seq) VALUES (?, ?)", table, value)
	return err
}
