package override

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/vilniusrent/valuation-cli/internal/district"
)

// SQLiteStore implements Store on modernc.org/sqlite, for deployments where
// the override set is shared rather than per-client.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the override database at dsn.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "override sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "override sqlite: exec %s", pragma)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const overrideMigration = `
CREATE TABLE IF NOT EXISTS overrides (
	seq                INTEGER PRIMARY KEY AUTOINCREMENT,
	raw_name           TEXT NOT NULL UNIQUE,
	previous_district  TEXT,
	corrected_district TEXT NOT NULL,
	reason             TEXT NOT NULL DEFAULT '',
	applied_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(overrideMigration)
	return eris.Wrap(err, "override sqlite: migrate")
}

func (s *SQLiteStore) List(ctx context.Context) ([]Override, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT raw_name, previous_district, corrected_district, reason
		 FROM overrides ORDER BY seq`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "override sqlite: list")
	}
	defer rows.Close()

	var overrides []Override
	for rows.Next() {
		var o Override
		var previous sql.NullString
		if err := rows.Scan(&o.RawName, &previous, &o.CorrectedDistrict, &o.Reason); err != nil {
			return nil, eris.Wrap(err, "override sqlite: scan")
		}
		if previous.Valid {
			d := district.CanonicalDistrict(previous.String)
			o.PreviousDistrict = &d
		}
		overrides = append(overrides, o)
	}
	return overrides, eris.Wrap(rows.Err(), "override sqlite: iterate")
}

func (s *SQLiteStore) Apply(ctx context.Context, o Override) error {
	if err := o.Validate(); err != nil {
		return err
	}

	var previous any
	if o.PreviousDistrict != nil {
		previous = string(*o.PreviousDistrict)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO overrides (raw_name, previous_district, corrected_district, reason)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (raw_name) DO UPDATE SET
			previous_district = excluded.previous_district,
			corrected_district = excluded.corrected_district,
			reason = excluded.reason,
			applied_at = datetime('now')`,
		o.RawName, previous, string(o.CorrectedDistrict), o.Reason,
	)
	return eris.Wrapf(err, "override sqlite: apply %q", o.RawName)
}

func (s *SQLiteStore) Remove(ctx context.Context, rawName string) (*district.CanonicalDistrict, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "override sqlite: begin remove")
	}
	defer tx.Rollback() //nolint:errcheck

	var previous sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT previous_district FROM overrides WHERE raw_name = ?`, rawName,
	).Scan(&previous)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("override: no override for %q", rawName)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "override sqlite: lookup %q", rawName)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM overrides WHERE raw_name = ?`, rawName); err != nil {
		return nil, eris.Wrapf(err, "override sqlite: delete %q", rawName)
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "override sqlite: commit remove")
	}

	if !previous.Valid {
		return nil, nil
	}
	d := district.CanonicalDistrict(previous.String)
	return &d, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
