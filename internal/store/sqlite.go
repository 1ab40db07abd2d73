package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/vilniusrent/valuation-cli/internal/comparable"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS listings (
	id              TEXT PRIMARY KEY,
	district        TEXT NOT NULL,
	street          TEXT NOT NULL DEFAULT '',
	rooms           INTEGER NOT NULL,
	area_m2         REAL NOT NULL,
	price           REAL NOT NULL,
	predicted_price REAL NOT NULL DEFAULT 0,
	image_url       TEXT NOT NULL DEFAULT '',
	source_url      TEXT NOT NULL DEFAULT '',
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS valuations (
	id              TEXT PRIMARY KEY,
	place           TEXT NOT NULL,
	district        TEXT NOT NULL,
	confidence      TEXT NOT NULL,
	rooms           INTEGER NOT NULL,
	area_m2         REAL NOT NULL,
	floor           INTEGER NOT NULL DEFAULT 0,
	build_year      INTEGER NOT NULL DEFAULT 0,
	predicted_price REAL NOT NULL,
	price_per_m2    REAL NOT NULL,
	model_version   TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_listings_district ON listings(district);
CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price);
CREATE INDEX IF NOT EXISTS idx_valuations_created_at ON valuations(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertListing(ctx context.Context, l comparable.Listing) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO listings (id, district, street, rooms, area_m2, price, predicted_price, image_url, source_url, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			district = excluded.district,
			street = excluded.street,
			rooms = excluded.rooms,
			area_m2 = excluded.area_m2,
			price = excluded.price,
			predicted_price = excluded.predicted_price,
			image_url = excluded.image_url,
			source_url = excluded.source_url,
			updated_at = excluded.updated_at`,
		l.ID, l.District, l.Street, l.Rooms, l.AreaM2, l.Price,
		l.PredictedPrice, l.ImageURL, l.SourceURL, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert listing %s", l.ID)
}

func (s *SQLiteStore) ListListings(ctx context.Context, filter ListingFilter) ([]comparable.Listing, error) {
	query := `SELECT id, district, street, rooms, area_m2, price, predicted_price, image_url, source_url
	          FROM listings WHERE 1=1`
	var args []any

	if filter.District != "" {
		query += ` AND district = ?`
		args = append(args, filter.District)
	}
	if filter.MinRooms > 0 {
		query += ` AND rooms >= ?`
		args = append(args, filter.MinRooms)
	}
	if filter.MaxRooms > 0 {
		query += ` AND rooms <= ?`
		args = append(args, filter.MaxRooms)
	}
	if filter.MaxPrice > 0 {
		query += ` AND price <= ?`
		args = append(args, filter.MaxPrice)
	}
	query += ` ORDER BY updated_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list listings")
	}
	defer rows.Close()

	var listings []comparable.Listing
	for rows.Next() {
		var l comparable.Listing
		if err := rows.Scan(&l.ID, &l.District, &l.Street, &l.Rooms, &l.AreaM2,
			&l.Price, &l.PredictedPrice, &l.ImageURL, &l.SourceURL); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan listing")
		}
		listings = append(listings, l)
	}
	return listings, eris.Wrap(rows.Err(), "sqlite: list listings iterate")
}

func (s *SQLiteStore) CreateValuation(ctx context.Context, v *Valuation) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO valuations (id, place, district, confidence, rooms, area_m2, floor, build_year, predicted_price, price_per_m2, model_version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Place, string(v.District), string(v.Confidence), v.Rooms, v.AreaM2,
		v.Floor, v.BuildYear, v.PredictedPrice, v.PricePerM2, v.ModelVersion, v.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert valuation %s", v.ID)
}

func (s *SQLiteStore) GetValuation(ctx context.Context, id string) (*Valuation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, place, district, confidence, rooms, area_m2, floor, build_year, predicted_price, price_per_m2, model_version, created_at
		 FROM valuations WHERE id = ?`, id,
	)

	var v Valuation
	err := row.Scan(&v.ID, &v.Place, &v.District, &v.Confidence, &v.Rooms, &v.AreaM2,
		&v.Floor, &v.BuildYear, &v.PredictedPrice, &v.PricePerM2, &v.ModelVersion, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("valuation not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan valuation")
	}
	return &v, nil
}

func (s *SQLiteStore) ListValuations(ctx context.Context, limit int) ([]Valuation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, place, district, confidence, rooms, area_m2, floor, build_year, predicted_price, price_per_m2, model_version, created_at
		 FROM valuations ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list valuations")
	}
	defer rows.Close()

	var valuations []Valuation
	for rows.Next() {
		var v Valuation
		if err := rows.Scan(&v.ID, &v.Place, &v.District, &v.Confidence, &v.Rooms, &v.AreaM2,
			&v.Floor, &v.BuildYear, &v.PredictedPrice, &v.PricePerM2, &v.ModelVersion, &v.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan valuation")
		}
		valuations = append(valuations, v)
	}
	return valuations, eris.Wrap(rows.Err(), "sqlite: list valuations iterate")
}

func (s *SQLiteStore) DeleteOldValuations(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM valuations WHERE created_at < ?`, cutoff,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete old valuations")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}
