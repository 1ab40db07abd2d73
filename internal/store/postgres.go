package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/vilniusrent/valuation-cli/internal/comparable"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS listings (
	id              TEXT PRIMARY KEY,
	district        TEXT NOT NULL,
	street          TEXT NOT NULL DEFAULT '',
	rooms           INTEGER NOT NULL,
	area_m2         DOUBLE PRECISION NOT NULL,
	price           DOUBLE PRECISION NOT NULL,
	predicted_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	image_url       TEXT NOT NULL DEFAULT '',
	source_url      TEXT NOT NULL DEFAULT '',
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS valuations (
	id              TEXT PRIMARY KEY,
	place           TEXT NOT NULL,
	district        TEXT NOT NULL,
	confidence      TEXT NOT NULL,
	rooms           INTEGER NOT NULL,
	area_m2         DOUBLE PRECISION NOT NULL,
	floor           INTEGER NOT NULL DEFAULT 0,
	build_year      INTEGER NOT NULL DEFAULT 0,
	predicted_price DOUBLE PRECISION NOT NULL,
	price_per_m2    DOUBLE PRECISION NOT NULL,
	model_version   TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_listings_district ON listings(district);
CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price);
CREATE INDEX IF NOT EXISTS idx_valuations_created_at ON valuations(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertListing(ctx context.Context, l comparable.Listing) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO listings (id, district, street, rooms, area_m2, price, predicted_price, image_url, source_url, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
			district = EXCLUDED.district,
			street = EXCLUDED.street,
			rooms = EXCLUDED.rooms,
			area_m2 = EXCLUDED.area_m2,
			price = EXCLUDED.price,
			predicted_price = EXCLUDED.predicted_price,
			image_url = EXCLUDED.image_url,
			source_url = EXCLUDED.source_url,
			updated_at = EXCLUDED.updated_at`,
		l.ID, l.District, l.Street, l.Rooms, l.AreaM2, l.Price,
		l.PredictedPrice, l.ImageURL, l.SourceURL, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert listing %s", l.ID)
}

func (s *PostgresStore) ListListings(ctx context.Context, filter ListingFilter) ([]comparable.Listing, error) {
	query := `SELECT id, district, street, rooms, area_m2, price, predicted_price, image_url, source_url
	          FROM listings WHERE true`
	args := []any{}
	argIdx := 1

	if filter.District != "" {
		query += fmt.Sprintf(` AND district = $%d`, argIdx)
		args = append(args, filter.District)
		argIdx++
	}
	if filter.MinRooms > 0 {
		query += fmt.Sprintf(` AND rooms >= $%d`, argIdx)
		args = append(args, filter.MinRooms)
		argIdx++
	}
	if filter.MaxRooms > 0 {
		query += fmt.Sprintf(` AND rooms <= $%d`, argIdx)
		args = append(args, filter.MaxRooms)
		argIdx++
	}
	if filter.MaxPrice > 0 {
		query += fmt.Sprintf(` AND price <= $%d`, argIdx)
		args = append(args, filter.MaxPrice)
		argIdx++
	}
	query += ` ORDER BY updated_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list listings")
	}
	defer rows.Close()

	var listings []comparable.Listing
	for rows.Next() {
		var l comparable.Listing
		if err := rows.Scan(&l.ID, &l.District, &l.Street, &l.Rooms, &l.AreaM2,
			&l.Price, &l.PredictedPrice, &l.ImageURL, &l.SourceURL); err != nil {
			return nil, eris.Wrap(err, "postgres: scan listing")
		}
		listings = append(listings, l)
	}
	return listings, eris.Wrap(rows.Err(), "postgres: list listings iterate")
}

func (s *PostgresStore) CreateValuation(ctx context.Context, v *Valuation) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO valuations (id, place, district, confidence, rooms, area_m2, floor, build_year, predicted_price, price_per_m2, model_version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		v.ID, v.Place, string(v.District), string(v.Confidence), v.Rooms, v.AreaM2,
		v.Floor, v.BuildYear, v.PredictedPrice, v.PricePerM2, v.ModelVersion, v.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert valuation %s", v.ID)
}

func (s *PostgresStore) GetValuation(ctx context.Context, id string) (*Valuation, error) {
	var v Valuation
	err := s.pool.QueryRow(ctx,
		`SELECT id, place, district, confidence, rooms, area_m2, floor, build_year, predicted_price, price_per_m2, model_version, created_at
		 FROM valuations WHERE id = $1`, id,
	).Scan(&v.ID, &v.Place, &v.District, &v.Confidence, &v.Rooms, &v.AreaM2,
		&v.Floor, &v.BuildYear, &v.PredictedPrice, &v.PricePerM2, &v.ModelVersion, &v.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get valuation %s", id)
	}
	return &v, nil
}

func (s *PostgresStore) ListValuations(ctx context.Context, limit int) ([]Valuation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, place, district, confidence, rooms, area_m2, floor, build_year, predicted_price, price_per_m2, model_version, created_at
		 FROM valuations ORDER BY created_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list valuations")
	}
	defer rows.Close()

	var valuations []Valuation
	for rows.Next() {
		var v Valuation
		if err := rows.Scan(&v.ID, &v.Place, &v.District, &v.Confidence, &v.Rooms, &v.AreaM2,
			&v.Floor, &v.BuildYear, &v.PredictedPrice, &v.PricePerM2, &v.ModelVersion, &v.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan valuation")
		}
		valuations = append(valuations, v)
	}
	return valuations, eris.Wrap(rows.Err(), "postgres: list valuations iterate")
}

func (s *PostgresStore) DeleteOldValuations(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM valuations WHERE created_at < $1`, cutoff,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete old valuations")
	}
	return int(tag.RowsAffected()), nil
}
