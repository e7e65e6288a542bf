package asset

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the field_assets table. Execute it via
// [PostgresSource.Migrate] or apply it during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS field_assets (
    name        TEXT PRIMARY KEY,
    kind        TEXT NOT NULL DEFAULT '',
    well_group  TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_field_assets_group ON field_assets(well_group);
`

// DB is the database interface used by [PostgresSource]. Both *pgxpool.Pool
// and *pgx.Conn satisfy it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSource is a [Source] backed by the field_assets table.
type PostgresSource struct {
	db DB
}

var (
	_ Source = (*PostgresSource)(nil)
	_ Lister = (*PostgresSource)(nil)
)

// NewPostgresSource returns a source querying db. Call
// [PostgresSource.Migrate] before first use on a fresh database.
func NewPostgresSource(db DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// Migrate executes [Schema].
func (s *PostgresSource) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("asset: migrate: %w", err)
	}
	return nil
}

// Exists implements [Source].
func (s *PostgresSource) Exists(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM field_assets WHERE name = $1)`,
		Normalize(name),
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("asset: postgres exists %q: %w: %w", name, ErrUnavailable, err)
	}
	return ok, nil
}

// Names implements [Lister].
func (s *PostgresSource) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT name FROM field_assets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("asset: postgres names: %w: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("asset: postgres scan name: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("asset: postgres names: %w: %w", ErrUnavailable, err)
	}
	return out, nil
}

// Get returns one asset or [ErrNotFound].
func (s *PostgresSource) Get(ctx context.Context, name string) (Asset, error) {
	var a Asset
	var kind string
	err := s.db.QueryRow(ctx,
		`SELECT name, kind, well_group FROM field_assets WHERE name = $1`,
		Normalize(name),
	).Scan(&a.Name, &kind, &a.Group)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, ErrNotFound
		}
		return Asset{}, fmt.Errorf("asset: postgres get %q: %w", name, err)
	}
	a.Kind = Kind(kind)
	return a, nil
}

// Upsert inserts an asset or updates its kind and group.
func (s *PostgresSource) Upsert(ctx context.Context, a Asset) error {
	if err := a.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO field_assets (name, kind, well_group)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE
		 SET kind = EXCLUDED.kind, well_group = EXCLUDED.well_group, updated_at = now()`,
		Normalize(a.Name), string(a.Kind), a.Group,
	)
	if err != nil {
		return fmt.Errorf("asset: postgres upsert %q: %w", a.Name, err)
	}
	return nil
}

// Ping implements [Pinger].
func (s *PostgresSource) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("asset: postgres ping: %w: %w", ErrUnavailable, err)
	}
	return nil
}
