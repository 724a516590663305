// Package mysql implements the optional relational sink for the assembled
// dataset. Each run replaces the previous snapshot wholesale inside a single
// transaction so readers never observe a half-written refresh.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"yad2_listings/internal/domain"
)

const insertBatchSize = 500

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// EnsureSchema creates the listings table when it does not exist yet.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createListingsSQL)
	return err
}

// WriteDataset replaces the listings table content with rows.
func (r *Repo) WriteDataset(ctx context.Context, rows []domain.EnrichedListing) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mysql: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM listings`); err != nil {
		return fmt.Errorf("mysql: clear listings: %w", err)
	}
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := insertBatch(ctx, tx, rows[start:end]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mysql: commit: %w", err)
	}
	return nil
}

// CountListings reports the number of stored rows, split by deal type.
func (r *Repo) CountListings(ctx context.Context) (sale, rent int, err error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(for_sale), 0), COALESCE(SUM(1 - for_sale), 0) FROM listings`)
	if err := row.Scan(&sale, &rent); err != nil {
		return 0, 0, fmt.Errorf("mysql: count listings: %w", err)
	}
	return sale, rent, nil
}

func insertBatch(ctx context.Context, tx *sql.Tx, rows []domain.EnrichedListing) error {
	b := sq.Insert("listings").Columns(
		"date_listed", "hebrew_city", "english_city", "city_population",
		"neighborhood", "street", "lat", "lon",
		"`floor`", "rooms", "area", "price", "for_sale",
		"distance_from_beach", "property_type", "link",
	)
	for _, l := range rows {
		var lat, lon any
		if l.Coordinates != nil {
			lat, lon = l.Coordinates.Latitude, l.Coordinates.Longitude
		}
		b = b.Values(
			l.DateListed,
			l.HebrewCity,
			l.EnglishCity,
			l.CityPopulation,
			valStr(l.Neighborhood),
			valStr(l.Street),
			lat, lon,
			l.Floor,
			l.Rooms,
			l.Area,
			l.Price,
			l.ForSale,
			valInt(l.DistanceFromBeach),
			l.PropertyType,
			l.Link,
		)
	}
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("mysql: build insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("mysql: insert batch: %w", err)
	}
	return nil
}
