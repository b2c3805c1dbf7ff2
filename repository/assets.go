package repository

import (
	"context"
	"fmt"

	"trade-journal/models"

	"github.com/jackc/pgx/v5"
)

// AssetsPopulated reports whether the asset directory holds any records
func (r *Repository) AssetsPopulated(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM assets)`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check assets: %w", err)
	}
	return exists, nil
}

// PopulateAssets bulk-upserts asset records keyed by ticker. Re-populating
// with the same directory is a no-op apart from refreshed attributes.
func (r *Repository) PopulateAssets(ctx context.Context, assets []models.Asset) error {
	for i := range assets {
		a := &assets[i]
		_, err := r.db.Exec(ctx, `
			INSERT INTO assets (ticker, figi, name, uid, position_uid, currency, country, sector, short_available)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (ticker) DO UPDATE SET
				figi = EXCLUDED.figi,
				name = EXCLUDED.name,
				uid = EXCLUDED.uid,
				position_uid = EXCLUDED.position_uid,
				currency = EXCLUDED.currency,
				country = EXCLUDED.country,
				sector = EXCLUDED.sector,
				short_available = EXCLUDED.short_available
		`, a.Ticker, a.FIGI, a.Name, a.UID, a.PositionUID, a.Currency, a.Country, a.Sector, a.ShortAvailable)
		if err != nil {
			return fmt.Errorf("failed to upsert asset %s: %w", a.Ticker, err)
		}
	}
	return nil
}

// TickerForFIGI resolves a broker instrument identifier to a ticker.
// Returns the empty string when the directory has no such instrument.
func (r *Repository) TickerForFIGI(ctx context.Context, figi string) (string, error) {
	var ticker string
	err := r.db.QueryRow(ctx, `SELECT ticker FROM assets WHERE figi = $1`, figi).Scan(&ticker)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve figi %s: %w", figi, err)
	}
	return ticker, nil
}
