package repository

import (
	"context"
	"fmt"
	"strconv"

	"trade-journal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const positionColumns = `id, ticker, side, currency, open_price, closing_price, result, fee, closed, note, created_at, updated_at`

func scanPosition(row pgx.Row) (*models.Position, error) {
	var p models.Position
	err := row.Scan(&p.ID, &p.Ticker, &p.Side, &p.Currency, &p.OpenPrice, &p.ClosingPrice,
		&p.Result, &p.Fee, &p.Closed, &p.Note, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// OpenPositionByTicker returns the single open position for a ticker with its
// operations loaded, or nil when every position for the ticker is closed.
func (r *Repository) OpenPositionByTicker(ctx context.Context, ticker string) (*models.Position, error) {
	p, err := scanPosition(r.db.QueryRow(ctx, `
		SELECT `+positionColumns+`
		FROM positions WHERE ticker = $1 AND closed = FALSE
	`, ticker))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query open position for %s: %w", ticker, err)
	}

	if err := r.loadOperations(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// PositionByID returns a position with its operations loaded, or nil
func (r *Repository) PositionByID(ctx context.Context, id uuid.UUID) (*models.Position, error) {
	p, err := scanPosition(r.db.QueryRow(ctx, `
		SELECT `+positionColumns+` FROM positions WHERE id = $1
	`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query position: %w", err)
	}

	if err := r.loadOperations(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPositions returns positions matching the filter, ordered per its sort
// settings.
func (r *Repository) ListPositions(ctx context.Context, filter PositionFilter) ([]models.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions`
	var args []any
	var where []string

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Ticker != "" {
		where = append(where, "ticker = "+arg(filter.Ticker))
	}
	if filter.Side != "" {
		where = append(where, "side = "+arg(filter.Side))
	}
	switch filter.Status {
	case "win":
		where = append(where, "closed = TRUE AND result > 0")
	case "loss":
		where = append(where, "closed = TRUE AND result <= 0")
	}
	if !filter.From.IsZero() {
		where = append(where, "created_at >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "created_at <= "+arg(filter.To))
	}

	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}

	query += " ORDER BY " + filter.SortColumn()
	if filter.SortDesc {
		query += " DESC"
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []models.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate positions: %w", err)
	}

	if filter.WithOperations {
		for i := range positions {
			if err := r.loadOperations(ctx, &positions[i]); err != nil {
				return nil, err
			}
		}
	}

	return positions, nil
}

// CreatePosition creates a new position row. Its operations are written
// separately via CreateOperation.
func (r *Repository) CreatePosition(ctx context.Context, pos *models.Position) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO positions (`+positionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, pos.ID, pos.Ticker, pos.Side, pos.Currency, pos.OpenPrice, pos.ClosingPrice,
		pos.Result, pos.Fee, pos.Closed, pos.Note, pos.CreatedAt, pos.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}
	return nil
}

// UpdatePosition updates an existing position's accounting fields
func (r *Repository) UpdatePosition(ctx context.Context, pos *models.Position) error {
	_, err := r.db.Exec(ctx, `
		UPDATE positions
		SET open_price = $2, closing_price = $3, result = $4, fee = $5, closed = $6, updated_at = NOW()
		WHERE id = $1
	`, pos.ID, pos.OpenPrice, pos.ClosingPrice, pos.Result, pos.Fee, pos.Closed)

	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}
	return nil
}

// UpdatePositionNote sets the free-text note of a position
func (r *Repository) UpdatePositionNote(ctx context.Context, id uuid.UUID, note string) error {
	_, err := r.db.Exec(ctx, `UPDATE positions SET note = $2, updated_at = NOW() WHERE id = $1`, id, note)
	if err != nil {
		return fmt.Errorf("failed to update position note: %w", err)
	}
	return nil
}

func (r *Repository) loadOperations(ctx context.Context, p *models.Position) error {
	rows, err := r.db.Query(ctx, `
		SELECT id, ticker, position_id, side, time, quantity, price, fee
		FROM operations WHERE position_id = $1
		ORDER BY time
	`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	p.Operations = nil
	for rows.Next() {
		var op models.Operation
		err := rows.Scan(&op.ID, &op.Ticker, &op.PositionID, &op.Side, &op.Time, &op.Quantity, &op.Price, &op.Fee)
		if err != nil {
			return fmt.Errorf("failed to scan operation: %w", err)
		}
		p.Operations = append(p.Operations, op)
	}
	return rows.Err()
}
