package repository

import (
	"context"
	"fmt"

	"trade-journal/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CreateOperation records a trade leg. The row is immutable afterwards except
// for its fee, set when a fee follow-up references it as parent.
func (r *Repository) CreateOperation(ctx context.Context, op *models.Operation) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO operations (id, ticker, position_id, side, time, quantity, price, fee)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, op.ID, op.Ticker, op.PositionID, op.Side, op.Time, op.Quantity, op.Price, op.Fee)

	if err != nil {
		return fmt.Errorf("failed to create operation: %w", err)
	}
	return nil
}

// OperationByID returns an operation by its broker-assigned id, or nil
func (r *Repository) OperationByID(ctx context.Context, id string) (*models.Operation, error) {
	var op models.Operation
	err := r.db.QueryRow(ctx, `
		SELECT id, ticker, position_id, side, time, quantity, price, fee
		FROM operations WHERE id = $1
	`, id).Scan(&op.ID, &op.Ticker, &op.PositionID, &op.Side, &op.Time, &op.Quantity, &op.Price, &op.Fee)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query operation: %w", err)
	}
	return &op, nil
}

// LastOperation returns the most recently executed recorded operation, the
// synchronization watermark. Nil when the journal is empty.
func (r *Repository) LastOperation(ctx context.Context) (*models.Operation, error) {
	var op models.Operation
	err := r.db.QueryRow(ctx, `
		SELECT id, ticker, position_id, side, time, quantity, price, fee
		FROM operations ORDER BY time DESC LIMIT 1
	`).Scan(&op.ID, &op.Ticker, &op.PositionID, &op.Side, &op.Time, &op.Quantity, &op.Price, &op.Fee)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last operation: %w", err)
	}
	return &op, nil
}

// SetOperationFee overwrites the fee recorded on an operation
func (r *Repository) SetOperationFee(ctx context.Context, id string, fee decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `UPDATE operations SET fee = $2 WHERE id = $1`, id, fee)
	if err != nil {
		return fmt.Errorf("failed to set operation fee: %w", err)
	}
	return nil
}
