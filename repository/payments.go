package repository

import (
	"context"
	"fmt"

	"trade-journal/models"
)

// CreateAssociatedPayment persists a non-trade cash movement
func (r *Repository) CreateAssociatedPayment(ctx context.Context, payment *models.AssociatedPayment) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO associated_payments (id, ticker, description, currency, amount, time)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, payment.ID, payment.Ticker, payment.Description, payment.Currency, payment.Amount, payment.Time)

	if err != nil {
		return fmt.Errorf("failed to create associated payment: %w", err)
	}
	return nil
}

// ListAssociatedPayments returns all recorded payments, most recent first
func (r *Repository) ListAssociatedPayments(ctx context.Context) ([]models.AssociatedPayment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, ticker, description, currency, amount, time
		FROM associated_payments ORDER BY time DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query associated payments: %w", err)
	}
	defer rows.Close()

	var payments []models.AssociatedPayment
	for rows.Next() {
		var p models.AssociatedPayment
		if err := rows.Scan(&p.ID, &p.Ticker, &p.Description, &p.Currency, &p.Amount, &p.Time); err != nil {
			return nil, fmt.Errorf("failed to scan associated payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
