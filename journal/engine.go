package journal

import (
	"context"
	"fmt"

	"trade-journal/models"
	"trade-journal/observability"
	"trade-journal/repository"
	"trade-journal/services"
)

// Engine persists classified trade legs against the position store. It finds
// or creates the single open position for a ticker, applies the leg's
// weighted-price accounting and writes the result back.
type Engine struct {
	metrics *observability.Metrics
}

// NewEngine creates an accounting engine.
func NewEngine(metrics *observability.Metrics) *Engine {
	if metrics == nil {
		metrics = observability.GetMetrics()
	}
	return &Engine{metrics: metrics}
}

// RecordTrade applies one executed Buy/Sell operation to the ticker's open
// position, creating the position when none exists.
func (e *Engine) RecordTrade(ctx context.Context, store repository.Store, ticker string, raw services.BrokerOperation, category Category) error {
	side := category.Side()
	pos, err := store.OpenPositionByTicker(ctx, ticker)
	if err != nil {
		return fmt.Errorf("failed to look up open position for %s: %w", ticker, err)
	}

	created := false
	if pos == nil {
		pos = models.NewPosition(ticker, side, raw.Currency)
		created = true
	}

	op := models.Operation{
		ID:       raw.ID,
		Ticker:   ticker,
		Side:     side,
		Time:     raw.Date,
		Quantity: raw.Quantity,
		Price:    raw.Price.Amount(),
	}

	wasClosed := pos.Closed
	pos.Apply(op, raw.Payment.Amount())

	// The position row has to exist before its operations can reference it.
	if created {
		if err := store.CreatePosition(ctx, pos); err != nil {
			return fmt.Errorf("failed to create position for %s: %w", ticker, err)
		}
	}

	recorded := pos.Operations[len(pos.Operations)-1]
	if err := store.CreateOperation(ctx, &recorded); err != nil {
		return fmt.Errorf("failed to record operation %s: %w", raw.ID, err)
	}

	if !created {
		if err := store.UpdatePosition(ctx, pos); err != nil {
			return fmt.Errorf("failed to update position for %s: %w", ticker, err)
		}
	}

	e.metrics.RecordOperationRecorded(category.String())
	if pos.Closed && !wasClosed {
		e.metrics.RecordPositionClosed()
		observability.WithTicker(ticker).Info("position closed",
			"position_id", pos.ID,
			"result", pos.Result,
			"resulting_percentage", pos.ResultingPercentage(),
		)
	}

	return nil
}

// AttachFee routes a broker fee operation to its parent trade leg. The parent
// operation's fee is overwritten with the normalized amount while the owning
// position's total moves by the delta against the parent's stored fee, so a
// fee event re-fetched on an overlapping resume is a no-op. A fee whose
// parent was never recorded (its leg fell outside every fetched window) is
// dropped with a warning.
func (e *Engine) AttachFee(ctx context.Context, store repository.Store, raw services.BrokerOperation) error {
	parent, err := store.OperationByID(ctx, raw.ParentOperationID)
	if err != nil {
		return fmt.Errorf("failed to look up fee parent %s: %w", raw.ParentOperationID, err)
	}
	if parent == nil {
		observability.Warn("dropping fee with unknown parent operation",
			"operation_id", raw.ID,
			"parent_operation_id", raw.ParentOperationID,
		)
		e.metrics.RecordOperationSkipped("orphan_fee")
		return nil
	}

	fee := raw.Payment.Amount()
	delta := fee.Sub(parent.Fee)
	if err := store.SetOperationFee(ctx, parent.ID, fee); err != nil {
		return fmt.Errorf("failed to set fee on operation %s: %w", parent.ID, err)
	}

	pos, err := store.PositionByID(ctx, parent.PositionID)
	if err != nil {
		return fmt.Errorf("failed to look up position %s: %w", parent.PositionID, err)
	}
	if pos == nil {
		return fmt.Errorf("operation %s references missing position %s", parent.ID, parent.PositionID)
	}

	pos.Fee = pos.Fee.Add(delta).Round(2)
	if err := store.UpdatePosition(ctx, pos); err != nil {
		return fmt.Errorf("failed to update position fee for %s: %w", pos.Ticker, err)
	}

	e.metrics.RecordOperationRecorded("fee")
	return nil
}

// RecordPayment persists a non-trade cash movement as an associated payment.
// The ticker may be empty when the operation carries no resolvable instrument.
func (e *Engine) RecordPayment(ctx context.Context, store repository.Store, ticker string, raw services.BrokerOperation) error {
	payment := models.NewAssociatedPayment(ticker, raw.Description, raw.Currency, raw.Payment.Amount(), raw.Date)
	if err := store.CreateAssociatedPayment(ctx, payment); err != nil {
		return fmt.Errorf("failed to record associated payment %s: %w", raw.ID, err)
	}

	e.metrics.RecordOperationRecorded("payment")
	return nil
}
