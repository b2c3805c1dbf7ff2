package repository

import (
	"context"
	"time"

	"trade-journal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is the position store consumed by the synchronization driver and the
// API layer. Two implementations exist: Repository (Postgres via pgx) and
// SQLiteStore (embedded single-file store).
type Store interface {
	// Health and lifecycle
	Close()
	Health(ctx context.Context) error

	// WithinTx runs fn against a transactional view of the store and commits
	// when fn returns nil. A synchronization pass is one WithinTx call, so the
	// store is either fully caught up or unchanged.
	WithinTx(ctx context.Context, fn func(Store) error) error

	// Asset directory
	AssetsPopulated(ctx context.Context) (bool, error)
	PopulateAssets(ctx context.Context, assets []models.Asset) error
	TickerForFIGI(ctx context.Context, figi string) (string, error)

	// Positions
	OpenPositionByTicker(ctx context.Context, ticker string) (*models.Position, error)
	PositionByID(ctx context.Context, id uuid.UUID) (*models.Position, error)
	ListPositions(ctx context.Context, filter PositionFilter) ([]models.Position, error)
	CreatePosition(ctx context.Context, pos *models.Position) error
	UpdatePosition(ctx context.Context, pos *models.Position) error
	UpdatePositionNote(ctx context.Context, id uuid.UUID, note string) error

	// Operations
	CreateOperation(ctx context.Context, op *models.Operation) error
	OperationByID(ctx context.Context, id string) (*models.Operation, error)
	LastOperation(ctx context.Context) (*models.Operation, error)
	SetOperationFee(ctx context.Context, id string, fee decimal.Decimal) error

	// Associated payments
	CreateAssociatedPayment(ctx context.Context, payment *models.AssociatedPayment) error
	ListAssociatedPayments(ctx context.Context) ([]models.AssociatedPayment, error)
}

// PositionFilter narrows and orders ListPositions results. Zero values mean
// "no constraint".
type PositionFilter struct {
	Ticker         string
	Side           models.Side
	Status         string // "win" or "loss", closed positions only
	From           time.Time
	To             time.Time
	SortField      string // one of the positionSortColumns keys
	SortDesc       bool
	WithOperations bool
}

// positionSortColumns maps API sort field names to their backing columns.
// A declarative table, so unknown names simply fall back to created_at.
var positionSortColumns = map[string]string{
	"ticker":        "ticker",
	"side":          "side",
	"open_price":    "open_price",
	"closing_price": "closing_price",
	"result":        "result",
	"fee":           "fee",
	"open_date":     "created_at",
	"created_at":    "created_at",
}

// SortColumn resolves the filter's sort field to a column name.
func (f PositionFilter) SortColumn() string {
	if col, ok := positionSortColumns[f.SortField]; ok {
		return col
	}
	return "created_at"
}

// Compile-time interface verification
var (
	_ Store = (*Repository)(nil)
	_ Store = (*SQLiteStore)(nil)
)
