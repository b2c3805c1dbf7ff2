package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"trade-journal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// sqlDB is satisfied by both *sql.DB and *sql.Tx
type sqlDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore is the embedded single-file position store. Amounts are stored
// as decimal text, timestamps as unix microseconds.
type SQLiteStore struct {
	db *sql.DB
	q  sqlDB
}

// NewSQLiteStore opens (creating if necessary) the journal database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, q: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS assets (
  ticker TEXT PRIMARY KEY,
  figi TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  uid TEXT NOT NULL DEFAULT '',
  position_uid TEXT NOT NULL DEFAULT '',
  currency TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  sector TEXT NOT NULL DEFAULT '',
  short_available INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_assets_figi ON assets(figi);

CREATE TABLE IF NOT EXISTS positions (
  id TEXT PRIMARY KEY,
  ticker TEXT NOT NULL,
  side TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT '',
  open_price TEXT NOT NULL DEFAULT '0',
  closing_price TEXT NOT NULL DEFAULT '0',
  result TEXT NOT NULL DEFAULT '0',
  fee TEXT NOT NULL DEFAULT '0',
  closed INTEGER NOT NULL DEFAULT 0,
  note TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_positions_ticker_closed ON positions(ticker, closed);

CREATE TABLE IF NOT EXISTS operations (
  id TEXT PRIMARY KEY,
  ticker TEXT NOT NULL,
  position_id TEXT NOT NULL REFERENCES positions(id) ON DELETE CASCADE,
  side TEXT NOT NULL,
  time INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  price TEXT NOT NULL,
  fee TEXT NOT NULL DEFAULT '0'
);
CREATE INDEX IF NOT EXISTS idx_operations_time ON operations(time);
CREATE INDEX IF NOT EXISTS idx_operations_position ON operations(position_id);

CREATE TABLE IF NOT EXISTS associated_payments (
  id TEXT PRIMARY KEY,
  ticker TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  currency TEXT NOT NULL DEFAULT '',
  amount TEXT NOT NULL DEFAULT '0',
  time INTEGER NOT NULL
);
`)
	return err
}

// WithinTx runs fn against a transactional view and commits when fn returns nil
func (s *SQLiteStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&SQLiteStore{db: s.db, q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

// Health checks if the database is reachable
func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// AssetsPopulated reports whether the asset directory holds any records
func (s *SQLiteStore) AssetsPopulated(ctx context.Context) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM assets)`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check assets: %w", err)
	}
	return exists, nil
}

// PopulateAssets bulk-upserts asset records keyed by ticker
func (s *SQLiteStore) PopulateAssets(ctx context.Context, assets []models.Asset) error {
	for i := range assets {
		a := &assets[i]
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO assets (ticker, figi, name, uid, position_uid, currency, country, sector, short_available)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(ticker) DO UPDATE SET
				figi=excluded.figi, name=excluded.name, uid=excluded.uid,
				position_uid=excluded.position_uid, currency=excluded.currency,
				country=excluded.country, sector=excluded.sector,
				short_available=excluded.short_available
		`, a.Ticker, a.FIGI, a.Name, a.UID, a.PositionUID, a.Currency, a.Country, a.Sector, a.ShortAvailable)
		if err != nil {
			return fmt.Errorf("failed to upsert asset %s: %w", a.Ticker, err)
		}
	}
	return nil
}

// TickerForFIGI resolves a broker instrument identifier to a ticker
func (s *SQLiteStore) TickerForFIGI(ctx context.Context, figi string) (string, error) {
	var ticker string
	err := s.q.QueryRowContext(ctx, `SELECT ticker FROM assets WHERE figi = ?`, figi).Scan(&ticker)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve figi %s: %w", figi, err)
	}
	return ticker, nil
}

func (s *SQLiteStore) scanPositionRow(row *sql.Row) (*models.Position, error) {
	var p models.Position
	var createdAt, updatedAt int64
	err := row.Scan(&p.ID, &p.Ticker, &p.Side, &p.Currency, &p.OpenPrice, &p.ClosingPrice,
		&p.Result, &p.Fee, &p.Closed, &p.Note, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = time.UnixMicro(createdAt).UTC()
	p.UpdatedAt = time.UnixMicro(updatedAt).UTC()
	return &p, nil
}

// OpenPositionByTicker returns the single open position for a ticker with its
// operations loaded, or nil when every position for the ticker is closed.
func (s *SQLiteStore) OpenPositionByTicker(ctx context.Context, ticker string) (*models.Position, error) {
	p, err := s.scanPositionRow(s.q.QueryRowContext(ctx, `
		SELECT id, ticker, side, currency, open_price, closing_price, result, fee, closed, note, created_at, updated_at
		FROM positions WHERE ticker = ? AND closed = 0
	`, ticker))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query open position for %s: %w", ticker, err)
	}

	if err := s.loadOperations(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// PositionByID returns a position with its operations loaded, or nil
func (s *SQLiteStore) PositionByID(ctx context.Context, id uuid.UUID) (*models.Position, error) {
	p, err := s.scanPositionRow(s.q.QueryRowContext(ctx, `
		SELECT id, ticker, side, currency, open_price, closing_price, result, fee, closed, note, created_at, updated_at
		FROM positions WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query position: %w", err)
	}

	if err := s.loadOperations(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPositions returns positions matching the filter
func (s *SQLiteStore) ListPositions(ctx context.Context, filter PositionFilter) ([]models.Position, error) {
	query := `SELECT id, ticker, side, currency, open_price, closing_price, result, fee, closed, note, created_at, updated_at FROM positions`
	var args []any
	var where []string

	if filter.Ticker != "" {
		where = append(where, "ticker = ?")
		args = append(args, filter.Ticker)
	}
	if filter.Side != "" {
		where = append(where, "side = ?")
		args = append(args, filter.Side)
	}
	switch filter.Status {
	case "win":
		where = append(where, "closed = 1 AND CAST(result AS REAL) > 0")
	case "loss":
		where = append(where, "closed = 1 AND CAST(result AS REAL) <= 0")
	}
	if !filter.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.From.UnixMicro())
	}
	if !filter.To.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, filter.To.UnixMicro())
	}

	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	col := filter.SortColumn()
	switch col {
	case "open_price", "closing_price", "result", "fee":
		// decimals are stored as text; compare numerically
		col = "CAST(" + col + " AS REAL)"
	}
	query += " ORDER BY " + col
	if filter.SortDesc {
		query += " DESC"
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []models.Position
	for rows.Next() {
		var p models.Position
		var createdAt, updatedAt int64
		err := rows.Scan(&p.ID, &p.Ticker, &p.Side, &p.Currency, &p.OpenPrice, &p.ClosingPrice,
			&p.Result, &p.Fee, &p.Closed, &p.Note, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		p.CreatedAt = time.UnixMicro(createdAt).UTC()
		p.UpdatedAt = time.UnixMicro(updatedAt).UTC()
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate positions: %w", err)
	}

	if filter.WithOperations {
		for i := range positions {
			if err := s.loadOperations(ctx, &positions[i]); err != nil {
				return nil, err
			}
		}
	}

	return positions, nil
}

// CreatePosition creates a new position row
func (s *SQLiteStore) CreatePosition(ctx context.Context, pos *models.Position) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO positions (id, ticker, side, currency, open_price, closing_price, result, fee, closed, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, pos.ID, pos.Ticker, pos.Side, pos.Currency, pos.OpenPrice, pos.ClosingPrice,
		pos.Result, pos.Fee, pos.Closed, pos.Note, pos.CreatedAt.UnixMicro(), pos.UpdatedAt.UnixMicro())

	if err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}
	return nil
}

// UpdatePosition updates an existing position's accounting fields
func (s *SQLiteStore) UpdatePosition(ctx context.Context, pos *models.Position) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE positions
		SET open_price = ?, closing_price = ?, result = ?, fee = ?, closed = ?, updated_at = ?
		WHERE id = ?
	`, pos.OpenPrice, pos.ClosingPrice, pos.Result, pos.Fee, pos.Closed, time.Now().UnixMicro(), pos.ID)

	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}
	return nil
}

// UpdatePositionNote sets the free-text note of a position
func (s *SQLiteStore) UpdatePositionNote(ctx context.Context, id uuid.UUID, note string) error {
	_, err := s.q.ExecContext(ctx, `UPDATE positions SET note = ?, updated_at = ? WHERE id = ?`,
		note, time.Now().UnixMicro(), id)
	if err != nil {
		return fmt.Errorf("failed to update position note: %w", err)
	}
	return nil
}

// CreateOperation records a trade leg
func (s *SQLiteStore) CreateOperation(ctx context.Context, op *models.Operation) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO operations (id, ticker, position_id, side, time, quantity, price, fee)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, op.ID, op.Ticker, op.PositionID, op.Side, op.Time.UnixMicro(), op.Quantity, op.Price, op.Fee)

	if err != nil {
		return fmt.Errorf("failed to create operation: %w", err)
	}
	return nil
}

func scanOperation(row *sql.Row) (*models.Operation, error) {
	var op models.Operation
	var ts int64
	err := row.Scan(&op.ID, &op.Ticker, &op.PositionID, &op.Side, &ts, &op.Quantity, &op.Price, &op.Fee)
	if err != nil {
		return nil, err
	}
	op.Time = time.UnixMicro(ts).UTC()
	return &op, nil
}

// OperationByID returns an operation by its broker-assigned id, or nil
func (s *SQLiteStore) OperationByID(ctx context.Context, id string) (*models.Operation, error) {
	op, err := scanOperation(s.q.QueryRowContext(ctx, `
		SELECT id, ticker, position_id, side, time, quantity, price, fee
		FROM operations WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query operation: %w", err)
	}
	return op, nil
}

// LastOperation returns the most recently executed recorded operation, or nil
func (s *SQLiteStore) LastOperation(ctx context.Context) (*models.Operation, error) {
	op, err := scanOperation(s.q.QueryRowContext(ctx, `
		SELECT id, ticker, position_id, side, time, quantity, price, fee
		FROM operations ORDER BY time DESC LIMIT 1
	`))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last operation: %w", err)
	}
	return op, nil
}

// SetOperationFee overwrites the fee recorded on an operation
func (s *SQLiteStore) SetOperationFee(ctx context.Context, id string, fee decimal.Decimal) error {
	_, err := s.q.ExecContext(ctx, `UPDATE operations SET fee = ? WHERE id = ?`, fee, id)
	if err != nil {
		return fmt.Errorf("failed to set operation fee: %w", err)
	}
	return nil
}

// CreateAssociatedPayment persists a non-trade cash movement
func (s *SQLiteStore) CreateAssociatedPayment(ctx context.Context, payment *models.AssociatedPayment) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO associated_payments (id, ticker, description, currency, amount, time)
		VALUES (?, ?, ?, ?, ?, ?)
	`, payment.ID, payment.Ticker, payment.Description, payment.Currency, payment.Amount, payment.Time.UnixMicro())

	if err != nil {
		return fmt.Errorf("failed to create associated payment: %w", err)
	}
	return nil
}

// ListAssociatedPayments returns all recorded payments, most recent first
func (s *SQLiteStore) ListAssociatedPayments(ctx context.Context) ([]models.AssociatedPayment, error) {
	rows, err := s.q.QueryContext(ctx, `
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
		var ts int64
		if err := rows.Scan(&p.ID, &p.Ticker, &p.Description, &p.Currency, &p.Amount, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan associated payment: %w", err)
		}
		p.Time = time.UnixMicro(ts).UTC()
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *SQLiteStore) loadOperations(ctx context.Context, p *models.Position) error {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, ticker, position_id, side, time, quantity, price, fee
		FROM operations WHERE position_id = ?
		ORDER BY time
	`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	p.Operations = nil
	for rows.Next() {
		var op models.Operation
		var ts int64
		err := rows.Scan(&op.ID, &op.Ticker, &op.PositionID, &op.Side, &ts, &op.Quantity, &op.Price, &op.Fee)
		if err != nil {
			return fmt.Errorf("failed to scan operation: %w", err)
		}
		op.Time = time.UnixMicro(ts).UTC()
		p.Operations = append(p.Operations, op)
	}
	return rows.Err()
}
