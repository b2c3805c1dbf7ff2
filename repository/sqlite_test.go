package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"trade-journal/models"

	"github.com/shopspring/decimal"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestPopulateAssetsUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	populated, err := store.AssetsPopulated(ctx)
	if err != nil {
		t.Fatalf("AssetsPopulated() error = %v", err)
	}
	if populated {
		t.Fatal("expected empty store to report no assets")
	}

	assets := []models.Asset{
		{Ticker: "AAPL", FIGI: "BBG000B9XRY4", Name: "Apple", Currency: "usd"},
		{Ticker: "GAZP", FIGI: "BBG004730RP0", Name: "Gazprom", Currency: "rub"},
	}
	if err := store.PopulateAssets(ctx, assets); err != nil {
		t.Fatalf("PopulateAssets() error = %v", err)
	}

	// re-populating with changed attributes must update, not fail or duplicate
	assets[0].Name = "Apple Inc."
	if err := store.PopulateAssets(ctx, assets); err != nil {
		t.Fatalf("PopulateAssets() second pass error = %v", err)
	}

	ticker, err := store.TickerForFIGI(ctx, "BBG000B9XRY4")
	if err != nil {
		t.Fatalf("TickerForFIGI() error = %v", err)
	}
	if ticker != "AAPL" {
		t.Errorf("TickerForFIGI() = %q, want AAPL", ticker)
	}

	ticker, err = store.TickerForFIGI(ctx, "BBG_UNKNOWN")
	if err != nil {
		t.Fatalf("TickerForFIGI() unknown figi error = %v", err)
	}
	if ticker != "" {
		t.Errorf("TickerForFIGI() unknown figi = %q, want empty", ticker)
	}
}

func TestOpenPositionByTicker(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	got, err := store.OpenPositionByTicker(ctx, "AAPL")
	if err != nil {
		t.Fatalf("OpenPositionByTicker() error = %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for ticker with no positions")
	}

	closed := models.NewPosition("AAPL", models.SideBuy, "usd")
	closed.Closed = true
	if err := store.CreatePosition(ctx, closed); err != nil {
		t.Fatalf("CreatePosition() error = %v", err)
	}

	open := models.NewPosition("AAPL", models.SideBuy, "usd")
	open.OpenPrice = decimal.NewFromInt(100)
	if err := store.CreatePosition(ctx, open); err != nil {
		t.Fatalf("CreatePosition() error = %v", err)
	}

	op := &models.Operation{
		ID:         "op-1",
		Ticker:     "AAPL",
		PositionID: open.ID,
		Side:       models.SideBuy,
		Time:       time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Quantity:   10,
		Price:      decimal.NewFromInt(100),
		Fee:        decimal.Zero,
	}
	if err := store.CreateOperation(ctx, op); err != nil {
		t.Fatalf("CreateOperation() error = %v", err)
	}

	got, err = store.OpenPositionByTicker(ctx, "AAPL")
	if err != nil {
		t.Fatalf("OpenPositionByTicker() error = %v", err)
	}
	if got == nil {
		t.Fatal("expected the open position, got nil")
	}
	if got.ID != open.ID {
		t.Errorf("got position %s, want %s", got.ID, open.ID)
	}
	if !got.OpenPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("OpenPrice = %s, want 100", got.OpenPrice)
	}
	if len(got.Operations) != 1 || got.Operations[0].ID != "op-1" {
		t.Errorf("expected operation op-1 loaded, got %+v", got.Operations)
	}
	if !got.Operations[0].Time.Equal(op.Time) {
		t.Errorf("operation time = %v, want %v", got.Operations[0].Time, op.Time)
	}
}

func TestLastOperationWatermark(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	last, err := store.LastOperation(ctx)
	if err != nil {
		t.Fatalf("LastOperation() error = %v", err)
	}
	if last != nil {
		t.Fatal("expected nil watermark on an empty store")
	}

	pos := models.NewPosition("SBER", models.SideBuy, "rub")
	if err := store.CreatePosition(ctx, pos); err != nil {
		t.Fatalf("CreatePosition() error = %v", err)
	}

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"op-a", "op-b", "op-c"} {
		op := &models.Operation{
			ID:         id,
			Ticker:     "SBER",
			PositionID: pos.ID,
			Side:       models.SideBuy,
			Time:       base.Add(time.Duration(i) * time.Hour),
			Quantity:   1,
			Price:      decimal.NewFromInt(250),
		}
		if err := store.CreateOperation(ctx, op); err != nil {
			t.Fatalf("CreateOperation(%s) error = %v", id, err)
		}
	}

	last, err = store.LastOperation(ctx)
	if err != nil {
		t.Fatalf("LastOperation() error = %v", err)
	}
	if last == nil || last.ID != "op-c" {
		t.Fatalf("LastOperation() = %+v, want op-c", last)
	}
}

func TestSetOperationFeeOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pos := models.NewPosition("AAPL", models.SideBuy, "usd")
	if err := store.CreatePosition(ctx, pos); err != nil {
		t.Fatalf("CreatePosition() error = %v", err)
	}
	op := &models.Operation{
		ID:         "op-fee",
		Ticker:     "AAPL",
		PositionID: pos.ID,
		Side:       models.SideBuy,
		Time:       time.Now().UTC(),
		Quantity:   1,
		Price:      decimal.NewFromInt(10),
		Fee:        decimal.RequireFromString("0.10"),
	}
	if err := store.CreateOperation(ctx, op); err != nil {
		t.Fatalf("CreateOperation() error = %v", err)
	}

	if err := store.SetOperationFee(ctx, "op-fee", decimal.RequireFromString("0.25")); err != nil {
		t.Fatalf("SetOperationFee() error = %v", err)
	}

	got, err := store.OperationByID(ctx, "op-fee")
	if err != nil {
		t.Fatalf("OperationByID() error = %v", err)
	}
	if got == nil {
		t.Fatal("expected operation, got nil")
	}
	if !got.Fee.Equal(decimal.RequireFromString("0.25")) {
		t.Errorf("Fee = %s, want 0.25", got.Fee)
	}

	missing, err := store.OperationByID(ctx, "no-such-op")
	if err != nil {
		t.Fatalf("OperationByID() missing error = %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown operation, got %+v", missing)
	}
}

func TestListPositionsFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mk := func(ticker string, side models.Side, closed bool, result string) *models.Position {
		p := models.NewPosition(ticker, side, "usd")
		p.Closed = closed
		p.Result = decimal.RequireFromString(result)
		if err := store.CreatePosition(ctx, p); err != nil {
			t.Fatalf("CreatePosition(%s) error = %v", ticker, err)
		}
		return p
	}

	mk("AAPL", models.SideBuy, true, "150.00")
	mk("AAPL", models.SideBuy, true, "-40.00")
	mk("TSLA", models.SideSell, false, "0")

	wins, err := store.ListPositions(ctx, PositionFilter{Status: "win"})
	if err != nil {
		t.Fatalf("ListPositions(win) error = %v", err)
	}
	if len(wins) != 1 || !wins[0].Result.Equal(decimal.RequireFromString("150.00")) {
		t.Errorf("win filter = %+v, want single 150.00 position", wins)
	}

	losses, err := store.ListPositions(ctx, PositionFilter{Status: "loss"})
	if err != nil {
		t.Fatalf("ListPositions(loss) error = %v", err)
	}
	if len(losses) != 1 {
		t.Errorf("loss filter returned %d positions, want 1", len(losses))
	}

	byTicker, err := store.ListPositions(ctx, PositionFilter{Ticker: "AAPL"})
	if err != nil {
		t.Fatalf("ListPositions(ticker) error = %v", err)
	}
	if len(byTicker) != 2 {
		t.Errorf("ticker filter returned %d positions, want 2", len(byTicker))
	}

	sorted, err := store.ListPositions(ctx, PositionFilter{SortField: "result", SortDesc: true})
	if err != nil {
		t.Fatalf("ListPositions(sorted) error = %v", err)
	}
	if len(sorted) != 3 || !sorted[0].Result.Equal(decimal.RequireFromString("150.00")) {
		t.Errorf("expected result-descending order, got %+v", sorted)
	}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sentinel := errors.New("abort")
	err := store.WithinTx(ctx, func(tx Store) error {
		pos := models.NewPosition("AAPL", models.SideBuy, "usd")
		if err := tx.CreatePosition(ctx, pos); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("WithinTx() error = %v, want sentinel", err)
	}

	positions, err := store.ListPositions(ctx, PositionFilter{})
	if err != nil {
		t.Fatalf("ListPositions() error = %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("expected rollback to leave no positions, got %d", len(positions))
	}

	err = store.WithinTx(ctx, func(tx Store) error {
		return tx.CreatePosition(ctx, models.NewPosition("TSLA", models.SideSell, "usd"))
	})
	if err != nil {
		t.Fatalf("WithinTx() commit error = %v", err)
	}
	positions, err = store.ListPositions(ctx, PositionFilter{})
	if err != nil {
		t.Fatalf("ListPositions() error = %v", err)
	}
	if len(positions) != 1 {
		t.Errorf("expected committed position, got %d", len(positions))
	}
}

func TestUpdatePositionNote(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pos := models.NewPosition("NVDA", models.SideBuy, "usd")
	if err := store.CreatePosition(ctx, pos); err != nil {
		t.Fatalf("CreatePosition() error = %v", err)
	}

	if err := store.UpdatePositionNote(ctx, pos.ID, "earnings gap play"); err != nil {
		t.Fatalf("UpdatePositionNote() error = %v", err)
	}

	got, err := store.PositionByID(ctx, pos.ID)
	if err != nil {
		t.Fatalf("PositionByID() error = %v", err)
	}
	if got == nil || got.Note != "earnings gap play" {
		t.Errorf("Note = %+v, want %q", got, "earnings gap play")
	}
}
