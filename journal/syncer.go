package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"trade-journal/config"
	"trade-journal/models"
	"trade-journal/observability"
	"trade-journal/repository"
	"trade-journal/services"
)

// ErrSyncInProgress is returned when a synchronization pass is requested
// while another one is still running.
var ErrSyncInProgress = errors.New("synchronization already in progress")

const (
	stateIdle int32 = iota
	stateSyncing
)

// Syncer drives one batch synchronization pass: it fetches everything the
// broker reported since the last recorded operation, classifies each record
// and applies it through the accounting engine inside a single transaction.
// Only one pass runs at a time; overlapping invocations fail fast.
type Syncer struct {
	store       repository.Store
	operations  services.OperationSource
	instruments services.InstrumentSource
	accounts    services.AccountSource
	engine      *Engine
	metrics     *observability.Metrics

	accountName string
	window      time.Duration

	state atomic.Int32
}

// NewSyncer wires a synchronization driver from its collaborators.
func NewSyncer(store repository.Store, ops services.OperationSource, instruments services.InstrumentSource, accounts services.AccountSource, cfg *config.Config, metrics *observability.Metrics) *Syncer {
	if metrics == nil {
		metrics = observability.GetMetrics()
	}
	return &Syncer{
		store:       store,
		operations:  ops,
		instruments: instruments,
		accounts:    accounts,
		engine:      NewEngine(metrics),
		metrics:     metrics,
		accountName: cfg.Broker.AccountName,
		window:      time.Duration(cfg.Sync.BatchDays) * 24 * time.Hour,
	}
}

// State reports "idle" or "syncing".
func (s *Syncer) State() string {
	if s.state.Load() == stateSyncing {
		return "syncing"
	}
	return "idle"
}

// Sync runs one synchronization pass and returns the number of newly recorded
// trade operations. Fees and associated payments are persisted but not
// counted. A fetch failure aborts the pass before any state is committed.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	if !s.state.CompareAndSwap(stateIdle, stateSyncing) {
		return 0, ErrSyncInProgress
	}
	defer s.state.Store(stateIdle)

	timer := s.metrics.NewTimer()
	count, err := s.run(ctx)
	if err != nil {
		timer.ObserveSync("error")
		return 0, err
	}
	timer.ObserveSync("success")

	observability.Info("synchronization finished",
		"new_operations", count,
		"duration", timer.Duration().String(),
	)
	return count, nil
}

func (s *Syncer) run(ctx context.Context) (int, error) {
	account, err := s.resolveAccount(ctx)
	if err != nil {
		return 0, err
	}

	if err := s.ensureAssets(ctx); err != nil {
		return 0, err
	}

	last, err := s.store.LastOperation(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read synchronization watermark: %w", err)
	}

	since := account.OpenedDate
	lastID := ""
	if last != nil {
		since = last.Time
		lastID = last.ID
	}

	batch, err := s.fetch(ctx, account.ID, since)
	if err != nil {
		return 0, err
	}

	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Date.Before(batch[j].Date)
	})

	count := 0
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		for _, raw := range batch {
			// The watermark operation itself reappears at the window boundary.
			if raw.ID == lastID {
				continue
			}

			n, err := s.apply(ctx, tx, raw)
			if err != nil {
				return err
			}
			count += n
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("synchronization pass failed: %w", err)
	}

	return count, nil
}

// fetch pulls operations in fixed-size windows from since up to now and
// concatenates them. Any window failing aborts the whole fetch.
func (s *Syncer) fetch(ctx context.Context, accountID string, since time.Time) ([]services.BrokerOperation, error) {
	now := time.Now()
	var batch []services.BrokerOperation

	for from := since; from.Before(now); from = from.Add(s.window) {
		to := from.Add(s.window)
		if to.After(now) {
			to = now
		}

		ops, err := s.operations.Operations(ctx, accountID, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch operations [%s, %s]: %w",
				from.Format(time.RFC3339), to.Format(time.RFC3339), err)
		}
		batch = append(batch, ops...)
	}

	return batch, nil
}

// apply routes one raw operation and returns 1 when a trade leg was recorded.
func (s *Syncer) apply(ctx context.Context, tx repository.Store, raw services.BrokerOperation) (int, error) {
	category := Classify(raw)
	switch category {
	case CategoryIgnored:
		observability.Debug("skipping non-executed operation", "operation_id", raw.ID, "state", raw.State)
		s.metrics.RecordOperationSkipped("not_executed")
		return 0, nil

	case CategoryFee:
		return 0, s.engine.AttachFee(ctx, tx, raw)

	case CategoryPayment:
		// best-effort resolution; payments legitimately carry no instrument
		ticker, err := tx.TickerForFIGI(ctx, raw.FIGI)
		if err != nil {
			return 0, err
		}
		return 0, s.engine.RecordPayment(ctx, tx, ticker, raw)

	default:
		ticker, err := s.resolveTicker(ctx, tx, raw.FIGI)
		if err != nil {
			return 0, err
		}
		if ticker == "" {
			observability.Warn("skipping trade with unresolvable instrument",
				"operation_id", raw.ID, "figi", raw.FIGI)
			s.metrics.RecordOperationSkipped("unresolved_ticker")
			return 0, nil
		}

		if err := s.engine.RecordTrade(ctx, tx, ticker, raw, category); err != nil {
			return 0, err
		}
		return 1, nil
	}
}

// resolveTicker maps a FIGI to a ticker through the asset directory. On a
// miss it fetches the single instrument from the broker, registers it and
// retries once.
func (s *Syncer) resolveTicker(ctx context.Context, tx repository.Store, figi string) (string, error) {
	ticker, err := tx.TickerForFIGI(ctx, figi)
	if err != nil {
		return "", err
	}
	if ticker != "" {
		return ticker, nil
	}

	share, err := s.instruments.ShareByFIGI(ctx, figi)
	if err != nil {
		return "", fmt.Errorf("failed to look up instrument %s: %w", figi, err)
	}
	if share == nil {
		return "", nil
	}

	if err := tx.PopulateAssets(ctx, []models.Asset{assetFromShare(*share)}); err != nil {
		return "", fmt.Errorf("failed to register instrument %s: %w", figi, err)
	}

	return tx.TickerForFIGI(ctx, figi)
}

// ensureAssets populates the asset directory from the broker's full share
// list on first run.
func (s *Syncer) ensureAssets(ctx context.Context) error {
	populated, err := s.store.AssetsPopulated(ctx)
	if err != nil {
		return fmt.Errorf("failed to check asset directory: %w", err)
	}
	if populated {
		return nil
	}

	shares, err := s.instruments.Shares(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch instrument directory: %w", err)
	}

	assets := make([]models.Asset, 0, len(shares))
	for _, share := range shares {
		assets = append(assets, assetFromShare(share))
	}

	observability.Info("populating asset directory", "instruments", len(assets))
	return s.store.PopulateAssets(ctx, assets)
}

// resolveAccount finds the configured account by name, falling back to the
// first available account when no name is configured.
func (s *Syncer) resolveAccount(ctx context.Context) (*services.BrokerAccount, error) {
	accounts, err := s.accounts.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, errors.New("no brokerage accounts available to the configured token")
	}

	if s.accountName == "" {
		return &accounts[0], nil
	}
	for i := range accounts {
		if accounts[i].Name == s.accountName {
			return &accounts[i], nil
		}
	}
	return nil, fmt.Errorf("account %q not found", s.accountName)
}

func assetFromShare(share services.BrokerShare) models.Asset {
	return models.Asset{
		Ticker:         share.Ticker,
		FIGI:           share.FIGI,
		Name:           share.Name,
		UID:            share.UID,
		PositionUID:    share.PositionUID,
		Currency:       share.Currency,
		Country:        share.CountryOfRisk,
		Sector:         share.Sector,
		ShortAvailable: share.SellAvailableFlag,
	}
}
