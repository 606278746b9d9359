package internal

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/config"
	"github.com/vadiminshakov/folio/internal/clients"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/services/pricer"
	"github.com/vadiminshakov/folio/internal/services/rebalance"
	"github.com/vadiminshakov/folio/internal/services/wallet"
	"github.com/vadiminshakov/folio/internal/storage/filestore"
	"github.com/vadiminshakov/folio/internal/storage/runs"
	"github.com/vadiminshakov/folio/internal/storage/snapshots"
	"github.com/vadiminshakov/folio/pkg/retrier"
)

// App tracks and rebalances a single account.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	store     filestore.Store
	provider  serviceProvider
	builder   *wallet.Builder
	snapshots *snapshots.WALStore
	runs      *runs.WALStore
	confirmer rebalance.Confirmer
}

// Option configures App.
type Option func(*App)

// WithConfirmer overrides how interactive mode asks for confirmation.
func WithConfirmer(c rebalance.Confirmer) Option {
	return func(a *App) { a.confirmer = c }
}

// NewApp wires the services for client, as returned by NewClient.
func NewApp(cfg config.Config, client any, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := retrier.New(
		retrier.WithMaxRetries(cfg.RetryMax),
		retrier.WithInitialInterval(cfg.RetryInterval),
		retrier.WithRetryIf(clients.Retryable),
		retrier.WithOnRetry(func(attempt int, err error) {
			logger.Warn("retrying exchange call", zap.Int("attempt", attempt), zap.Error(err))
		}),
	)
	store := filestore.New()

	provider, err := newServiceProvider(client, cfg, store, r, logger)
	if err != nil {
		return nil, err
	}

	gecko := clients.NewCoinGeckoClient(cfg.CoinGeckoURL, cfg.CoinGeckoIDs, r, logger)
	builder := wallet.NewBuilder(wallet.Options{
		Currency:      cfg.Currency,
		HoldingsFile:  cfg.HoldingsFile,
		ExchangeLabel: provider.Name(),
		Stablecoins:   cfg.Stablecoins,
		Fiat:          cfg.Fiat,
		LiquidStake:   cfg.LiquidStake,
		Provider:      gecko.Name(),
	}, pricer.NewCoinGeckoPricer(gecko), provider.Balances(), logger)

	snapshotStore, err := snapshots.NewWALStore(filepath.Join(cfg.WALDir, "wallet"))
	if err != nil {
		return nil, err
	}
	runStore, err := runs.NewWALStore(filepath.Join(cfg.WALDir, "runs"))
	if err != nil {
		snapshotStore.Close()
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		provider:  provider,
		builder:   builder,
		snapshots: snapshotStore,
		runs:      runStore,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.confirmer == nil {
		a.confirmer = newConfirmer(cfg.Confirm)
	}
	return a, nil
}

func newConfirmer(kind string) rebalance.Confirmer {
	if kind == config.ConfirmPlain {
		return rebalance.NewLineConfirmer(os.Stdin, os.Stdout)
	}
	return rebalance.HuhConfirmer{}
}

// Close releases the WAL stores.
func (a *App) Close() error {
	if err := a.snapshots.Close(); err != nil {
		a.runs.Close()
		return err
	}
	return a.runs.Close()
}

// Snapshot values the wallet and appends it to the history.
func (a *App) Snapshot(ctx context.Context) (domain.WalletSnapshot, error) {
	w, err := a.builder.Build(ctx)
	if err != nil {
		return domain.WalletSnapshot{}, errors.Wrap(err, "build wallet")
	}
	snapshot := domain.NewWalletSnapshot(w)
	if err := a.snapshots.Save(snapshot); err != nil {
		return domain.WalletSnapshot{}, err
	}
	a.logger.Info("wallet snapshot saved",
		zap.Time("ts", snapshot.Timestamp),
		zap.String("total_value", snapshot.TotalValue.StringFixed(2)),
		zap.String("currency", snapshot.Currency))
	return snapshot, nil
}

// History returns stored wallet snapshots, oldest first.
func (a *App) History() ([]domain.WalletSnapshotRecord, error) {
	return a.snapshots.All()
}

// Runs returns stored rebalance reports, oldest first.
func (a *App) Runs() ([]domain.RunRecord, error) {
	return a.runs.All()
}

// Rebalance values the wallet, runs the engine in mode and stores the report, also for failed runs.
func (a *App) Rebalance(ctx context.Context, mode domain.ExecutionMode) (domain.RunReport, error) {
	targets, err := LoadTargets(a.store, a.cfg.TargetsFile)
	if err != nil {
		return domain.RunReport{}, err
	}
	w, err := a.builder.Build(ctx)
	if err != nil {
		return domain.RunReport{}, errors.Wrap(err, "build wallet")
	}

	executor, err := a.executor(ctx, mode)
	if err != nil {
		return domain.RunReport{}, err
	}
	engine, err := rebalance.NewEngine(w, targets, rebalance.Config{
		Blacklist:      a.cfg.Blacklist,
		Whitelist:      a.cfg.Whitelist,
		Stablecoins:    a.cfg.Stablecoins,
		PartialSellMin: a.cfg.PartialSellMin,
	}, rebalance.Deps{
		Pricer:   a.provider.Pricer(),
		Catalog:  a.provider.Catalog(),
		Executor: executor,
	}, a.logger)
	if err != nil {
		return domain.RunReport{}, err
	}

	report, runErr := engine.Run(ctx)
	if report.ID != "" {
		if err := a.runs.Save(report); err != nil {
			a.logger.Error("failed to store rebalance report", zap.String("run", report.ID), zap.Error(err))
		}
	}
	return report, runErr
}

func (a *App) executor(ctx context.Context, mode domain.ExecutionMode) (*rebalance.Executor, error) {
	var simulator rebalance.OrderPlacer
	if mode == domain.ModeSimulation {
		sim, err := a.provider.Simulator(ctx)
		if err != nil {
			a.logger.Warn("paper account unavailable, simulated orders are only logged", zap.Error(err))
		} else {
			simulator = sim
		}
	}
	return rebalance.NewExecutor(mode, a.provider.Trader(), simulator, a.confirmer, a.logger)
}

// LoadTargets reads the target allocation file: a flat JSON or YAML map of symbol to
// percentage plus the min_rebalance threshold.
func LoadTargets(store filestore.Store, path string) (domain.Targets, error) {
	var raw map[string]decimal.Decimal
	if err := store.Load(path, &raw); err != nil {
		return domain.Targets{}, errors.Wrap(err, "load target allocation")
	}
	if len(raw) == 0 {
		return domain.Targets{}, errors.Errorf("target allocation %s is missing or empty", path)
	}
	t, err := domain.NewTargetsFromFile(raw)
	return t, errors.Wrapf(err, "target allocation %s", path)
}
