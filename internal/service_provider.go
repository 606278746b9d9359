package internal

import (
	"context"
	"fmt"
	"path/filepath"

	binance "github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/config"
	"github.com/vadiminshakov/folio/internal/clients"
	"github.com/vadiminshakov/folio/internal/services/market"
	"github.com/vadiminshakov/folio/internal/services/pricer"
	"github.com/vadiminshakov/folio/internal/services/rebalance"
	"github.com/vadiminshakov/folio/internal/services/trader"
	"github.com/vadiminshakov/folio/internal/services/wallet"
	"github.com/vadiminshakov/folio/internal/storage/filestore"
	"github.com/vadiminshakov/folio/pkg/retrier"
)

const paperStateFile = "paper_account.json"

// serviceProvider defines a factory interface for creating platform-specific services.
type serviceProvider interface {
	Name() string
	Balances() wallet.BalanceSource
	Pricer() pricer.Pricer
	Catalog() rebalance.Catalog
	Trader() rebalance.OrderPlacer
	// Simulator returns the placer orders go to in simulation mode, nil to only log them.
	Simulator(ctx context.Context) (rebalance.OrderPlacer, error)
}

// NewClient creates the exchange client for the configured platform.
func NewClient(cfg config.Config) (any, error) {
	switch cfg.Platform {
	case config.PlatformBinance:
		if cfg.APIKey == "" || cfg.APISecret == "" {
			return nil, errors.New("BINANCE_API_KEY and BINANCE_API_SECRET environment variables must be set")
		}
		return clients.NewBinanceClient(cfg.APIKey, cfg.APISecret), nil
	case config.PlatformSimulate:
		return clients.NewSimulateClient(cfg.PaperBalances), nil
	default:
		return nil, fmt.Errorf("unsupported platform %q", cfg.Platform)
	}
}

// newServiceProvider creates a service provider based on the client type.
// This is the single point of truth for dispatching to platform-specific implementations.
func newServiceProvider(client any, cfg config.Config, store filestore.Store, r *retrier.Retrier, logger *zap.Logger) (serviceProvider, error) {
	switch c := client.(type) {
	case *binance.Client:
		return newBinanceProvider(c, cfg.Currency, r, logger), nil
	case *clients.SimulateClient:
		return newSimulateProvider(c, cfg, store, r, logger)
	default:
		return nil, fmt.Errorf("unsupported client type: %T", client)
	}
}

type binanceProvider struct {
	trader   *trader.BinanceTrader
	pricer   *pricer.BinancePricer
	catalog  *market.Catalog
	currency string
	logger   *zap.Logger
}

func newBinanceProvider(client *binance.Client, currency string, r *retrier.Retrier, logger *zap.Logger) *binanceProvider {
	return &binanceProvider{
		trader:   trader.NewBinanceTrader(client, r, logger),
		pricer:   pricer.NewBinancePricer(client, r, logger),
		catalog:  market.NewBinanceCatalog(client, r, logger),
		currency: currency,
		logger:   logger,
	}
}

func (p *binanceProvider) Name() string                   { return config.PlatformBinance }
func (p *binanceProvider) Balances() wallet.BalanceSource { return p.trader }
func (p *binanceProvider) Pricer() pricer.Pricer          { return p.pricer }
func (p *binanceProvider) Catalog() rebalance.Catalog     { return p.catalog }
func (p *binanceProvider) Trader() rebalance.OrderPlacer  { return p.trader }

// Simulator paper trades against a copy of the live balances so a dry run shows realistic fills.
func (p *binanceProvider) Simulator(ctx context.Context) (rebalance.OrderPlacer, error) {
	balances, err := p.trader.Balances(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "seed paper account")
	}
	return trader.NewSimulateTrader(balances, p.pricer, p.currency, p.logger)
}

type simulateProvider struct {
	paper   *trader.SimulateTrader
	pricer  *pricer.BinancePricer
	catalog *market.Catalog
}

func newSimulateProvider(client *clients.SimulateClient, cfg config.Config, store filestore.Store, r *retrier.Retrier, logger *zap.Logger) (*simulateProvider, error) {
	prices := pricer.NewBinancePricer(client.GetBinanceClient(), r, logger)
	paper, err := trader.NewSimulateTrader(
		client.Balances(),
		prices,
		cfg.Currency,
		logger,
		trader.WithStateFile(store, filepath.Join(cfg.WALDir, paperStateFile)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create paper account")
	}
	return &simulateProvider{
		paper:   paper,
		pricer:  prices,
		catalog: market.NewBinanceCatalog(client.GetBinanceClient(), r, logger),
	}, nil
}

func (p *simulateProvider) Name() string                   { return config.PlatformSimulate }
func (p *simulateProvider) Balances() wallet.BalanceSource { return p.paper }
func (p *simulateProvider) Pricer() pricer.Pricer          { return p.pricer }
func (p *simulateProvider) Catalog() rebalance.Catalog     { return p.catalog }
func (p *simulateProvider) Trader() rebalance.OrderPlacer  { return p.paper }

// Simulator is nil: the paper account only changes in interactive or auto mode.
func (p *simulateProvider) Simulator(context.Context) (rebalance.OrderPlacer, error) {
	return nil, nil
}
