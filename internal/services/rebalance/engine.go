package rebalance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"go.uber.org/zap"
)

// Pricer returns fiat prices of symbols.
type Pricer interface {
	Prices(ctx context.Context, symbols []string, currency string) (domain.PriceTable, error)
}

// Catalog exchange symbol catalog.
type Catalog interface {
	ForBase(ctx context.Context, base string) ([]domain.SymbolInfo, error)
	Lookup(ctx context.Context, pair domain.Pair) (domain.SymbolInfo, bool, error)
}

// Config account settings of the engine.
type Config struct {
	// Blacklist symbols that are never traded.
	Blacklist []string
	// Whitelist quote assets allowed as trade counterparts, in preference order.
	Whitelist   []string
	Stablecoins []string
	// PartialSellMin smallest fiat value a short sell is still executed for.
	PartialSellMin decimal.Decimal
}

// Deps collaborators of the engine.
type Deps struct {
	Pricer   Pricer
	Catalog  Catalog
	Executor *Executor
}

// Engine rebalances a wallet snapshot toward targets.
type Engine struct {
	wallet   domain.Wallet
	targets  domain.Targets
	cfg      Config
	pricer   Pricer
	catalog  Catalog
	executor *Executor
	logger   *zap.Logger

	blacklist map[string]struct{}
	whitelist []string
}

// NewEngine creates an engine. The wallet is copied and its liquid-staked assets folded into their base asset.
func NewEngine(w domain.Wallet, t domain.Targets, cfg Config, deps Deps, logger *zap.Logger) (*Engine, error) {
	if deps.Pricer == nil || deps.Catalog == nil || deps.Executor == nil {
		return nil, errors.New("pricer, catalog and executor are required")
	}
	if err := t.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid targets")
	}
	if cfg.PartialSellMin.IsNegative() {
		return nil, errors.Errorf("partial sell minimum must not be negative, got %s", cfg.PartialSellMin.String())
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	wallet := w.Clone()
	wallet.FoldLiquidStake(wallet.LiquidStaked)

	return &Engine{
		wallet:   wallet,
		targets:  t,
		cfg:      cfg,
		pricer:   deps.Pricer,
		catalog:  deps.Catalog,
		executor: deps.Executor,
		logger:   logger,
		blacklist: lo.SliceToMap(normalize(cfg.Blacklist), func(s string) (string, struct{}) {
			return s, struct{}{}
		}),
		whitelist: lo.Uniq(normalize(cfg.Whitelist)),
	}, nil
}

// Wallet returns the wallet the engine plans on, after folding.
func (e *Engine) Wallet() domain.Wallet { return e.wallet.Clone() }

type step struct {
	name string
	run  func(ctx context.Context, st State) (State, error)
}

// Run plans and executes one rebalance. Every run starts from a fresh state; the returned report
// is filled as far as the run got, also on error.
func (e *Engine) Run(ctx context.Context) (domain.RunReport, error) {
	report := domain.RunReport{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Mode:      e.executor.Mode(),
		Stage:     domain.StagePlanned,
		Currency:  e.wallet.Currency,
		Total:     e.wallet.Total,
	}
	if !e.wallet.Total.IsPositive() {
		return report, domain.ErrEmptyWallet
	}

	st := e.newState()
	report.Planned = domain.NewPlannedOrders(st.Orders)
	e.logger.Info("rebalance planned",
		zap.String("run", report.ID),
		zap.String("mode", report.Mode.String()),
		zap.Int("buys", len(st.Orders.Buy)),
		zap.Int("sells", len(st.Orders.Sell)),
		zap.String("tot_buy_size", st.Orders.TotBuySize.StringFixed(2)))

	steps := []step{
		{"buy power", e.calcBuyPower},
		{"sell preparation", e.prepareSells},
		{"sell execution", e.executeSells},
		{"buy preparation", e.prepareBuys},
		{"buy execution", e.executeBuys},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return e.report(report, st), err
		}
		next, err := s.run(ctx, st)
		if err != nil {
			return e.report(report, st), errors.Wrap(err, s.name)
		}
		st = next
	}
	st.Stage = domain.StageDone

	report = e.report(report, st)
	e.logger.Info("rebalance done",
		zap.String("run", report.ID),
		zap.Int("executed", len(report.Executed)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("failures", len(report.Failures)))
	return report, nil
}

func (e *Engine) newState() State {
	return State{
		Stage:  domain.StagePlanned,
		Wallet: e.wallet.Clone(),
		Orders: PlanOrders(e.wallet, e.targets, PlanOptions{
			Stablecoins: e.cfg.Stablecoins,
			Blacklist:   e.cfg.Blacklist,
		}),
		BuyPower: domain.NewBuyPower(),
		Prices:   map[string]decimal.Decimal{e.wallet.Currency: decimal.NewFromInt(1)},
	}
}

func (e *Engine) report(r domain.RunReport, st State) domain.RunReport {
	r.Stage = st.Stage
	r.BuyPower = st.BuyPower.Total
	r.Executed = st.Executed
	r.Skipped = st.Skipped
	r.Failures = st.Ledger.Entries()
	return r
}

// fetchPrices adds prices of symbols not yet known to st. Provider errors and unpriceable
// symbols only leave gaps in st.Prices; callers treat a gap as zero value.
func (e *Engine) fetchPrices(ctx context.Context, st *State, symbols []string) {
	need := lo.Uniq(lo.Filter(normalize(symbols), func(s string, _ int) bool {
		_, ok := st.Prices[s]
		return !ok && s != ""
	}))
	if len(need) == 0 {
		return
	}

	table, err := e.pricer.Prices(ctx, need, st.Wallet.Currency)
	if err != nil {
		e.logger.Warn("price lookup failed", zap.Strings("symbols", need), zap.Error(err))
		return
	}
	for _, s := range need {
		if p, ok := table.Lookup(s); ok {
			st.Prices[s] = p
		}
	}
	if missing := table.Missing(); len(missing) > 0 {
		e.logger.Warn("no price for symbols", zap.Strings("symbols", missing))
	}
}

func (e *Engine) isBlacklisted(symbol string) bool {
	_, ok := e.blacklist[domain.NormalizeSymbol(symbol)]
	return ok
}

func (e *Engine) isWhitelisted(symbol string) bool {
	return lo.Contains(e.whitelist, domain.NormalizeSymbol(symbol))
}

// held quantity of symbol available for trading. The wallet currency lives in buy power
// once claimed, everything else in the exchange balances.
func (s *State) held(symbol string) decimal.Decimal {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == s.Wallet.Currency {
		if v, ok := s.BuyPower.Normal[symbol]; ok {
			return v
		}
	}
	return s.Wallet.ExchangeQty(symbol)
}

// adjust moves qty (signed) in or out of symbol's balance and keeps buy power of quote assets in sync.
func (e *Engine) adjust(st *State, symbol string, qty decimal.Decimal) {
	symbol = domain.NormalizeSymbol(symbol)
	if _, claimed := st.BuyPower.Normal[symbol]; claimed && symbol == st.Wallet.Currency {
		st.BuyPower.Normal[symbol] = decimal.Max(decimal.Zero, st.BuyPower.Normal[symbol].Add(qty))
		return
	}

	key := domain.ExchangeKey(symbol)
	st.Wallet.Exchange[key] = decimal.Max(decimal.Zero, st.Wallet.Exchange[key].Add(qty))

	if !e.isWhitelisted(symbol) {
		return
	}
	if p, ok := st.price(symbol); ok {
		st.BuyPower.Normal[symbol] = st.Wallet.Exchange[key].Mul(p)
	}
}
