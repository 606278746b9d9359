package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	PlatformBinance  = "binance"
	PlatformSimulate = "simulate"

	ConfirmTUI   = "tui"
	ConfirmPlain = "plain"

	DefaultPath         = "folio.yaml"
	defaultCurrency     = "EUR"
	defaultTargetsFile  = "portfolio_pct.json"
	defaultHoldingsFile = "holdings.csv"
	defaultWALDir       = "./wal"
	defaultCoinGeckoURL = "https://api.coingecko.com/api/v3"
	defaultRetryMax     = 3
	defaultRetryDelay   = time.Second
)

var (
	defaultStablecoins = []string{"USDT", "USDC", "FDUSD", "DAI", "TUSD"}
	defaultFiat        = []string{"EUR", "USD", "GBP", "CHF"}
	defaultWhitelist   = []string{"USDT", "USDC", "BTC", "ETH", "BNB", "EUR"}
	defaultLiquidStake = map[string]string{"STETH": "ETH", "WBETH": "ETH", "BNSOL": "SOL", "MSOL": "SOL"}
)

// Config runtime configuration.
type Config struct {
	Platform     string
	Currency     string
	Mode         domain.ExecutionMode
	Confirm      string
	TargetsFile  string
	HoldingsFile string
	WALDir       string
	CoinGeckoURL string
	// CoinGeckoIDs overrides symbol to CoinGecko id resolution.
	CoinGeckoIDs map[string]string
	// Blacklist symbols that are never traded.
	Blacklist []string
	// Whitelist quote assets eligible as trading counterparts, in preference order.
	Whitelist   []string
	Stablecoins []string
	Fiat        []string
	// LiquidStake maps liquid-staked symbol to its base asset.
	LiquidStake    map[string]string
	PartialSellMin decimal.Decimal
	// PaperBalances seed the simulated exchange account on its first run.
	PaperBalances map[string]decimal.Decimal
	RetryMax      int
	RetryInterval time.Duration

	APIKey    string
	APISecret string
}

type configTmp struct {
	Platform       string            `yaml:"platform"`
	Currency       string            `yaml:"currency"`
	Mode           string            `yaml:"mode"`
	Confirm        string            `yaml:"confirm,omitempty"`
	TargetsFile    string            `yaml:"targets_file"`
	HoldingsFile   string            `yaml:"holdings_file"`
	WALDir         string            `yaml:"wal_dir,omitempty"`
	CoinGeckoURL   string            `yaml:"coingecko_url,omitempty"`
	CoinGeckoIDs   map[string]string `yaml:"coingecko_ids,omitempty"`
	Blacklist      []string          `yaml:"symbol_blacklist,omitempty"`
	Whitelist      []string          `yaml:"tradable_counterpart_whitelist,omitempty"`
	Stablecoins    []string          `yaml:"stablecoins,omitempty"`
	Fiat           []string          `yaml:"fiat,omitempty"`
	LiquidStake    map[string]string `yaml:"liquid_stake,omitempty"`
	PartialSellMin string            `yaml:"partial_sell_min,omitempty"`
	PaperBalances  map[string]string `yaml:"paper_balances,omitempty"`
	RetryMax       *int              `yaml:"retry_max,omitempty"`
	RetryInterval  time.Duration     `yaml:"retry_interval,omitempty"`
}

// Default returns a simulation config with built-in lists.
func Default() Config {
	return Config{
		Platform:       PlatformSimulate,
		Currency:       defaultCurrency,
		Mode:           domain.ModeSimulation,
		Confirm:        ConfirmTUI,
		TargetsFile:    defaultTargetsFile,
		HoldingsFile:   defaultHoldingsFile,
		WALDir:         defaultWALDir,
		CoinGeckoURL:   defaultCoinGeckoURL,
		Whitelist:      append([]string(nil), defaultWhitelist...),
		Stablecoins:    append([]string(nil), defaultStablecoins...),
		Fiat:           append([]string(nil), defaultFiat...),
		LiquidStake:    lo.Assign(defaultLiquidStake),
		PartialSellMin: decimal.NewFromInt(1),
		RetryMax:       defaultRetryMax,
		RetryInterval:  defaultRetryDelay,
	}
}

// Load reads the yaml config at path and fills secrets from the environment.
func Load(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	cfg, err := Parse(f)
	if err != nil {
		return Config{}, err
	}
	cfg.APIKey = os.Getenv("BINANCE_API_KEY")
	cfg.APISecret = os.Getenv("BINANCE_API_SECRET")
	return cfg, nil
}

// Parse converts raw yaml into Config, applying defaults for omitted fields.
func Parse(raw []byte) (Config, error) {
	var c configTmp
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Config{}, errors.Wrap(err, "decode yaml config")
	}

	cfg := Default()
	if c.Platform != "" {
		cfg.Platform = strings.ToLower(c.Platform)
	}
	if cfg.Platform != PlatformBinance && cfg.Platform != PlatformSimulate {
		return Config{}, fmt.Errorf("incorrect 'platform' param in yaml config: %s (binance or simulate)", c.Platform)
	}
	if c.Currency != "" {
		cfg.Currency = domain.NormalizeSymbol(c.Currency)
	}
	if c.Mode != "" {
		mode, err := domain.ParseExecutionMode(c.Mode)
		if err != nil {
			return Config{}, errors.Wrap(err, "incorrect 'mode' param in yaml config")
		}
		cfg.Mode = mode
	}
	if c.Confirm != "" {
		if c.Confirm != ConfirmTUI && c.Confirm != ConfirmPlain {
			return Config{}, fmt.Errorf("incorrect 'confirm' param in yaml config: %s (tui or plain)", c.Confirm)
		}
		cfg.Confirm = c.Confirm
	}
	cfg.TargetsFile = lo.CoalesceOrEmpty(c.TargetsFile, cfg.TargetsFile)
	cfg.HoldingsFile = lo.CoalesceOrEmpty(c.HoldingsFile, cfg.HoldingsFile)
	cfg.WALDir = lo.CoalesceOrEmpty(c.WALDir, cfg.WALDir)
	cfg.CoinGeckoURL = strings.TrimRight(lo.CoalesceOrEmpty(c.CoinGeckoURL, cfg.CoinGeckoURL), "/")
	cfg.CoinGeckoIDs = normalizeKeys(c.CoinGeckoIDs)

	cfg.Blacklist = normalizeList(c.Blacklist)
	if c.Whitelist != nil {
		cfg.Whitelist = normalizeList(c.Whitelist)
	}
	if c.Stablecoins != nil {
		cfg.Stablecoins = normalizeList(c.Stablecoins)
	}
	if c.Fiat != nil {
		cfg.Fiat = normalizeList(c.Fiat)
	}
	if c.LiquidStake != nil {
		cfg.LiquidStake = normalizeKeys(c.LiquidStake)
		for ls, base := range cfg.LiquidStake {
			cfg.LiquidStake[ls] = domain.NormalizeSymbol(base)
		}
	}

	if c.PartialSellMin != "" {
		v, err := decimal.NewFromString(c.PartialSellMin)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'partial_sell_min' param in yaml config (must be a decimal), error: %w", err)
		}
		if v.IsNegative() {
			return Config{}, fmt.Errorf("incorrect 'partial_sell_min' param in yaml config: must not be negative")
		}
		cfg.PartialSellMin = v
	}
	if len(c.PaperBalances) > 0 {
		cfg.PaperBalances = make(map[string]decimal.Decimal, len(c.PaperBalances))
		for symbol, raw := range c.PaperBalances {
			v, err := decimal.NewFromString(raw)
			if err != nil {
				return Config{}, fmt.Errorf("incorrect 'paper_balances' param in yaml config for %s, error: %w", symbol, err)
			}
			cfg.PaperBalances[domain.NormalizeSymbol(symbol)] = v
		}
	}
	if c.RetryMax != nil {
		if *c.RetryMax < 0 {
			return Config{}, fmt.Errorf("incorrect 'retry_max' param in yaml config: must not be negative")
		}
		cfg.RetryMax = *c.RetryMax
	}
	if c.RetryInterval > 0 {
		cfg.RetryInterval = c.RetryInterval
	}

	return cfg, nil
}

// Validate checks settings that depend on the environment.
func (c Config) Validate() error {
	if c.Platform == PlatformBinance && (c.APIKey == "" || c.APISecret == "") {
		return errors.New("BINANCE_API_KEY and BINANCE_API_SECRET environment variables must be set")
	}
	if len(c.Whitelist) == 0 {
		return errors.New("tradable_counterpart_whitelist must not be empty")
	}
	return nil
}

// Marshal renders c as yaml, the format Load reads.
func (c Config) Marshal() ([]byte, error) {
	tmp := configTmp{
		Platform:       c.Platform,
		Currency:       c.Currency,
		Mode:           c.Mode.String(),
		Confirm:        c.Confirm,
		TargetsFile:    c.TargetsFile,
		HoldingsFile:   c.HoldingsFile,
		WALDir:         c.WALDir,
		CoinGeckoURL:   c.CoinGeckoURL,
		CoinGeckoIDs:   c.CoinGeckoIDs,
		Blacklist:      c.Blacklist,
		Whitelist:      c.Whitelist,
		Stablecoins:    c.Stablecoins,
		Fiat:           c.Fiat,
		LiquidStake:    c.LiquidStake,
		PartialSellMin: c.PartialSellMin.String(),
		PaperBalances: lo.MapValues(c.PaperBalances, func(v decimal.Decimal, _ string) string {
			return v.String()
		}),
		RetryMax:       lo.ToPtr(c.RetryMax),
		RetryInterval:  c.RetryInterval,
	}
	out, err := yaml.Marshal(tmp)
	return out, errors.Wrap(err, "encode yaml config")
}

// IsStable reports whether symbol is a configured stablecoin.
func (c Config) IsStable(symbol string) bool {
	return lo.Contains(c.Stablecoins, domain.NormalizeSymbol(symbol))
}

// IsFiat reports whether symbol is a configured fiat currency.
func (c Config) IsFiat(symbol string) bool {
	return lo.Contains(c.Fiat, domain.NormalizeSymbol(symbol))
}

func normalizeList(in []string) []string {
	out := lo.Map(in, func(s string, _ int) string { return domain.NormalizeSymbol(s) })
	return lo.Uniq(lo.Compact(out))
}

func normalizeKeys(in map[string]string) map[string]string {
	return lo.MapKeys(in, func(_ string, k string) string { return domain.NormalizeSymbol(k) })
}
