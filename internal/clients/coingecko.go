package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/folio/pkg/retrier"
	"go.uber.org/zap"
)

// DefaultCoinGeckoIDs maps common tickers to CoinGecko ids.
var DefaultCoinGeckoIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"BNB":   "binancecoin",
	"SOL":   "solana",
	"ADA":   "cardano",
	"DOT":   "polkadot",
	"XRP":   "ripple",
	"ATOM":  "cosmos",
	"MATIC": "matic-network",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"USDT":  "tether",
	"USDC":  "usd-coin",
	"DAI":   "dai",
	"FDUSD": "first-digital-usd",
	"STETH": "staked-ether",
	"WBETH": "wrapped-beacon-eth",
	"BNSOL": "binance-staked-sol",
	"MSOL":  "msol",
}

var errRateLimited = errors.New("coingecko rate limited")

// CoinGeckoClient fetches fiat prices from the CoinGecko API.
type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
	retrier    *retrier.Retrier
	logger     *zap.Logger

	mu  sync.Mutex
	ids map[string]string
	// coins lazily loaded /coins/list, symbol -> first id
	coins map[string]string
}

// NewCoinGeckoClient creates a new CoinGecko API client. ids extends DefaultCoinGeckoIDs.
func NewCoinGeckoClient(baseURL string, ids map[string]string, r *retrier.Retrier, logger *zap.Logger) *CoinGeckoClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if r == nil {
		r = retrier.New()
	}
	return &CoinGeckoClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retrier:    r,
		logger:     logger,
		ids:        lo.Assign(DefaultCoinGeckoIDs, lo.MapKeys(ids, func(_ string, k string) string { return strings.ToUpper(k) })),
	}
}

// Name of the provider recorded into snapshots.
func (c *CoinGeckoClient) Name() string { return "coingecko" }

// Prices returns symbol -> price in currency. Symbols that could not be resolved or priced are absent.
func (c *CoinGeckoClient) Prices(ctx context.Context, symbols []string, currency string) (map[string]decimal.Decimal, error) {
	currency = strings.ToLower(currency)
	symbolToID := make(map[string]string, len(symbols))
	for _, s := range lo.Uniq(symbols) {
		id, err := c.resolveID(ctx, s)
		if err != nil {
			return nil, err
		}
		if id == "" {
			c.logger.Warn("coingecko id not found", zap.String("symbol", s))
			continue
		}
		symbolToID[s] = id
	}
	if len(symbolToID) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	ids := lo.Uniq(lo.Values(symbolToID))
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", currency)
	body, err := c.get(ctx, "/simple/price?"+q.Encode())
	if err != nil {
		return nil, err
	}

	// {"bitcoin":{"eur":45000},...}
	var raw map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(err, "parse coingecko prices")
	}

	out := make(map[string]decimal.Decimal, len(symbolToID))
	for symbol, id := range symbolToID {
		price, ok := raw[id][currency]
		if !ok {
			continue
		}
		out[symbol] = price
	}
	return out, nil
}

func (c *CoinGeckoClient) resolveID(ctx context.Context, symbol string) (string, error) {
	symbol = strings.ToUpper(symbol)
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.ids[symbol]; ok {
		return id, nil
	}
	if c.coins == nil {
		coins, err := c.loadCoins(ctx)
		if err != nil {
			return "", err
		}
		c.coins = coins
	}
	id := c.coins[symbol]
	c.ids[symbol] = id
	return id, nil
}

func (c *CoinGeckoClient) loadCoins(ctx context.Context) (map[string]string, error) {
	body, err := c.get(ctx, "/coins/list")
	if err != nil {
		return nil, errors.Wrap(err, "list coingecko coins")
	}
	var list []struct {
		ID     string `json:"id"`
		Symbol string `json:"symbol"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, errors.Wrap(err, "parse coingecko coins list")
	}
	coins := make(map[string]string, len(list))
	for _, coin := range list {
		sym := strings.ToUpper(coin.Symbol)
		if _, ok := coins[sym]; !ok {
			coins[sym] = coin.ID
		}
	}
	return coins, nil
}

func (c *CoinGeckoClient) get(ctx context.Context, path string) ([]byte, error) {
	return retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, retrier.Permanent(errors.Wrap(err, "create coingecko request"))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, errors.Wrap(err, "coingecko request failed")
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "read coingecko response")
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, errRateLimited
		case resp.StatusCode >= http.StatusInternalServerError:
			return nil, fmt.Errorf("coingecko HTTP %d", resp.StatusCode)
		default:
			return nil, retrier.Permanent(fmt.Errorf("coingecko HTTP %d: %s", resp.StatusCode, string(body)))
		}
	})
}
