package clients

import (
	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

// SimulateClient wraps a public exchange client for market data and
// carries the paper balances orders are simulated against.
type SimulateClient struct {
	// use Binance public API for real market prices and the symbol catalog
	binanceClient *binance.Client
	balances      map[string]decimal.Decimal
}

// NewSimulateClient creates a new simulate client seeded with paper balances (symbol -> quantity).
func NewSimulateClient(balances map[string]decimal.Decimal) *SimulateClient {
	// create client without API keys for public data only
	client := binance.NewClient("", "")
	seed := make(map[string]decimal.Decimal, len(balances))
	for k, v := range balances {
		seed[k] = v
	}
	return &SimulateClient{
		binanceClient: client,
		balances:      seed,
	}
}

// GetBinanceClient returns the underlying Binance client.
func (c *SimulateClient) GetBinanceClient() *binance.Client {
	return c.binanceClient
}

// Balances returns the paper balances the client was seeded with.
func (c *SimulateClient) Balances() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(c.balances))
	for k, v := range c.balances {
		out[k] = v
	}
	return out
}
