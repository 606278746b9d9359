package pricer

import (
	"github.com/vadiminshakov/folio/internal/clients"
)

// NewCoinGeckoPricer prices wallet holdings through CoinGecko.
func NewCoinGeckoPricer(client *clients.CoinGeckoClient) *SourcePricer {
	return NewSourcePricer(client)
}
