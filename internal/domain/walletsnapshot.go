package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletSnapshot persisted wallet state for the value time series.
type WalletSnapshot struct {
	Timestamp         time.Time       `json:"ts"`
	Currency          string          `json:"currency"`
	Provider          string          `json:"provider,omitempty"`
	TotalValue        decimal.Decimal `json:"total_value"`
	TotalCryptoStable decimal.Decimal `json:"total_crypto_stable"`
	TotalInvested     decimal.Decimal `json:"total_invested,omitempty"`
	Assets            []Holding       `json:"assets"`
}

// NewWalletSnapshot captures w.
func NewWalletSnapshot(w Wallet) WalletSnapshot {
	return WalletSnapshot{
		Timestamp:         w.Timestamp,
		Currency:          w.Currency,
		Provider:          w.PriceProvider,
		TotalValue:        w.TotalValue,
		TotalCryptoStable: w.Total,
		TotalInvested:     w.TotalInvested,
		Assets:            w.Holdings(),
	}
}

// Wallet restores the wallet described by the snapshot, without exchange balances.
func (s WalletSnapshot) Wallet() Wallet {
	w := NewWallet(s.Currency)
	w.Timestamp = s.Timestamp
	w.PriceProvider = s.Provider
	w.Total = s.TotalCryptoStable
	w.TotalValue = s.TotalValue
	w.TotalInvested = s.TotalInvested
	for _, h := range s.Assets {
		w.Set(h)
	}
	return w
}

// WalletSnapshotRecord bundles a snapshot with its WAL index.
type WalletSnapshotRecord struct {
	Index    uint64
	Snapshot WalletSnapshot
}
