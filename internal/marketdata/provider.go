// Package marketdata defines the seam to whatever supplies spot quotes,
// option premiums and historical closes. The pricing engine itself never
// performs I/O; everything network-shaped lives behind Provider.
package marketdata

import (
	"github.com/eddiefleurent/schrute_greeks/internal/models"
)

// Quote is a spot quote for an underlying.
type Quote struct {
	Symbol string  `json:"symbol"`
	Last   float64 `json:"last"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Volume int64   `json:"volume"`
}

// OptionQuote is the traded premium for a single option contract.
type OptionQuote struct {
	Symbol       string            `json:"symbol"`
	Strike       float64           `json:"strike"`
	OptionType   models.OptionType `json:"option_type"`
	DaysToExpiry int               `json:"days_to_expiry"`
	Bid          float64           `json:"bid"`
	Ask          float64           `json:"ask"`
	Last         float64           `json:"last"`
}

// Mid returns the bid/ask midpoint, falling back to the last trade when the
// book is empty.
func (q *OptionQuote) Mid() float64 {
	if q.Bid > 0 && q.Ask > 0 {
		return (q.Bid + q.Ask) / 2
	}
	return q.Last
}

// Provider supplies the market inputs the Greeks engine consumes.
//
// Implementations must be safe for concurrent use: the dashboard fetches the
// CE and PE legs of a position in parallel.
type Provider interface {
	// GetQuote returns the current spot quote for an underlying.
	GetQuote(symbol string) (*Quote, error)

	// GetOptionQuote returns the premium for one option contract.
	GetOptionQuote(symbol string, strike float64, optType models.OptionType, daysToExpiry int) (*OptionQuote, error)

	// GetHistoricalCloses returns up to days spot closes, oldest first.
	GetHistoricalCloses(symbol string, days int) ([]float64, error)
}
