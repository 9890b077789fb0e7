// Package models defines the shared value types for option legs, solved
// Greeks and risk classification.
package models

import (
	"fmt"
	"math"
	"time"
)

// OptionType represents the type of option contract.
type OptionType string

const (
	// OptionTypeCall represents a call (CE) option contract
	OptionTypeCall OptionType = "call"
	// OptionTypePut represents a put (PE) option contract
	OptionTypePut OptionType = "put"
)

// Valid returns true if the OptionType is one of the defined constants.
func (t OptionType) Valid() bool {
	return t == OptionTypeCall || t == OptionTypePut
}

// IntrinsicValue returns the exercise value of the option at the given spot.
func (t OptionType) IntrinsicValue(spot, strike float64) float64 {
	if t == OptionTypePut {
		return math.Max(0, strike-spot)
	}
	return math.Max(0, spot-strike)
}

// DefaultRiskFreeRate is the annualized rate assumed when a leg does not
// carry its own.
const DefaultRiskFreeRate = 0.07

// OptionLegInput describes a single option leg to price. MarketPrice is the
// currently traded premium; HistoricalPrices, when present, are ordered
// oldest-first spot closes used for historical volatility.
type OptionLegInput struct {
	Spot             float64    `json:"spot"`
	Strike           float64    `json:"strike"`
	DaysToExpiry     int        `json:"days_to_expiry"`
	MarketPrice      float64    `json:"market_price"`
	OptionType       OptionType `json:"option_type"`
	RiskFreeRate     float64    `json:"risk_free_rate,omitempty"`
	HistoricalPrices []float64  `json:"historical_prices,omitempty"`
}

// Validate checks the structural invariants of a leg. Pricing-level problems
// (expired contracts, sub-intrinsic premiums) are reported by the solver as
// data, not here.
func (l *OptionLegInput) Validate() error {
	if l.Spot <= 0 {
		return fmt.Errorf("spot must be > 0, got %.4f", l.Spot)
	}
	if l.Strike <= 0 {
		return fmt.Errorf("strike must be > 0, got %.4f", l.Strike)
	}
	if l.DaysToExpiry < 0 {
		return fmt.Errorf("days_to_expiry must be >= 0, got %d", l.DaysToExpiry)
	}
	if !l.OptionType.Valid() {
		return fmt.Errorf("option_type must be %q or %q, got %q", OptionTypeCall, OptionTypePut, l.OptionType)
	}
	return nil
}

// TimeToExpiry returns the leg's time to expiry in years.
func (l *OptionLegInput) TimeToExpiry() float64 {
	return float64(l.DaysToExpiry) / 365.0
}

// Rate returns the leg's risk-free rate, falling back to DefaultRiskFreeRate.
func (l *OptionLegInput) Rate() float64 {
	if l.RiskFreeRate == 0 {
		return DefaultRiskFreeRate
	}
	return l.RiskFreeRate
}

// RiskLevel is the discrete classification driving sell/hold/avoid guidance.
type RiskLevel string

const (
	// RiskSafe means the leg can be sold within normal sizing
	RiskSafe RiskLevel = "safe"
	// RiskCaution means the leg should be held or sized down
	RiskCaution RiskLevel = "caution"
	// RiskDanger means selling the leg should be avoided
	RiskDanger RiskLevel = "danger"
)

func (r RiskLevel) rank() int {
	switch r {
	case RiskDanger:
		return 2
	case RiskCaution:
		return 1
	default:
		return 0
	}
}

// Guidance maps the risk level to the dashboard's action string.
func (r RiskLevel) Guidance() string {
	switch r {
	case RiskDanger:
		return "avoid"
	case RiskCaution:
		return "hold"
	default:
		return "sell"
	}
}

// WorstRisk returns the more severe of two risk levels (danger > caution > safe).
func WorstRisk(a, b RiskLevel) RiskLevel {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// IVReading represents a single solved implied volatility for a symbol.
type IVReading struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	IV        float64   `json:"iv"` // decimal, 0.20 = 20%
	Converged bool      `json:"converged"`
	Timestamp time.Time `json:"timestamp"`
}
