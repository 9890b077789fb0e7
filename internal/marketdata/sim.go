package marketdata

import (
	"crypto/rand"
	"math"
	"math/big"
	"sync"

	"github.com/eddiefleurent/schrute_greeks/internal/models"
	"github.com/eddiefleurent/schrute_greeks/internal/pricing"
)

// secureFloat64 generates a cryptographically secure random float64 in [0,1).
func secureFloat64() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<53))
	if err != nil {
		// Fallback to a reasonable default if crypto/rand fails
		return 0.5
	}
	return float64(n.Int64()) / (1 << 53)
}

// secureInt63n generates a cryptographically secure random int64 in [0,n).
func secureInt63n(n int64) int64 {
	r, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return n / 2
	}
	return r.Int64()
}

// SimProvider is a self-contained market data source for paper mode. Option
// premiums are generated from the Black-Scholes pricer at the simulated IV
// level, so the solver recovers a sensible volatility from them.
type SimProvider struct {
	mu           sync.Mutex
	currentPrice float64
	midIV        float64 // decimal, e.g. 0.14
	riskFreeRate float64
}

// Ensure SimProvider implements Provider at compile time.
var _ Provider = (*SimProvider)(nil)

// NewSimProvider creates a simulated provider centered on basePrice.
func NewSimProvider(basePrice, riskFreeRate float64) *SimProvider {
	return &SimProvider{
		currentPrice: basePrice * (0.99 + secureFloat64()*0.02),
		midIV:        0.10 + secureFloat64()*0.15, // 10-25% vol regime
		riskFreeRate: riskFreeRate,
	}
}

// GetQuote returns the simulated spot, drifting a little on every call.
func (s *SimProvider) GetQuote(symbol string) (*Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentPrice += (secureFloat64() - 0.5) * s.currentPrice * 0.001

	spread := s.currentPrice * 0.0002
	return &Quote{
		Symbol: symbol,
		Last:   s.currentPrice,
		Bid:    s.currentPrice - spread/2,
		Ask:    s.currentPrice + spread/2,
		Volume: secureInt63n(100000000),
	}, nil
}

// GetOptionQuote prices the contract at the simulated IV and quotes a small
// spread around it.
func (s *SimProvider) GetOptionQuote(symbol string, strike float64, optType models.OptionType, daysToExpiry int) (*OptionQuote, error) {
	s.mu.Lock()
	spot := s.currentPrice
	iv := s.midIV
	s.mu.Unlock()

	theo := pricing.Price(pricing.Params{
		Spot:         spot,
		Strike:       strike,
		TimeToExpiry: float64(daysToExpiry) / 365.0,
		RiskFreeRate: s.riskFreeRate,
		Volatility:   iv,
		Type:         optType,
	})

	spread := math.Max(0.05, theo*0.01)
	return &OptionQuote{
		Symbol:       symbol,
		Strike:       strike,
		OptionType:   optType,
		DaysToExpiry: daysToExpiry,
		Bid:          math.Max(0.05, theo-spread/2),
		Ask:          theo + spread/2,
		Last:         math.Max(0.05, theo),
	}, nil
}

// GetHistoricalCloses walks the spot backwards with daily moves drawn at the
// simulated volatility, returning the series oldest first.
func (s *SimProvider) GetHistoricalCloses(symbol string, days int) ([]float64, error) {
	s.mu.Lock()
	spot := s.currentPrice
	iv := s.midIV
	s.mu.Unlock()

	if days <= 0 {
		days = pricing.DefaultHVLookbackDays
	}

	dailyVol := iv / math.Sqrt(252)
	closes := make([]float64, days)
	price := spot
	for i := days - 1; i >= 0; i-- {
		closes[i] = price
		price *= 1 - (secureFloat64()-0.5)*2*dailyVol
	}
	return closes, nil
}
