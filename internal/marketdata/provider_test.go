package marketdata

import (
	"testing"

	"github.com/eddiefleurent/schrute_greeks/internal/models"
	"github.com/eddiefleurent/schrute_greeks/internal/pricing"
)

func TestOptionQuoteMid(t *testing.T) {
	tests := []struct {
		name     string
		quote    OptionQuote
		expected float64
	}{
		{"bid/ask midpoint", OptionQuote{Bid: 100, Ask: 102, Last: 99}, 101},
		{"empty book falls back to last", OptionQuote{Last: 99}, 99},
		{"one-sided book falls back to last", OptionQuote{Bid: 100, Last: 99}, 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.quote.Mid(); got != tt.expected {
				t.Errorf("Mid() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestSimProviderQuote(t *testing.T) {
	sim := NewSimProvider(22000, 0.07)

	q, err := sim.GetQuote("NIFTY")
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if q.Last <= 0 || q.Bid <= 0 || q.Ask <= 0 {
		t.Errorf("non-positive quote: %+v", q)
	}
	if q.Bid >= q.Ask {
		t.Errorf("bid %v not below ask %v", q.Bid, q.Ask)
	}
	// Simulated spot stays near the base price.
	if q.Last < 20000 || q.Last > 24000 {
		t.Errorf("spot %v drifted far from base 22000", q.Last)
	}
}

func TestSimProviderOptionQuoteIsSolvable(t *testing.T) {
	sim := NewSimProvider(22000, 0.07)
	spot, _ := sim.GetQuote("NIFTY")

	oq, err := sim.GetOptionQuote("NIFTY", 22000, models.OptionTypeCall, 30)
	if err != nil {
		t.Fatalf("GetOptionQuote: %v", err)
	}
	if oq.Mid() <= 0 {
		t.Fatalf("non-positive premium: %+v", oq)
	}

	// The simulated premium comes from the pricer, so the solver must be
	// able to invert it.
	res := pricing.SolveImpliedVolatility(oq.Mid(), pricing.Params{
		Spot:         spot.Last,
		Strike:       22000,
		TimeToExpiry: 30.0 / 365.0,
		RiskFreeRate: 0.07,
		Type:         models.OptionTypeCall,
	}, pricing.SolverConfig{})
	if !res.Converged {
		t.Errorf("simulated premium not solvable: %+v", res)
	}
}

func TestSimProviderHistoricalCloses(t *testing.T) {
	sim := NewSimProvider(22000, 0.07)

	closes, err := sim.GetHistoricalCloses("NIFTY", 30)
	if err != nil {
		t.Fatalf("GetHistoricalCloses: %v", err)
	}
	if len(closes) != 30 {
		t.Fatalf("got %d closes, expected 30", len(closes))
	}
	for i, c := range closes {
		if c <= 0 {
			t.Errorf("close[%d] = %v, expected positive", i, c)
		}
	}
	if hv := pricing.HistoricalVolatility(closes, 30); hv == nil {
		t.Error("simulated closes should yield a historical volatility")
	}

	// The series must end at the current spot.
	q, _ := sim.GetQuote("NIFTY")
	last := closes[len(closes)-1]
	if last < q.Last*0.99 || last > q.Last*1.01 {
		t.Errorf("latest close %v far from spot %v", last, q.Last)
	}
}
