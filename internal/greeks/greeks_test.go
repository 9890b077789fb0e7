package greeks

import (
	"math"
	"testing"

	"github.com/eddiefleurent/schrute_greeks/internal/models"
	"github.com/eddiefleurent/schrute_greeks/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// legAt builds a leg whose market price is the exact Black-Scholes price at
// the given volatility, so the IV solve recovers vol.
func legAt(spot, strike float64, dte int, optType models.OptionType, vol float64) models.OptionLegInput {
	leg := models.OptionLegInput{
		Spot:         spot,
		Strike:       strike,
		DaysToExpiry: dte,
		OptionType:   optType,
	}
	leg.MarketPrice = pricing.Price(pricing.Params{
		Spot:         spot,
		Strike:       strike,
		TimeToExpiry: leg.TimeToExpiry(),
		RiskFreeRate: models.DefaultRiskFreeRate,
		Volatility:   vol,
		Type:         optType,
	})
	return leg
}

func TestLegSolvesImpliedVolatility(t *testing.T) {
	calc := NewCalculator(Config{})
	leg := legAt(22150, 22200, 30, models.OptionTypeCall, 0.14)

	res := calc.Leg(leg)

	require.NotNil(t, res.ImpliedVolatility)
	assert.True(t, res.IVConverged)
	assert.False(t, res.IVUsedFallback)
	assert.InDelta(t, 0.14, *res.ImpliedVolatility, 0.005)
	assert.Equal(t, *res.ImpliedVolatility, res.VolatilityUsed)
	assert.InDelta(t, leg.MarketPrice, res.TheoreticalPrice, 0.01)
	assert.InDelta(t, 0, res.PriceDifference, 0.01)
}

func TestLegNeverFails(t *testing.T) {
	calc := NewCalculator(Config{})

	// Market price below intrinsic: the solver rejects it, but the leg still
	// prices with the default volatility and flags the failure.
	leg := models.OptionLegInput{
		Spot:         120,
		Strike:       100,
		DaysToExpiry: 30,
		MarketPrice:  5, // intrinsic is 20
		OptionType:   models.OptionTypeCall,
	}
	res := calc.Leg(leg)

	assert.Nil(t, res.ImpliedVolatility)
	assert.False(t, res.IVConverged)
	assert.Equal(t, 0.2, res.VolatilityUsed, "default guess stands in for a failed solve")
	assert.Greater(t, res.TheoreticalPrice, 0.0)
}

func TestLegVolatilityProvenance(t *testing.T) {
	hist := []float64{100, 102, 99, 103, 98, 104, 100, 102}

	t.Run("historical fallback when solve cannot converge", func(t *testing.T) {
		calc := NewCalculator(Config{})
		leg := legAt(100, 100, 30, models.OptionTypeCall, 0.2)
		leg.MarketPrice = 150 // unreachable for a 100-spot call
		leg.HistoricalPrices = hist

		res := calc.Leg(leg)

		require.NotNil(t, res.HistoricalVolatility)
		assert.True(t, res.IVUsedFallback)
		assert.False(t, res.IVConverged)
		assert.Equal(t, *res.HistoricalVolatility, res.VolatilityUsed)
	})

	t.Run("disabled solve uses historical volatility", func(t *testing.T) {
		calc := NewCalculator(Config{DisableIVSolve: true})
		leg := legAt(100, 100, 30, models.OptionTypeCall, 0.2)
		leg.HistoricalPrices = hist

		res := calc.Leg(leg)

		assert.Nil(t, res.ImpliedVolatility)
		require.NotNil(t, res.HistoricalVolatility)
		assert.Equal(t, *res.HistoricalVolatility, res.VolatilityUsed)
	})

	t.Run("disabled solve without history uses default", func(t *testing.T) {
		calc := NewCalculator(Config{DisableIVSolve: true})
		res := calc.Leg(legAt(100, 100, 30, models.OptionTypeCall, 0.2))
		assert.Equal(t, 0.2, res.VolatilityUsed)
	})
}

func TestRiskClassification(t *testing.T) {
	calc := NewCalculator(Config{})

	tests := []struct {
		name     string
		dte      int
		expected models.RiskLevel
	}{
		{"expiry week is danger", 5, models.RiskDanger},
		{"exactly 7 DTE is danger", 7, models.RiskDanger},
		{"8 DTE is caution", 8, models.RiskCaution},
		{"two weeks out is caution", 14, models.RiskCaution},
		{"18 DTE still caution via theta/vega floor", 18, models.RiskCaution},
		{"far expiry on an index is safe", 30, models.RiskSafe},
		{"45 DTE is safe", 45, models.RiskSafe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Index-scale leg: large spot keeps gamma tiny and theta deeply
			// negative, so only the DTE ladder drives the outcome.
			leg := legAt(22000, 22000, tt.dte, models.OptionTypeCall, 0.15)
			res := calc.Leg(leg)
			assert.Equal(t, tt.expected, res.RiskLevel)
		})
	}
}

func TestRiskClassificationGammaOverride(t *testing.T) {
	calc := NewCalculator(Config{})

	// Small-underlying ATM leg at 30 DTE: gamma blows past 0.008 even far
	// from expiry, so the gamma clause forces caution.
	leg := legAt(100, 100, 30, models.OptionTypeCall, 0.15)
	res := calc.Leg(leg)

	assert.Greater(t, res.Gamma, 0.008)
	assert.Equal(t, models.RiskCaution, res.RiskLevel)
}

func TestStraddleCombination(t *testing.T) {
	calc := NewCalculator(Config{})
	ce := legAt(22000, 22000, 30, models.OptionTypeCall, 0.15)
	pe := legAt(22000, 22000, 30, models.OptionTypePut, 0.15)

	res := calc.Straddle(ce, pe)

	// ATM call delta ~0.55, put ~-0.45: the straddle is near delta-neutral.
	assert.Less(t, math.Abs(res.Combined.Delta), 0.5)
	assert.Greater(t, res.Combined.Gamma, 0.0)

	assert.InDelta(t, res.CE.Delta+res.PE.Delta, res.Combined.Delta, 1e-12)
	assert.InDelta(t, res.CE.Gamma+res.PE.Gamma, res.Combined.Gamma, 1e-12)
	assert.InDelta(t, res.CE.Theta+res.PE.Theta, res.Combined.Theta, 1e-12)
	assert.InDelta(t, res.CE.Vega+res.PE.Vega, res.Combined.Vega, 1e-12)
	assert.InDelta(t, res.CE.Rho+res.PE.Rho, res.Combined.Rho, 1e-12)
	assert.InDelta(t, res.CE.TheoreticalPrice+res.PE.TheoreticalPrice, res.Combined.TheoreticalPrice, 1e-12)
	assert.InDelta(t, res.CE.MarketPrice+res.PE.MarketPrice, res.Combined.MarketPrice, 1e-12)

	require.NotNil(t, res.Combined.ImpliedVolatility)
	assert.InDelta(t, 0.15, *res.Combined.ImpliedVolatility, 0.005)
	assert.InDelta(t, (res.CE.VolatilityUsed+res.PE.VolatilityUsed)/2, res.Combined.VolatilityUsed, 1e-12)
	assert.True(t, res.Combined.IVConverged)
	assert.False(t, res.Combined.IVUsedFallback)
}

func TestStraddleForcesOptionTypes(t *testing.T) {
	calc := NewCalculator(Config{})
	// Deliberately wrong types on the inputs; combine must force call/put.
	ce := legAt(22000, 22000, 30, models.OptionTypeCall, 0.15)
	ce.OptionType = models.OptionTypePut
	pe := legAt(22000, 22000, 30, models.OptionTypePut, 0.15)
	pe.OptionType = models.OptionTypeCall

	res := calc.Straddle(ce, pe)

	assert.Greater(t, res.CE.Delta, 0.0, "CE leg must be priced as a call")
	assert.Less(t, res.PE.Delta, 0.0, "PE leg must be priced as a put")
}

func TestStraddleRiskIsWorstLeg(t *testing.T) {
	calc := NewCalculator(Config{})
	ce := legAt(22000, 22000, 5, models.OptionTypeCall, 0.15) // danger
	pe := legAt(22000, 22000, 30, models.OptionTypePut, 0.15) // safe

	res := calc.Straddle(ce, pe)

	assert.Equal(t, models.RiskDanger, res.CE.RiskLevel)
	assert.Equal(t, models.RiskSafe, res.PE.RiskLevel)
	assert.Equal(t, models.RiskDanger, res.Combined.RiskLevel)
}

func TestStraddleNilIVWhenLegUnpriceable(t *testing.T) {
	calc := NewCalculator(Config{})
	ce := legAt(22000, 22000, 30, models.OptionTypeCall, 0.15)
	pe := legAt(22000, 22000, 30, models.OptionTypePut, 0.15)
	pe.MarketPrice = -1 // validation failure on the PE leg

	res := calc.Straddle(ce, pe)

	assert.Nil(t, res.PE.ImpliedVolatility)
	assert.Nil(t, res.Combined.ImpliedVolatility, "combined IV requires both legs")
	assert.False(t, res.Combined.IVConverged)
	assert.Greater(t, res.Combined.VolatilityUsed, 0.0)
}

func TestStrangleMatchesStraddleAlgorithm(t *testing.T) {
	calc := NewCalculator(Config{})
	ce := legAt(22000, 22400, 30, models.OptionTypeCall, 0.15)
	pe := legAt(22000, 21600, 30, models.OptionTypePut, 0.15)

	strangle := calc.Strangle(ce, pe)
	straddle := calc.Straddle(ce, pe)

	assert.Equal(t, straddle, strangle)
	// OTM short strangle: both legs contribute, deltas roughly offset.
	assert.Less(t, math.Abs(strangle.Combined.Delta), 0.5)
}
