// Package greeks orchestrates single option legs and straddle/strangle
// combinations: resolve a volatility, price the leg, classify its risk.
package greeks

import (
	"math"

	"github.com/eddiefleurent/schrute_greeks/internal/models"
	"github.com/eddiefleurent/schrute_greeks/internal/pricing"
)

// Risk classification thresholds. These are tuned domain constants for
// weekly/monthly index option selling; do not re-derive them.
const (
	dangerMaxDTE    = 7
	cautionMaxDTE   = 14
	watchMaxDTE     = 20
	cautionGamma    = 0.008
	cautionTheta    = -0.5
	watchThetaFloor = 0.3
	watchVegaFloor  = 0.3
)

// Config tunes the calculator. Zero values fall back to the documented
// defaults.
type Config struct {
	RiskFreeRate   float64 // default models.DefaultRiskFreeRate
	HVLookbackDays int     // default pricing.DefaultHVLookbackDays
	Solver         pricing.SolverConfig
	DisableIVSolve bool // when set, volatility comes from HV or the default guess
}

// Calculator computes Greeks bundles for legs and leg combinations. It holds
// only configuration, so a single instance is safe for concurrent use.
type Calculator struct {
	cfg Config
}

// NewCalculator returns a Calculator with defaults applied.
func NewCalculator(cfg Config) *Calculator {
	if cfg.RiskFreeRate == 0 {
		cfg.RiskFreeRate = models.DefaultRiskFreeRate
	}
	if cfg.HVLookbackDays <= 0 {
		cfg.HVLookbackDays = pricing.DefaultHVLookbackDays
	}
	return &Calculator{cfg: cfg}
}

// Result is the full pricing bundle for one leg (or a combined position).
// VolatilityUsed is always populated even when the IV solve failed; the
// IVConverged/IVUsedFallback flags tell the caller how trustworthy it is.
type Result struct {
	pricing.Greeks

	ImpliedVolatility    *float64 `json:"implied_volatility"`
	HistoricalVolatility *float64 `json:"historical_volatility,omitempty"`
	VolatilityUsed       float64  `json:"volatility_used"`
	IVConverged          bool     `json:"iv_converged"`
	IVUsedFallback       bool     `json:"iv_used_fallback"`

	TheoreticalPrice float64 `json:"theoretical_price"`
	MarketPrice      float64 `json:"market_price"`
	PriceDifference  float64 `json:"price_difference"`

	RiskLevel models.RiskLevel `json:"risk_level"`
}

// CombinedResult pairs the two legs of a straddle or strangle with their
// summed Greeks.
type CombinedResult struct {
	Combined Result `json:"combined"`
	CE       Result `json:"ce"`
	PE       Result `json:"pe"`
}

// Leg resolves a volatility for the input, prices it and classifies its
// risk. It never fails: solver problems surface in the result flags.
func (c *Calculator) Leg(input models.OptionLegInput) Result {
	rate := input.RiskFreeRate
	if rate == 0 {
		rate = c.cfg.RiskFreeRate
	}

	params := pricing.Params{
		Spot:         input.Spot,
		Strike:       input.Strike,
		TimeToExpiry: input.TimeToExpiry(),
		RiskFreeRate: rate,
		Type:         input.OptionType,
	}

	var hv *float64
	if len(input.HistoricalPrices) > 0 {
		hv = pricing.HistoricalVolatility(input.HistoricalPrices, c.cfg.HVLookbackDays)
	}

	var ivRes pricing.SolverResult
	if !c.cfg.DisableIVSolve {
		ivRes = pricing.SolveImpliedVolatilityWithFallback(
			input.MarketPrice, params, input.HistoricalPrices, c.cfg.Solver)
	}

	volUsed := c.resolveVolatility(ivRes.ImpliedVolatility, hv)
	params.Volatility = volUsed
	g := pricing.AllGreeks(params)

	return Result{
		Greeks:               g,
		ImpliedVolatility:    ivRes.ImpliedVolatility,
		HistoricalVolatility: hv,
		VolatilityUsed:       volUsed,
		IVConverged:          ivRes.Converged,
		IVUsedFallback:       ivRes.UsedFallback,
		TheoreticalPrice:     g.Price,
		MarketPrice:          input.MarketPrice,
		PriceDifference:      g.Price - input.MarketPrice,
		RiskLevel:            classifyRisk(input.DaysToExpiry, g),
	}
}

func (c *Calculator) resolveVolatility(iv, hv *float64) float64 {
	if iv != nil {
		return *iv
	}
	if hv != nil {
		return *hv
	}
	if c.cfg.Solver.InitialGuess > 0 {
		return c.cfg.Solver.InitialGuess
	}
	return pricing.DefaultSolverConfig().InitialGuess
}

// classifyRisk applies the threshold ladder in order; first match wins.
func classifyRisk(daysToExpiry int, g pricing.Greeks) models.RiskLevel {
	switch {
	case daysToExpiry <= dangerMaxDTE:
		return models.RiskDanger
	case daysToExpiry <= cautionMaxDTE || g.Gamma > cautionGamma || g.Theta > cautionTheta:
		return models.RiskCaution
	case daysToExpiry <= watchMaxDTE && (g.Theta < watchThetaFloor || math.Abs(g.Vega) < watchVegaFloor):
		return models.RiskCaution
	default:
		return models.RiskSafe
	}
}

// Straddle prices a same-strike CE+PE pair and combines the legs by
// summation. The option types on the inputs are forced to call/put.
func (c *Calculator) Straddle(ce, pe models.OptionLegInput) CombinedResult {
	return c.combine(ce, pe)
}

// Strangle prices a CE+PE pair with different strikes. The combination
// algorithm is identical to Straddle; only the caller-supplied strikes
// differ.
func (c *Calculator) Strangle(ce, pe models.OptionLegInput) CombinedResult {
	return c.combine(ce, pe)
}

func (c *Calculator) combine(ceInput, peInput models.OptionLegInput) CombinedResult {
	ceInput.OptionType = models.OptionTypeCall
	peInput.OptionType = models.OptionTypePut

	ce := c.Leg(ceInput)
	pe := c.Leg(peInput)

	combined := Result{
		Greeks: pricing.Greeks{
			Price: ce.Price + pe.Price,
			Delta: ce.Delta + pe.Delta,
			Gamma: ce.Gamma + pe.Gamma,
			Theta: ce.Theta + pe.Theta,
			Vega:  ce.Vega + pe.Vega,
			Rho:   ce.Rho + pe.Rho,
		},
		VolatilityUsed:   (ce.VolatilityUsed + pe.VolatilityUsed) / 2,
		IVConverged:      ce.IVConverged && pe.IVConverged,
		IVUsedFallback:   ce.IVUsedFallback || pe.IVUsedFallback,
		TheoreticalPrice: ce.TheoreticalPrice + pe.TheoreticalPrice,
		MarketPrice:      ce.MarketPrice + pe.MarketPrice,
		PriceDifference:  ce.PriceDifference + pe.PriceDifference,
		RiskLevel:        models.WorstRisk(ce.RiskLevel, pe.RiskLevel),
	}

	if ce.ImpliedVolatility != nil && pe.ImpliedVolatility != nil {
		avg := (*ce.ImpliedVolatility + *pe.ImpliedVolatility) / 2
		combined.ImpliedVolatility = &avg
	}

	return CombinedResult{Combined: combined, CE: ce, PE: pe}
}
