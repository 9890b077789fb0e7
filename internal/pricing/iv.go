package pricing

import (
	"fmt"
	"math"
)

const (
	// minVega guards the Newton-Raphson update against division by a
	// collapsed vega.
	minVega = 1e-10
	// intrinsicTolerance allows a 1% haircut below intrinsic value before a
	// market price is rejected outright.
	intrinsicTolerance = 0.99
	// tradingDaysPerYear annualizes the daily log-return deviation.
	tradingDaysPerYear = 252.0
	// DefaultHVLookbackDays is the window used for historical volatility
	// when the caller does not override it.
	DefaultHVLookbackDays = 30
)

// SolverConfig tunes the Newton-Raphson implied volatility solver. Zero
// fields are filled in from DefaultSolverConfig field by field, so callers
// can override only what they need.
type SolverConfig struct {
	MaxIterations int
	Tolerance     float64
	InitialGuess  float64
	MinVolatility float64
	MaxVolatility float64
}

// DefaultSolverConfig returns the solver defaults.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		MaxIterations: 100,
		Tolerance:     0.0001,
		InitialGuess:  0.20,
		MinVolatility: 0.01,
		MaxVolatility: 3.0,
	}
}

func (c SolverConfig) withDefaults() SolverConfig {
	def := DefaultSolverConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = def.MaxIterations
	}
	if c.Tolerance <= 0 {
		c.Tolerance = def.Tolerance
	}
	if c.InitialGuess <= 0 {
		c.InitialGuess = def.InitialGuess
	}
	if c.MinVolatility <= 0 {
		c.MinVolatility = def.MinVolatility
	}
	if c.MaxVolatility <= 0 {
		c.MaxVolatility = def.MaxVolatility
	}
	return c
}

// FallbackType identifies which estimate stood in for a solved IV.
type FallbackType string

const (
	// FallbackHistorical means historical volatility was used
	FallbackHistorical FallbackType = "historical"
	// FallbackInitial means the solver's initial guess was used
	FallbackInitial FallbackType = "initial"
)

// SolverResult reports the outcome of an implied volatility solve.
// ImpliedVolatility is nil only when input validation rejected the request;
// callers must treat that as "cannot price this leg".
type SolverResult struct {
	ImpliedVolatility *float64     `json:"implied_volatility"`
	Iterations        int          `json:"iterations"`
	Converged         bool         `json:"converged"`
	Error             string       `json:"error,omitempty"`
	UsedFallback      bool         `json:"used_fallback"`
	FallbackType      FallbackType `json:"fallback_type,omitempty"`
}

// SolveImpliedVolatility inverts the Black-Scholes price via Newton-Raphson
// to recover the volatility implied by marketPrice. p.Volatility is ignored;
// the iteration is seeded from cfg.InitialGuess.
func SolveImpliedVolatility(marketPrice float64, p Params, cfg SolverConfig) SolverResult {
	cfg = cfg.withDefaults()

	if marketPrice <= 0 {
		return SolverResult{Error: fmt.Sprintf("market price must be positive, got %.4f", marketPrice)}
	}
	if p.TimeToExpiry <= 0 {
		return SolverResult{Error: "option has expired, cannot solve implied volatility"}
	}
	intrinsic := p.Type.IntrinsicValue(p.Spot, p.Strike)
	if marketPrice < intrinsic*intrinsicTolerance {
		return SolverResult{Error: fmt.Sprintf(
			"market price %.4f is below intrinsic value %.4f", marketPrice, intrinsic)}
	}

	sigma := cfg.InitialGuess
	iterations := 0

	for i := 0; i < cfg.MaxIterations; i++ {
		iterations = i + 1
		p.Volatility = sigma

		price := Price(p)
		if math.Abs(price-marketPrice) < cfg.Tolerance {
			return SolverResult{ImpliedVolatility: &sigma, Iterations: iterations, Converged: true}
		}

		vega := Vega(p)
		if math.Abs(vega) < minVega {
			break
		}

		// Vega is reported per 1% move; undo the scaling for the raw slope.
		sigma -= (price - marketPrice) / (vega * 100)
		sigma = math.Max(cfg.MinVolatility, math.Min(cfg.MaxVolatility, sigma))
	}

	return SolverResult{
		ImpliedVolatility: &sigma,
		Iterations:        iterations,
		Error:             fmt.Sprintf("did not converge after %d iterations", iterations),
	}
}

// HistoricalVolatility annualizes the standard deviation of daily log
// returns over the last lookbackDays closes. Non-positive prices are skipped
// when forming returns. Returns nil when fewer than two usable prices (one
// return) are available.
func HistoricalVolatility(prices []float64, lookbackDays int) *float64 {
	if lookbackDays <= 0 {
		lookbackDays = DefaultHVLookbackDays
	}
	if len(prices) > lookbackDays {
		prices = prices[len(prices)-lookbackDays:]
	}
	if len(prices) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i] <= 0 || prices[i-1] <= 0 {
			continue
		}
		returns = append(returns, math.Log(prices[i]/prices[i-1]))
	}
	if len(returns) < 1 {
		return nil
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	hv := math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)
	return &hv
}

// SolveImpliedVolatilityWithFallback runs the Newton-Raphson solve and
// degrades gracefully when it fails: retry seeded with historical
// volatility, then historical volatility itself, then the configured initial
// guess. The returned ImpliedVolatility is nil only when input validation
// rejected the request.
func SolveImpliedVolatilityWithFallback(marketPrice float64, p Params, historicalPrices []float64, cfg SolverConfig) SolverResult {
	cfg = cfg.withDefaults()

	res := SolveImpliedVolatility(marketPrice, p, cfg)
	if res.Converged {
		return res
	}
	if res.ImpliedVolatility == nil {
		// Hard validation failure; no fallback can price this leg.
		return res
	}

	hv := HistoricalVolatility(historicalPrices, DefaultHVLookbackDays)
	if hv != nil && *hv > 0 {
		seeded := cfg
		seeded.InitialGuess = *hv
		if retry := SolveImpliedVolatility(marketPrice, p, seeded); retry.Converged {
			return retry
		}
		return SolverResult{
			ImpliedVolatility: hv,
			Iterations:        res.Iterations,
			Error:             res.Error,
			UsedFallback:      true,
			FallbackType:      FallbackHistorical,
		}
	}

	guess := cfg.InitialGuess
	return SolverResult{
		ImpliedVolatility: &guess,
		Iterations:        res.Iterations,
		Error:             res.Error,
		UsedFallback:      true,
		FallbackType:      FallbackInitial,
	}
}
