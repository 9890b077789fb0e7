// Package pricing implements the Black-Scholes closed-form option pricer and
// the Newton-Raphson implied volatility solver. Every function is pure:
// failures surface as data, never as panics.
package pricing

import (
	"math"

	"github.com/eddiefleurent/schrute_greeks/internal/dist"
	"github.com/eddiefleurent/schrute_greeks/internal/models"
)

// daysPerYear converts annualized theta to the per-day decay the dashboard
// displays.
const daysPerYear = 365.0

// Params holds the Black-Scholes inputs for one option leg.
type Params struct {
	Spot         float64
	Strike       float64
	TimeToExpiry float64 // years
	RiskFreeRate float64 // annualized decimal
	Volatility   float64 // annualized decimal
	Type         models.OptionType
}

// Greeks bundles the theoretical price and the five sensitivities for a leg.
// Theta is per calendar day; Vega and Rho are per 1% move in volatility and
// rate respectively.
type Greeks struct {
	Price float64 `json:"price"`
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// Price returns the Black-Scholes theoretical price for the leg, floored at
// zero. At or past expiry the intrinsic value is returned.
func Price(p Params) float64 {
	if p.TimeToExpiry <= 0 {
		return p.Type.IntrinsicValue(p.Spot, p.Strike)
	}

	d1 := dist.D1(p.Spot, p.Strike, p.TimeToExpiry, p.RiskFreeRate, p.Volatility)
	d2 := dist.D2(d1, p.Volatility, p.TimeToExpiry)
	discount := math.Exp(-p.RiskFreeRate * p.TimeToExpiry)

	var price float64
	if p.Type == models.OptionTypePut {
		price = p.Strike*discount*dist.CDF(-d2) - p.Spot*dist.CDF(-d1)
	} else {
		price = p.Spot*dist.CDF(d1) - p.Strike*discount*dist.CDF(d2)
	}
	return math.Max(0, price)
}

// Delta returns the sensitivity of the price to a one point spot move:
// CDF(d1) for calls, CDF(d1)-1 for puts. At expiry it snaps to the
// exercise/no-exercise limits by sign of S-K.
func Delta(p Params) float64 {
	if p.TimeToExpiry <= 0 {
		return expiredDelta(p)
	}
	d1 := dist.D1(p.Spot, p.Strike, p.TimeToExpiry, p.RiskFreeRate, p.Volatility)
	if p.Type == models.OptionTypePut {
		return dist.CDF(d1) - 1
	}
	return dist.CDF(d1)
}

func expiredDelta(p Params) float64 {
	if p.Type == models.OptionTypePut {
		switch {
		case p.Spot < p.Strike:
			return -1
		case p.Spot > p.Strike:
			return 0
		default:
			return -0.5
		}
	}
	switch {
	case p.Spot > p.Strike:
		return 1
	case p.Spot < p.Strike:
		return 0
	default:
		return 0.5
	}
}

// Gamma returns PDF(d1) / (S*sigma*sqrt(T)); identical for calls and puts.
func Gamma(p Params) float64 {
	if p.TimeToExpiry <= 0 {
		return 0
	}
	denom := p.Spot * p.Volatility * math.Sqrt(p.TimeToExpiry)
	if denom == 0 {
		return 0
	}
	d1 := dist.D1(p.Spot, p.Strike, p.TimeToExpiry, p.RiskFreeRate, p.Volatility)
	return dist.PDF(d1) / denom
}

// Theta returns the per-day time decay of the option price.
func Theta(p Params) float64 {
	if p.TimeToExpiry <= 0 {
		return 0
	}
	d1 := dist.D1(p.Spot, p.Strike, p.TimeToExpiry, p.RiskFreeRate, p.Volatility)
	d2 := dist.D2(d1, p.Volatility, p.TimeToExpiry)
	return theta(p, d1, d2)
}

func theta(p Params, d1, d2 float64) float64 {
	decay := -(p.Spot * dist.PDF(d1) * p.Volatility) / (2 * math.Sqrt(p.TimeToExpiry))
	discount := math.Exp(-p.RiskFreeRate * p.TimeToExpiry)

	var annual float64
	if p.Type == models.OptionTypePut {
		annual = decay + p.RiskFreeRate*p.Strike*discount*dist.CDF(-d2)
	} else {
		annual = decay - p.RiskFreeRate*p.Strike*discount*dist.CDF(d2)
	}
	return annual / daysPerYear
}

// Vega returns the price change per 1% move in volatility; identical for
// calls and puts.
func Vega(p Params) float64 {
	if p.TimeToExpiry <= 0 {
		return 0
	}
	d1 := dist.D1(p.Spot, p.Strike, p.TimeToExpiry, p.RiskFreeRate, p.Volatility)
	return p.Spot * dist.PDF(d1) * math.Sqrt(p.TimeToExpiry) / 100
}

// Rho returns the price change per 1% move in the risk-free rate.
func Rho(p Params) float64 {
	if p.TimeToExpiry <= 0 {
		return 0
	}
	d1 := dist.D1(p.Spot, p.Strike, p.TimeToExpiry, p.RiskFreeRate, p.Volatility)
	d2 := dist.D2(d1, p.Volatility, p.TimeToExpiry)
	return rho(p, d2)
}

func rho(p Params, d2 float64) float64 {
	discount := math.Exp(-p.RiskFreeRate * p.TimeToExpiry)
	if p.Type == models.OptionTypePut {
		return -p.Strike * p.TimeToExpiry * discount * dist.CDF(-d2) / 100
	}
	return p.Strike * p.TimeToExpiry * discount * dist.CDF(d2) / 100
}

// AllGreeks computes the price and all five Greeks in one pass, sharing a
// single d1/d2 evaluation. Past expiry the price collapses to intrinsic
// value, delta snaps to its exercise limits and the remaining Greeks are 0.
func AllGreeks(p Params) Greeks {
	if p.TimeToExpiry <= 0 {
		return Greeks{
			Price: p.Type.IntrinsicValue(p.Spot, p.Strike),
			Delta: expiredDelta(p),
		}
	}

	d1 := dist.D1(p.Spot, p.Strike, p.TimeToExpiry, p.RiskFreeRate, p.Volatility)
	d2 := dist.D2(d1, p.Volatility, p.TimeToExpiry)
	discount := math.Exp(-p.RiskFreeRate * p.TimeToExpiry)

	g := Greeks{
		Theta: theta(p, d1, d2),
		Vega:  p.Spot * dist.PDF(d1) * math.Sqrt(p.TimeToExpiry) / 100,
		Rho:   rho(p, d2),
	}

	if p.Type == models.OptionTypePut {
		g.Price = math.Max(0, p.Strike*discount*dist.CDF(-d2)-p.Spot*dist.CDF(-d1))
		g.Delta = dist.CDF(d1) - 1
	} else {
		g.Price = math.Max(0, p.Spot*dist.CDF(d1)-p.Strike*discount*dist.CDF(d2))
		g.Delta = dist.CDF(d1)
	}

	if denom := p.Spot * p.Volatility * math.Sqrt(p.TimeToExpiry); denom != 0 {
		g.Gamma = dist.PDF(d1) / denom
	}

	return g
}
