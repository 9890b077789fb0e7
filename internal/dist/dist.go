// Package dist provides the standard normal distribution functions and the
// d1/d2 parameters used by the Black-Scholes model.
package dist

import "math"

// Abramowitz & Stegun 7.1.26 rational approximation coefficients.
// Maximum absolute error is about 7.5e-8.
const (
	a1    = 0.254829592
	a2    = -0.284496736
	a3    = 1.421413741
	a4    = -1.453152027
	a5    = 1.061405429
	gamma = 0.3275911
)

// PDF returns the standard normal probability density at x.
func PDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// CDF returns the standard normal cumulative probability P(X <= x) using the
// Abramowitz-Stegun approximation, evaluated on |x| and sign-corrected via
// CDF(-x) = 1 - CDF(x).
func CDF(x float64) float64 {
	sign := 1.0
	if x < 0 {
		sign = -1.0
		x = -x
	}

	// erf(x/sqrt(2)) via the rational approximation
	z := x / math.Sqrt2
	t := 1.0 / (1.0 + gamma*z)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-z*z)

	return 0.5 * (1.0 + sign*y)
}

// D1 returns the Black-Scholes d1 parameter
// [ln(S/K) + (r + sigma^2/2)T] / (sigma*sqrt(T)).
// At or past expiry it degenerates to the sign of the moneyness: +Inf when
// S > K, -Inf when S < K, 0 at the money.
func D1(s, k, t, r, sigma float64) float64 {
	if t <= 0 {
		switch {
		case s > k:
			return math.Inf(1)
		case s < k:
			return math.Inf(-1)
		default:
			return 0
		}
	}

	denom := sigma * math.Sqrt(t)
	if denom == 0 {
		return 0
	}
	return (math.Log(s/k) + (r+sigma*sigma/2)*t) / denom
}

// D2 returns d1 - sigma*sqrt(T). Past expiry d1 is returned unchanged.
func D2(d1, sigma, t float64) float64 {
	if t <= 0 {
		return d1
	}
	return d1 - sigma*math.Sqrt(t)
}
