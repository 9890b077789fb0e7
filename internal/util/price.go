// Package util provides common utility functions for price display.
package util

import "math"

// RoundToTick rounds x to the nearest exchange tick. A zero tick returns x
// unchanged; negative ticks are treated by magnitude. NaN and infinities
// pass through.
func RoundToTick(x, tick float64) float64 {
	tick = math.Abs(tick)
	if tick == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return math.Round(x/tick) * tick
}
