package marketdata

import (
	"errors"
	"log"
	"time"

	"github.com/eddiefleurent/schrute_greeks/internal/models"
	"github.com/sony/gobreaker"
)

// BreakerProvider wraps a Provider with circuit breaker functionality so a
// flapping quote source fails fast instead of stalling every request.
type BreakerProvider struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
}

// BreakerSettings configures circuit breaker behavior.
type BreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// execBreaker is a generic helper for circuit breaker wrapper methods.
func execBreaker[T any](breaker *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

// NewBreakerProvider creates a BreakerProvider with sensible defaults.
func NewBreakerProvider(provider Provider) *BreakerProvider {
	return NewBreakerProviderWithSettings(provider, BreakerSettings{
		MaxRequests:  3,                // Allow 3 requests when half-open
		Interval:     60 * time.Second, // Reset counts every minute
		Timeout:      30 * time.Second, // Open circuit for 30 seconds
		MinRequests:  5,                // Minimum requests before tripping
		FailureRatio: 0.6,              // Trip if 60% failure rate
	})
}

// NewBreakerProviderWithSettings creates a BreakerProvider with custom settings.
func NewBreakerProviderWithSettings(provider Provider, settings BreakerSettings) *BreakerProvider {
	gbSettings := gobreaker.Settings{
		Name:        "MarketDataCircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s state changed from %s to %s", name, from, to)
		},
	}

	return &BreakerProvider{
		provider: provider,
		breaker:  gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// Ensure BreakerProvider implements Provider at compile time.
var _ Provider = (*BreakerProvider)(nil)

// GetQuote wraps the underlying provider call with the circuit breaker.
func (b *BreakerProvider) GetQuote(symbol string) (*Quote, error) {
	return execBreaker(b.breaker, func() (*Quote, error) { return b.provider.GetQuote(symbol) })
}

// GetOptionQuote wraps the underlying provider call with the circuit breaker.
func (b *BreakerProvider) GetOptionQuote(symbol string, strike float64, optType models.OptionType, daysToExpiry int) (*OptionQuote, error) {
	return execBreaker(b.breaker, func() (*OptionQuote, error) {
		return b.provider.GetOptionQuote(symbol, strike, optType, daysToExpiry)
	})
}

// GetHistoricalCloses wraps the underlying provider call with the circuit breaker.
func (b *BreakerProvider) GetHistoricalCloses(symbol string, days int) ([]float64, error) {
	return execBreaker(b.breaker, func() ([]float64, error) {
		return b.provider.GetHistoricalCloses(symbol, days)
	})
}
