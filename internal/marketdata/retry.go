package marketdata

import (
	"crypto/rand"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/eddiefleurent/schrute_greeks/internal/models"
)

// RetryConfig tunes the retrying provider wrapper.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig suits an interactive dashboard: quick retries, short cap.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:     3,
	InitialBackoff: 250 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
}

// RetryProvider wraps a Provider and retries transient failures with
// exponential backoff and jitter. Permanent errors are returned immediately.
type RetryProvider struct {
	provider Provider
	config   RetryConfig
}

// Ensure RetryProvider implements Provider at compile time.
var _ Provider = (*RetryProvider)(nil)

// NewRetryProvider wraps provider with retry behavior.
func NewRetryProvider(provider Provider, config ...RetryConfig) *RetryProvider {
	cfg := DefaultRetryConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	return &RetryProvider{provider: provider, config: cfg}
}

func retryCall[T any](r *RetryProvider, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	backoff := r.config.InitialBackoff

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}
		lastErr = err

		if !isTransientError(err) || attempt == r.config.MaxRetries {
			break
		}
		time.Sleep(backoff)
		backoff = r.nextBackoff(backoff)
	}
	return zero, lastErr
}

func (r *RetryProvider) nextBackoff(current time.Duration) time.Duration {
	backoff := time.Duration(float64(current) * 1.5)
	if backoff > r.config.MaxBackoff {
		backoff = r.config.MaxBackoff
	}

	maxJitter := int64(backoff / 4)
	if maxJitter > 0 {
		jitterVal, err := rand.Int(rand.Reader, big.NewInt(maxJitter))
		if err != nil {
			log.Printf("Failed to generate jitter: %v", err)
		} else {
			backoff += time.Duration(jitterVal.Int64())
		}
	}
	return backoff
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	transientPatterns := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"server error",
		"rate limit",
		"429", // HTTP 429 Too Many Requests
		"502", // HTTP 502 Bad Gateway
		"503", // HTTP 503 Service Unavailable
		"504", // HTTP 504 Gateway Timeout
		"network",
		"dns",
		"tcp",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// GetQuote retries transient failures of the underlying call.
func (r *RetryProvider) GetQuote(symbol string) (*Quote, error) {
	return retryCall(r, func() (*Quote, error) { return r.provider.GetQuote(symbol) })
}

// GetOptionQuote retries transient failures of the underlying call.
func (r *RetryProvider) GetOptionQuote(symbol string, strike float64, optType models.OptionType, daysToExpiry int) (*OptionQuote, error) {
	return retryCall(r, func() (*OptionQuote, error) {
		return r.provider.GetOptionQuote(symbol, strike, optType, daysToExpiry)
	})
}

// GetHistoricalCloses retries transient failures of the underlying call.
func (r *RetryProvider) GetHistoricalCloses(symbol string, days int) ([]float64, error) {
	return retryCall(r, func() ([]float64, error) {
		return r.provider.GetHistoricalCloses(symbol, days)
	})
}
