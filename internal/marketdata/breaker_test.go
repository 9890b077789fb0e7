package marketdata

import (
	"errors"
	"testing"
	"time"

	"github.com/eddiefleurent/schrute_greeks/internal/models"
	"github.com/sony/gobreaker"
)

// failingProvider always errors, to drive the breaker open.
type failingProvider struct {
	calls int
	err   error
}

var _ Provider = (*failingProvider)(nil)

func (f *failingProvider) GetQuote(symbol string) (*Quote, error) {
	f.calls++
	return nil, f.err
}

func (f *failingProvider) GetOptionQuote(symbol string, strike float64, optType models.OptionType, dte int) (*OptionQuote, error) {
	f.calls++
	return nil, f.err
}

func (f *failingProvider) GetHistoricalCloses(symbol string, days int) ([]float64, error) {
	f.calls++
	return nil, f.err
}

func testBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  3,
		FailureRatio: 0.6,
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	failing := &failingProvider{err: errors.New("connection refused")}
	bp := NewBreakerProviderWithSettings(failing, testBreakerSettings())

	for i := 0; i < 3; i++ {
		if _, err := bp.GetQuote("NIFTY"); err == nil {
			t.Fatal("expected error from failing provider")
		}
	}

	// Breaker should now be open: calls fail fast without reaching the
	// underlying provider.
	callsBefore := failing.calls
	_, err := bp.GetQuote("NIFTY")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected gobreaker.ErrOpenState, got: %v", err)
	}
	if failing.calls != callsBefore {
		t.Errorf("open breaker still reached the provider (%d calls)", failing.calls-callsBefore)
	}
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	sim := NewSimProvider(22000, 0.07)
	bp := NewBreakerProvider(sim)

	q, err := bp.GetQuote("NIFTY")
	if err != nil {
		t.Fatalf("GetQuote through breaker: %v", err)
	}
	if q == nil || q.Last <= 0 {
		t.Errorf("bad quote through breaker: %+v", q)
	}

	oq, err := bp.GetOptionQuote("NIFTY", 22000, models.OptionTypePut, 21)
	if err != nil {
		t.Fatalf("GetOptionQuote through breaker: %v", err)
	}
	if oq.OptionType != models.OptionTypePut {
		t.Errorf("option type mangled through breaker: %+v", oq)
	}

	closes, err := bp.GetHistoricalCloses("NIFTY", 10)
	if err != nil {
		t.Fatalf("GetHistoricalCloses through breaker: %v", err)
	}
	if len(closes) != 10 {
		t.Errorf("got %d closes, expected 10", len(closes))
	}
}

func TestRetryProviderRetriesTransient(t *testing.T) {
	failing := &failingProvider{err: errors.New("502 server error")}
	rp := NewRetryProvider(failing, RetryConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})

	_, err := rp.GetQuote("NIFTY")
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if failing.calls != 3 {
		t.Errorf("provider called %d times, expected 3 (1 + 2 retries)", failing.calls)
	}
}

func TestRetryProviderStopsOnPermanentError(t *testing.T) {
	failing := &failingProvider{err: errors.New("unknown symbol")}
	rp := NewRetryProvider(failing, RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})

	_, err := rp.GetOptionQuote("NIFTY", 22000, models.OptionTypeCall, 30)
	if err == nil {
		t.Fatal("expected error")
	}
	if failing.calls != 1 {
		t.Errorf("permanent error retried %d times, expected single call", failing.calls)
	}
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		err       error
		transient bool
	}{
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("request timeout"), true},
		{errors.New("HTTP 503 Service Unavailable"), true},
		{errors.New("unknown symbol"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := isTransientError(tt.err); got != tt.transient {
			t.Errorf("isTransientError(%v) = %v, expected %v", tt.err, got, tt.transient)
		}
	}
}
