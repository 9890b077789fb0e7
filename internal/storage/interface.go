// Package storage persists solved implied volatility readings so the
// dashboard can show an IV history per symbol and seed historical-volatility
// fallbacks across restarts.
package storage

import (
	"time"

	"github.com/eddiefleurent/schrute_greeks/internal/models"
)

// Interface defines the contract for IV reading persistence.
//
// Implementations must be safe for concurrent use - the dashboard records
// readings from request handlers running in parallel.
type Interface interface {
	// StoreIVReading appends a reading and persists it.
	StoreIVReading(reading *models.IVReading) error

	// GetIVReadings returns readings for symbol within [start, end],
	// oldest first.
	GetIVReadings(symbol string, start, end time.Time) ([]models.IVReading, error)

	// GetLatestIVReading returns the most recent reading for symbol, or
	// ErrNotFound.
	GetLatestIVReading(symbol string) (*models.IVReading, error)

	// Save persists the current state to disk.
	Save() error

	// Load reads the persisted state from disk.
	Load() error
}

// NewStorage creates a new storage implementation (currently JSON-based).
func NewStorage(filepath string) (Interface, error) {
	return NewJSONStorage(filepath)
}

// Ensure JSONStorage implements Interface.
var _ Interface = (*JSONStorage)(nil)
