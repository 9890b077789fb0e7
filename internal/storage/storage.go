package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/eddiefleurent/schrute_greeks/internal/models"
)

// maxReadingsPerSymbol bounds the file size; older readings roll off.
const maxReadingsPerSymbol = 1000

// JSONStorage persists IV readings to a single JSON file, guarded by a
// RWMutex so it is safe for concurrent handlers.
type JSONStorage struct {
	mu       sync.RWMutex
	filepath string
	data     *storageData
}

type storageData struct {
	Readings    map[string][]models.IVReading `json:"readings"`
	LastUpdated time.Time                     `json:"last_updated"`
}

// NewJSONStorage creates a JSON-backed store, loading existing data when the
// file is present.
func NewJSONStorage(filepath string) (*JSONStorage, error) {
	s := &JSONStorage{
		filepath: filepath,
		data: &storageData{
			Readings: make(map[string][]models.IVReading),
		},
	}

	if _, err := os.Stat(filepath); err == nil {
		if err := s.Load(); err != nil {
			return nil, fmt.Errorf("loading storage: %w", err)
		}
	}

	return s, nil
}

// Load reads the persisted state from disk.
func (s *JSONStorage) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filepath)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &s.data); err != nil {
		return err
	}
	if s.data.Readings == nil {
		s.data.Readings = make(map[string][]models.IVReading)
	}
	return nil
}

// Save persists the current state to disk atomically.
func (s *JSONStorage) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *JSONStorage) saveLocked() error {
	s.data.LastUpdated = time.Now()

	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}

	// Write to temp file first, then atomic rename.
	tmpFile := s.filepath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpFile, s.filepath)
}

// StoreIVReading appends a reading for its symbol and persists immediately.
func (s *JSONStorage) StoreIVReading(reading *models.IVReading) error {
	if reading == nil {
		return fmt.Errorf("nil reading")
	}
	if reading.Symbol == "" {
		return fmt.Errorf("reading has no symbol")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	readings := append(s.data.Readings[reading.Symbol], *reading)
	if len(readings) > maxReadingsPerSymbol {
		readings = readings[len(readings)-maxReadingsPerSymbol:]
	}
	s.data.Readings[reading.Symbol] = readings

	return s.saveLocked()
}

// GetIVReadings returns readings for symbol within [start, end], oldest first.
func (s *JSONStorage) GetIVReadings(symbol string, start, end time.Time) ([]models.IVReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.IVReading
	for _, r := range s.data.Readings[symbol] {
		if r.Timestamp.Before(start) || r.Timestamp.After(end) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// GetLatestIVReading returns the most recent reading for symbol.
func (s *JSONStorage) GetLatestIVReading(symbol string) (*models.IVReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	readings := s.data.Readings[symbol]
	if len(readings) == 0 {
		return nil, fmt.Errorf("no IV readings for %s: %w", symbol, ErrNotFound)
	}

	latest := readings[0]
	for _, r := range readings[1:] {
		if r.Timestamp.After(latest.Timestamp) {
			latest = r
		}
	}
	return &latest, nil
}
