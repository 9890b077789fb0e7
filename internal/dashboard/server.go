// Package dashboard exposes the pricing engine over a JSON HTTP API.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/eddiefleurent/schrute_greeks/internal/greeks"
	"github.com/eddiefleurent/schrute_greeks/internal/marketdata"
	"github.com/eddiefleurent/schrute_greeks/internal/models"
	"github.com/eddiefleurent/schrute_greeks/internal/pricing"
	"github.com/eddiefleurent/schrute_greeks/internal/storage"
	"github.com/eddiefleurent/schrute_greeks/internal/util"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// defaultDisplayTick is the exchange tick premiums are rounded to for display.
const defaultDisplayTick = 0.05

const defaultIVWindowHours = 24

type Server struct {
	router    *chi.Mux
	server    *http.Server
	calc      *greeks.Calculator
	provider  marketdata.Provider
	storage   storage.Interface
	logger    *logrus.Logger
	port      int
	authToken string
	tick      float64
}

type Config struct {
	Port        int
	AuthToken   string
	DisplayTick float64 // 0 means defaultDisplayTick
}

// LegRequest is the body of POST /api/greeks.
type LegRequest struct {
	models.OptionLegInput
}

// StraddleRequest is the body of POST /api/straddle. The server fetches spot,
// both leg premiums and historical closes itself.
type StraddleRequest struct {
	Symbol       string  `json:"symbol"`
	Strike       float64 `json:"strike"`
	DaysToExpiry int     `json:"days_to_expiry"`
}

// StrangleRequest is the body of POST /api/strangle.
type StrangleRequest struct {
	Symbol       string  `json:"symbol"`
	CallStrike   float64 `json:"call_strike"`
	PutStrike    float64 `json:"put_strike"`
	DaysToExpiry int     `json:"days_to_expiry"`
}

// LegResponse wraps a single-leg result with its guidance string.
type LegResponse struct {
	RequestID string        `json:"request_id"`
	Result    greeks.Result `json:"result"`
	Guidance  string        `json:"guidance"`
}

// CombinedResponse wraps a straddle/strangle result. Credit is the summed
// market premium rounded to the display tick.
type CombinedResponse struct {
	RequestID string                `json:"request_id"`
	Symbol    string                `json:"symbol"`
	Spot      float64               `json:"spot"`
	Credit    float64               `json:"credit"`
	Result    greeks.CombinedResult `json:"result"`
	Guidance  string                `json:"guidance"`
}

// IVHistoryResponse is the body of GET /api/iv/{symbol}.
type IVHistoryResponse struct {
	Symbol   string             `json:"symbol"`
	Latest   *models.IVReading  `json:"latest,omitempty"`
	Readings []models.IVReading `json:"readings"`
}

func NewServer(cfg Config, calc *greeks.Calculator, provider marketdata.Provider, store storage.Interface, logger *logrus.Logger) *Server {
	tick := cfg.DisplayTick
	if tick == 0 {
		tick = defaultDisplayTick
	}

	s := &Server{
		router:    chi.NewRouter(),
		calc:      calc,
		provider:  provider,
		storage:   store,
		logger:    logger,
		port:      cfg.Port,
		authToken: cfg.AuthToken,
		tick:      tick,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	if s.authToken != "" {
		s.router.Use(s.authMiddleware)
	}

	s.router.Post("/api/greeks", s.handleGreeks)
	s.router.Post("/api/straddle", s.handleStraddle)
	s.router.Post("/api/strangle", s.handleStrangle)
	s.router.Get("/api/iv/{symbol}", s.handleIVHistory)
	s.router.Get("/health", s.handleHealth)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if token != s.authToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infof("Starting dashboard server on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleGreeks(w http.ResponseWriter, r *http.Request) {
	var req LegRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.calc.Leg(req.OptionLegInput)

	s.writeJSON(w, LegResponse{
		RequestID: uuid.New().String(),
		Result:    result,
		Guidance:  result.RiskLevel.Guidance(),
	})
}

func (s *Server) handleStraddle(w http.ResponseWriter, r *http.Request) {
	var req StraddleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Symbol == "" || req.Strike <= 0 || req.DaysToExpiry < 0 {
		s.writeError(w, http.StatusBadRequest, "symbol, strike and days_to_expiry are required")
		return
	}

	ce, pe, spot, err := s.fetchLegs(r.Context(), req.Symbol, req.Strike, req.Strike, req.DaysToExpiry)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch straddle market data")
		s.writeError(w, http.StatusBadGateway, "market data unavailable")
		return
	}

	combined := s.calc.Straddle(ce, pe)
	s.recordIV(req.Symbol, combined.Combined)
	s.writeCombined(w, req.Symbol, spot, combined)
}

func (s *Server) handleStrangle(w http.ResponseWriter, r *http.Request) {
	var req StrangleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Symbol == "" || req.CallStrike <= 0 || req.PutStrike <= 0 || req.DaysToExpiry < 0 {
		s.writeError(w, http.StatusBadRequest, "symbol, call_strike, put_strike and days_to_expiry are required")
		return
	}

	ce, pe, spot, err := s.fetchLegs(r.Context(), req.Symbol, req.CallStrike, req.PutStrike, req.DaysToExpiry)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch strangle market data")
		s.writeError(w, http.StatusBadGateway, "market data unavailable")
		return
	}

	combined := s.calc.Strangle(ce, pe)
	s.recordIV(req.Symbol, combined.Combined)
	s.writeCombined(w, req.Symbol, spot, combined)
}

// fetchLegs pulls the spot quote, both option premiums and the historical
// closes concurrently, then assembles the two leg inputs.
func (s *Server) fetchLegs(ctx context.Context, symbol string, callStrike, putStrike float64, dte int) (ce, pe models.OptionLegInput, spot float64, err error) {
	var (
		quote   *marketdata.Quote
		ceQuote *marketdata.OptionQuote
		peQuote *marketdata.OptionQuote
		closes  []float64
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quote, err = s.provider.GetQuote(symbol)
		return err
	})
	g.Go(func() error {
		var err error
		ceQuote, err = s.provider.GetOptionQuote(symbol, callStrike, models.OptionTypeCall, dte)
		return err
	})
	g.Go(func() error {
		var err error
		peQuote, err = s.provider.GetOptionQuote(symbol, putStrike, models.OptionTypePut, dte)
		return err
	})
	g.Go(func() error {
		var err error
		closes, err = s.provider.GetHistoricalCloses(symbol, pricing.DefaultHVLookbackDays)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.OptionLegInput{}, models.OptionLegInput{}, 0, err
	}

	ce = models.OptionLegInput{
		Spot:             quote.Last,
		Strike:           callStrike,
		DaysToExpiry:     dte,
		MarketPrice:      ceQuote.Mid(),
		OptionType:       models.OptionTypeCall,
		HistoricalPrices: closes,
	}
	pe = models.OptionLegInput{
		Spot:             quote.Last,
		Strike:           putStrike,
		DaysToExpiry:     dte,
		MarketPrice:      peQuote.Mid(),
		OptionType:       models.OptionTypePut,
		HistoricalPrices: closes,
	}
	return ce, pe, quote.Last, nil
}

// recordIV persists the combined implied volatility when the solve produced
// one. Storage failures are logged but never fail the request.
func (s *Server) recordIV(symbol string, combined greeks.Result) {
	if combined.ImpliedVolatility == nil {
		return
	}

	reading := &models.IVReading{
		ID:        uuid.New().String(),
		Symbol:    symbol,
		IV:        *combined.ImpliedVolatility,
		Converged: combined.IVConverged,
		Timestamp: time.Now(),
	}
	if err := s.storage.StoreIVReading(reading); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to store IV reading")
	}
}

func (s *Server) handleIVHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	hours := defaultIVWindowHours
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "hours must be a positive integer")
			return
		}
		hours = parsed
	}

	now := time.Now()
	readings, err := s.storage.GetIVReadings(symbol, now.Add(-time.Duration(hours)*time.Hour), now)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load IV readings")
		s.writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	resp := IVHistoryResponse{Symbol: symbol, Readings: readings}
	if latest, err := s.storage.GetLatestIVReading(symbol); err == nil {
		resp.Latest = latest
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.logger.WithError(err).Error("Failed to load latest IV reading")
	}

	s.writeJSON(w, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	}
	s.writeJSON(w, health)
}

func (s *Server) writeCombined(w http.ResponseWriter, symbol string, spot float64, combined greeks.CombinedResult) {
	s.writeJSON(w, CombinedResponse{
		RequestID: uuid.New().String(),
		Symbol:    symbol,
		Spot:      spot,
		Credit:    util.RoundToTick(combined.Combined.MarketPrice, s.tick),
		Result:    combined,
		Guidance:  combined.Combined.RiskLevel.Guidance(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		s.logger.WithError(err).Error("Failed to encode error response")
	}
}
