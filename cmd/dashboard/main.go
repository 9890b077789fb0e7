package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eddiefleurent/schrute_greeks/internal/config"
	"github.com/eddiefleurent/schrute_greeks/internal/dashboard"
	"github.com/eddiefleurent/schrute_greeks/internal/greeks"
	"github.com/eddiefleurent/schrute_greeks/internal/marketdata"
	"github.com/eddiefleurent/schrute_greeks/internal/pricing"
	"github.com/eddiefleurent/schrute_greeks/internal/storage"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg.Environment.LogLevel)
	logger.Infof("Starting Greeks dashboard in %s mode", cfg.Environment.Mode)

	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		logger.Fatalf("Failed to open storage: %v", err)
	}

	provider, err := newProvider(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to build market data provider: %v", err)
	}

	calc := greeks.NewCalculator(greeks.Config{
		RiskFreeRate:   cfg.Pricing.RiskFreeRate,
		HVLookbackDays: cfg.Pricing.HVLookbackDays,
		DisableIVSolve: cfg.Pricing.DisableIVSolve,
		Solver: pricing.SolverConfig{
			MaxIterations: cfg.Pricing.Solver.MaxIterations,
			Tolerance:     cfg.Pricing.Solver.Tolerance,
			InitialGuess:  cfg.Pricing.Solver.InitialGuess,
			MinVolatility: cfg.Pricing.Solver.MinVolatility,
			MaxVolatility: cfg.Pricing.Solver.MaxVolatility,
		},
	})

	server := dashboard.NewServer(dashboard.Config{
		Port:      cfg.Server.Port,
		AuthToken: cfg.Server.AuthToken,
	}, calc, provider, store, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Fatalf("Server error: %v", err)
	case sig := <-sigChan:
		logger.Infof("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Shutdown error: %v", err)
	}
	if err := store.Save(); err != nil {
		logger.Errorf("Failed to flush storage: %v", err)
	}

	logger.Info("Dashboard stopped")
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}

// newProvider builds the market data chain. Paper mode runs against the
// simulator; both modes go through the retry and circuit breaker wrappers so
// the dashboard sees the same failure behavior either way.
func newProvider(cfg *config.Config, logger *logrus.Logger) (marketdata.Provider, error) {
	if !cfg.IsPaperTrading() {
		return nil, errors.New("live market data is not wired yet; set environment.mode to paper")
	}

	sim := marketdata.NewSimProvider(cfg.MarketData.BasePrice, cfg.Pricing.RiskFreeRate)
	logger.Infof("Using simulated quotes for %s around %.2f", cfg.MarketData.Symbol, cfg.MarketData.BasePrice)
	return marketdata.NewRetryProvider(marketdata.NewBreakerProvider(sim)), nil
}
