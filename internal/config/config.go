// Package config provides configuration management for the pricing dashboard.
package config

import (
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Pricing defaults applied when the corresponding fields are unset.
const (
	defaultPort           = 8080
	defaultRiskFreeRate   = 0.07
	defaultHVLookbackDays = 30
	defaultMaxIterations  = 100
	defaultTolerance      = 0.0001
	defaultInitialGuess   = 0.20
	defaultMinVolatility  = 0.01
	defaultMaxVolatility  = 3.0
	defaultBasePrice      = 22000
	defaultStoragePath    = "iv_readings.json"
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Server      ServerConfig      `yaml:"server"`
	MarketData  MarketDataConfig  `yaml:"market_data"`
	Pricing     PricingConfig     `yaml:"pricing"`
	Storage     StorageConfig     `yaml:"storage"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	Mode     string `yaml:"mode"`      // paper | live
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// ServerConfig defines the HTTP server settings.
type ServerConfig struct {
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// MarketDataConfig defines the quote source settings.
type MarketDataConfig struct {
	Symbol    string  `yaml:"symbol"`
	BasePrice float64 `yaml:"base_price"` // paper-mode simulation anchor
}

// PricingConfig defines risk-free rate and IV solver parameters.
type PricingConfig struct {
	RiskFreeRate   float64      `yaml:"risk_free_rate"`
	HVLookbackDays int          `yaml:"hv_lookback_days"`
	DisableIVSolve bool         `yaml:"disable_iv_solve"`
	Solver         SolverConfig `yaml:"solver"`
}

// SolverConfig defines Newton-Raphson solver overrides. Zero fields fall
// back to the engine defaults.
type SolverConfig struct {
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
	InitialGuess  float64 `yaml:"initial_guess"`
	MinVolatility float64 `yaml:"min_volatility"`
	MaxVolatility float64 `yaml:"max_volatility"`
}

// StorageConfig defines storage settings for IV reading data.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks that all configuration values are valid and consistent.
// Defaults are applied before validation.
func (c *Config) Validate() error {
	c.normalize()

	if c.Environment.Mode != "paper" && c.Environment.Mode != "live" {
		return fmt.Errorf("environment.mode must be 'paper' or 'live'")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.MarketData.Symbol == "" {
		return fmt.Errorf("market_data.symbol is required")
	}
	if c.MarketData.BasePrice <= 0 {
		return fmt.Errorf("market_data.base_price must be > 0")
	}

	if c.Pricing.RiskFreeRate < 0 || c.Pricing.RiskFreeRate >= 1 {
		return fmt.Errorf("pricing.risk_free_rate must be in [0, 1)")
	}
	if c.Pricing.HVLookbackDays < 2 {
		return fmt.Errorf("pricing.hv_lookback_days must be >= 2")
	}

	s := c.Pricing.Solver
	if s.MaxIterations <= 0 {
		return fmt.Errorf("pricing.solver.max_iterations must be > 0")
	}
	if s.Tolerance <= 0 {
		return fmt.Errorf("pricing.solver.tolerance must be > 0")
	}
	if s.InitialGuess <= 0 {
		return fmt.Errorf("pricing.solver.initial_guess must be > 0")
	}
	if s.MinVolatility <= 0 || s.MaxVolatility <= s.MinVolatility {
		return fmt.Errorf("pricing.solver volatility bounds must satisfy 0 < min < max")
	}
	if s.InitialGuess < s.MinVolatility || s.InitialGuess > s.MaxVolatility {
		return fmt.Errorf("pricing.solver.initial_guess (%.3f) must be within [%.3f, %.3f]",
			s.InitialGuess, s.MinVolatility, s.MaxVolatility)
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}

	return nil
}

// normalize fills unset fields with their defaults.
func (c *Config) normalize() {
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.MarketData.Symbol == "" {
		c.MarketData.Symbol = "NIFTY"
	}
	if c.MarketData.BasePrice == 0 {
		c.MarketData.BasePrice = defaultBasePrice
	}
	if c.Pricing.RiskFreeRate == 0 {
		c.Pricing.RiskFreeRate = defaultRiskFreeRate
	}
	if c.Pricing.HVLookbackDays == 0 {
		c.Pricing.HVLookbackDays = defaultHVLookbackDays
	}
	if c.Pricing.Solver.MaxIterations == 0 {
		c.Pricing.Solver.MaxIterations = defaultMaxIterations
	}
	if c.Pricing.Solver.Tolerance == 0 {
		c.Pricing.Solver.Tolerance = defaultTolerance
	}
	if c.Pricing.Solver.InitialGuess == 0 {
		c.Pricing.Solver.InitialGuess = defaultInitialGuess
	}
	if c.Pricing.Solver.MinVolatility == 0 {
		c.Pricing.Solver.MinVolatility = defaultMinVolatility
	}
	if c.Pricing.Solver.MaxVolatility == 0 {
		c.Pricing.Solver.MaxVolatility = defaultMaxVolatility
	}
	if c.Storage.Path == "" {
		c.Storage.Path = defaultStoragePath
	}
}

// IsPaperTrading returns true if the dashboard is configured for simulated
// market data.
func (c *Config) IsPaperTrading() bool {
	return c.Environment.Mode == "paper"
}
