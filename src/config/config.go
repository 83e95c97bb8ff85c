package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"sentiment-pulse/src/helpers"
	"sentiment-pulse/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvFinnhubAPIKey = "FINNHUB_API_KEY"
	EnvDatabaseURL   = "DATABASE_URL"

	DefaultHistorySize     = 100
	DefaultSimIntervalMs   = 1000
	DefaultSimVolatility   = 0.005
	MaxSimVolatility       = 0.01
	DefaultWSURL           = "wss://ws.finnhub.io"
	DefaultRestURL         = "https://finnhub.io/api/v1"
	DefaultChartLookback   = 30
	DefaultReconnectPeriod = 30
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, &helpers.ConfigurationError{PulseError: helpers.PulseError{
			Message: fmt.Sprintf("failed to read config file '%s'", configPath), Cause: err}}
	}

	// 2. Pull secrets from .env when present, the process env wins
	_ = godotenv.Load()

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse decodes YAML bytes, applies defaults and environment overrides and validates.
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, &helpers.ConfigurationError{PulseError: helpers.PulseError{
			Message: "failed to parse config from YAML", Cause: err}}
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, &helpers.ConfigurationError{PulseError: helpers.PulseError{
			Message: "config validation failed", Cause: err}}
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = 10
	}
	if c.Finnhub.WSURL == "" {
		c.Finnhub.WSURL = DefaultWSURL
	}
	if c.Finnhub.RestURL == "" {
		c.Finnhub.RestURL = DefaultRestURL
	}
	if c.Feed.HistorySize == 0 {
		c.Feed.HistorySize = DefaultHistorySize
	}
	if c.Feed.Simulation.IntervalMs == 0 {
		c.Feed.Simulation.IntervalMs = DefaultSimIntervalMs
	}
	if c.Feed.Simulation.Volatility == 0 {
		c.Feed.Simulation.Volatility = DefaultSimVolatility
	}
	if c.Feed.Reconnect.IntervalSeconds == 0 {
		c.Feed.Reconnect.IntervalSeconds = DefaultReconnectPeriod
	}
	if c.Feed.ChartLookback == 0 {
		c.Feed.ChartLookback = DefaultChartLookback
	}
	if c.Feed.ActiveSymbol == "" && len(c.Feed.Catalog) > 0 {
		c.Feed.ActiveSymbol = c.Feed.Catalog[0].Symbol
	}
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv() {
	if key := strings.TrimSpace(os.Getenv(EnvFinnhubAPIKey)); key != "" {
		c.Finnhub.APIKey = key
	}
	if dsn := strings.TrimSpace(os.Getenv(EnvDatabaseURL)); dsn != "" {
		c.Storage.DBConnectionString = dsn
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535 || c.GrpcPort == c.Port) {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// Storage
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	case "":
		return fmt.Errorf("database type cannot be empty")
	default:
		return fmt.Errorf("unsupported database type '%s'", c.Storage.DBType)
	}

	// Network
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Feed
	if len(c.Feed.Catalog) == 0 {
		return fmt.Errorf("feed catalog must contain at least one symbol")
	}
	seen := make(map[string]bool, len(c.Feed.Catalog))
	for i, entry := range c.Feed.Catalog {
		if entry.Symbol == "" {
			return fmt.Errorf("catalog entry %d must have a symbol", i)
		}
		if seen[entry.Symbol] {
			return fmt.Errorf("catalog symbol '%s' is listed twice", entry.Symbol)
		}
		if entry.SeedPrice < 0 {
			return fmt.Errorf("catalog symbol '%s' has a negative seed price", entry.Symbol)
		}
		seen[entry.Symbol] = true
	}
	if !seen[c.Feed.ActiveSymbol] {
		return fmt.Errorf("active symbol '%s' is not in the catalog", c.Feed.ActiveSymbol)
	}
	if c.Feed.HistorySize <= 1 {
		return fmt.Errorf("history size must be greater than 1")
	}
	if c.Feed.Simulation.IntervalMs <= 0 {
		return fmt.Errorf("simulation interval must be greater than 0")
	}
	if c.Feed.Simulation.Volatility <= 0 || c.Feed.Simulation.Volatility > MaxSimVolatility {
		return fmt.Errorf("simulation volatility must be in (0, %.2f]", MaxSimVolatility)
	}
	if c.Feed.Reconnect.IntervalSeconds <= 0 {
		return fmt.Errorf("reconnect interval must be greater than 0")
	}
	if c.Feed.Reconnect.MaxAttempts < 0 {
		return fmt.Errorf("reconnect max attempts cannot be negative")
	}
	for i, window := range c.Feed.BarWindows {
		if _, err := time.ParseDuration(window); err != nil {
			return fmt.Errorf("bar window %d ('%s') is not a duration", i, window)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// CatalogSymbols returns the configured symbols in catalog order.
func (c *Config) CatalogSymbols() []string {
	symbols := make([]string, 0, len(c.Feed.Catalog))
	for _, entry := range c.Feed.Catalog {
		symbols = append(symbols, entry.Symbol)
	}
	return symbols
}

// -----------------------------------------------------------------------------

// SimulationInterval returns the simulator period as a duration.
func (c *Config) SimulationInterval() time.Duration {
	return time.Duration(c.Feed.Simulation.IntervalMs) * time.Millisecond
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML, secrets stay in the environment
	out := *c.MConfig
	out.Finnhub.APIKey = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
