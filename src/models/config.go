package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	GrpcHost string         `yaml:"grpc_host"`
	GrpcPort int            `yaml:"grpc_port"`
	Storage  MStorageConfig `yaml:"storage"`
	Network  MNetworkConfig `yaml:"network"`
	Finnhub  MFinnhubConfig `yaml:"finnhub"`
	Feed     MFeedConfig    `yaml:"feed"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	SeedDemoPosts      bool   `yaml:"seed_demo_posts"`
}

type MNetworkConfig struct {
	Proxies        []string `yaml:"proxies"`
	RequestTimeout int      `yaml:"timeout"`
	MaxRetries     int      `yaml:"retries"`
	UserAgent      string   `yaml:"user_agent"`
}

type MFinnhubConfig struct {
	APIKey  string `yaml:"api_key"` // Overridden by FINNHUB_API_KEY
	WSURL   string `yaml:"ws_url"`
	RestURL string `yaml:"rest_url"`
}

type MFeedConfig struct {
	Catalog       []MCatalogEntry   `yaml:"catalog"`
	ActiveSymbol  string            `yaml:"active_symbol"`
	HistorySize   int               `yaml:"history_size"`
	Simulation    MSimulationConfig `yaml:"simulation"`
	Reconnect     MReconnectConfig  `yaml:"reconnect"`
	BarWindows    []string          `yaml:"bar_windows"`
	ChartSymbols  []string          `yaml:"chart_symbols"`
	ChartLookback int               `yaml:"chart_lookback_days"`
}

type MCatalogEntry struct {
	Symbol    string  `yaml:"symbol" json:"symbol"`
	Label     string  `yaml:"label" json:"label"`
	SeedPrice float64 `yaml:"seed_price" json:"seed_price,omitempty"`
}

type MSimulationConfig struct {
	IntervalMs int     `yaml:"interval_ms"`
	Volatility float64 `yaml:"volatility"`
}

type MReconnectConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalSeconds int  `yaml:"interval_seconds"`
	MaxAttempts     int  `yaml:"max_attempts"` // 0 means unlimited
}
