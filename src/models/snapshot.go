package models

// MSessionStats summarises the ticks currently held for a symbol.
type MSessionStats struct {
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	Volume     float64 `json:"volume"`
	ZScore     float64 `json:"z_score"` // latest price vs the held history
	DataPoints int     `json:"data_points"`
}

// MSnapshot is a read-only copy of one symbol's history plus derived values.
type MSnapshot struct {
	Symbol        string        `json:"symbol"`
	ActiveSymbol  string        `json:"active_symbol"`
	State         FeedState     `json:"state"`
	History       []MTick       `json:"history"`
	Latest        *MTick        `json:"latest"`
	Previous      *MTick        `json:"previous"`
	Delta         float64       `json:"delta"`
	PercentChange float64       `json:"percent_change"`
	MarketOpen    bool          `json:"market_open"`
	Stats         MSessionStats `json:"stats"`
}

// MBar is an OHLCV bar built from ticks over a fixed window.
type MBar struct {
	Symbol        string  `json:"symbol"`
	WindowName    string  `json:"window_name"` // e.g., "10s", "1m"
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	Volume        float64 `json:"volume"`
	AvgPrice      float64 `json:"avg_price"`
	PercentChange float64 `json:"percent_change"`
	StartTime     int64   `json:"start_time"`
	EndTime       int64   `json:"end_time"`
	DataPoints    int     `json:"data_points"`
}
