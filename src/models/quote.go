package models

const (
	SourceFinnhub   = "finnhub"
	SourceSimulated = "simulated"
)

// MQuote is a point-in-time quote snapshot.
type MQuote struct {
	Symbol        string  `json:"symbol"`
	CurrentPrice  float64 `json:"c"`
	Change        float64 `json:"d"`
	PercentChange float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"` // seconds since epoch
	Source        string  `json:"source"`
}

// MCandles is a column-oriented candle series as returned by the upstream API.
type MCandles struct {
	Symbol     string    `json:"symbol"`
	Resolution string    `json:"resolution"`
	Close      []float64 `json:"c"`
	High       []float64 `json:"h"`
	Low        []float64 `json:"l"`
	Open       []float64 `json:"o"`
	Status     string    `json:"s"`
	Timestamps []int64   `json:"t"`
	Volume     []float64 `json:"v"`
	Source     string    `json:"source"`
}

// Len returns the number of bars in the series.
func (c *MCandles) Len() int {
	return len(c.Timestamps)
}

// MChart bundles a quote with its recent candles.
type MChart struct {
	Quote   MQuote   `json:"quote"`
	Candles MCandles `json:"candles"`
	Source  string   `json:"source"` // "finnhub" if either part is live
}
