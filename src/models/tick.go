package models

// MTick is a single observed trade price for one symbol.
type MTick struct {
	Price     float64 `json:"price"`
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"timestamp"` // milliseconds since epoch
	Volume    float64 `json:"volume"`
}
