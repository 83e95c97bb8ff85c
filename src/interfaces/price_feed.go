package interfaces

import "sentiment-pulse/src/models"

// -----------------------------------------------------------------------------
// IPriceFeed is the read and control surface of the price feed aggregator.
// -----------------------------------------------------------------------------

type IPriceFeed interface {
	// GetSnapshot copies a symbol's history; "" means the active symbol.
	GetSnapshot(symbol string) (models.MSnapshot, error)

	// -----------------------------------------------------------------------------

	SelectSymbol(symbol string) error

	// -----------------------------------------------------------------------------

	// StartSimulation forces the feed onto locally generated prices.
	StartSimulation()

	// -----------------------------------------------------------------------------

	State() models.FeedState

	// -----------------------------------------------------------------------------

	ActiveSymbol() string

	// -----------------------------------------------------------------------------

	Symbols() []string

	// -----------------------------------------------------------------------------

	// HistorySizes maps every tracked symbol to its history length.
	HistorySizes() map[string]int
}
