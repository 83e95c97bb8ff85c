package interfaces

import (
	"context"

	"sentiment-pulse/src/models"
)

// -----------------------------------------------------------------------------
// IMarketData provides quote and candle lookups. Implementations never fail:
// when the upstream is unavailable they return generated data marked as
// simulated.
// -----------------------------------------------------------------------------

type IMarketData interface {
	FetchQuote(ctx context.Context, symbol string) models.MQuote

	// -----------------------------------------------------------------------------

	FetchCandles(ctx context.Context, symbol, resolution string, from, to int64) models.MCandles

	// -----------------------------------------------------------------------------

	// FetchChart loads a quote and the last `days` daily candles together.
	FetchChart(ctx context.Context, symbol string, days int) models.MChart
}

// -----------------------------------------------------------------------------
// IDataExchanger pushes feed events to external listeners (dashboard clients).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	Broadcast(message *models.MFeedMessage)

	// -----------------------------------------------------------------------------

	Start() error

	// -----------------------------------------------------------------------------

	Stop() error
}
