package interfaces

import (
	"context"
	"sync"

	"sentiment-pulse/src/models"
)

// -----------------------------------------------------------------------------
// ITickSink receives events from a tick source. Implementations must be safe
// for concurrent use since sources call it from their own goroutines.
// -----------------------------------------------------------------------------

type ITickSink interface {

	// OnSourceOpen is called once the source is established and subscribed.
	OnSourceOpen(source string)

	// -----------------------------------------------------------------------------

	// OnIncomingTick delivers a tick produced by the named source.
	OnIncomingTick(source string, tick models.MTick)

	// -----------------------------------------------------------------------------

	// OnSourceClosed reports that the source stopped. err is nil on a clean stop.
	OnSourceClosed(source string, err error)
}

// -----------------------------------------------------------------------------
// ITickSource is a push-based producer of ticks (live stream or simulator).
// -----------------------------------------------------------------------------

type ITickSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// Start establishes the source and begins pushing ticks into sink.
	// An error is returned only when the source could not be opened; failures
	// after that are reported through sink.OnSourceClosed.
	// wg is released when the source goroutines have fully stopped.
	Start(ctx context.Context, sink ITickSink, wg *sync.WaitGroup) error

	// -----------------------------------------------------------------------------

	// Stop terminates the source. Safe to call more than once.
	Stop() error
}

// -----------------------------------------------------------------------------
// IPriceOracle exposes the values a simulator needs to continue a walk.
// -----------------------------------------------------------------------------

type IPriceOracle interface {
	ActiveSymbol() string
	LastPrice(symbol string) (float64, bool)
}
