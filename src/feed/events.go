package feed

import "sentiment-pulse/src/models"

// EventKind tells listeners what changed.
type EventKind int

const (
	EventTick EventKind = iota
	EventState
	EventSelect
)

// Event is emitted to listeners after the aggregator lock is released.
type Event struct {
	Kind   EventKind
	State  models.FeedState
	Prev   models.FeedState // EventState only
	Symbol string           // tick symbol or newly selected symbol
	Source string           // EventTick only
	Tick   models.MTick     // EventTick only
}

// Listener receives aggregator events. It runs on the goroutine that caused
// the event and must not block.
type Listener func(Event)
