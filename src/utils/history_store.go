package utils

import (
	"sort"
	"sync"

	"sentiment-pulse/src/models"
)

// -----------------------------------------------------------------------------
// HistoryStore holds one bounded tick history per symbol.
// -----------------------------------------------------------------------------

type HistoryStore struct {
	streams  map[string]*RingBuffer
	capacity int
	mu       sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewHistoryStore(capacity int) *HistoryStore {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &HistoryStore{
		streams:  make(map[string]*RingBuffer),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Capacity returns the per-symbol history bound.
func (hs *HistoryStore) Capacity() int {
	return hs.capacity
}

// -----------------------------------------------------------------------------

// Append adds a tick to its symbol's history, creating the history on first use.
func (hs *HistoryStore) Append(tick models.MTick) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	buffer, ok := hs.streams[tick.Symbol]
	if !ok {
		buffer = NewRingBuffer(hs.capacity)
		hs.streams[tick.Symbol] = buffer
	}
	buffer.Append(tick)
}

// -----------------------------------------------------------------------------

// Seed replaces a symbol's history with ticks (oldest first). Only the newest
// Capacity() ticks are kept.
func (hs *HistoryStore) Seed(symbol string, ticks []models.MTick) {
	buffer := NewRingBuffer(hs.capacity)
	for _, t := range ticks {
		buffer.Append(t)
	}

	hs.mu.Lock()
	hs.streams[symbol] = buffer
	hs.mu.Unlock()
}

// -----------------------------------------------------------------------------

// GetAll returns a copy of the symbol's history, oldest first. nil if unknown.
func (hs *HistoryStore) GetAll(symbol string) []models.MTick {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	buffer, ok := hs.streams[symbol]
	if !ok {
		return nil
	}
	return buffer.GetAll()
}

// -----------------------------------------------------------------------------

// Last returns the symbol's newest tick.
func (hs *HistoryStore) Last(symbol string) (models.MTick, bool) {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	buffer, ok := hs.streams[symbol]
	if !ok {
		return models.MTick{}, false
	}
	return buffer.Last()
}

// -----------------------------------------------------------------------------

// LastTwo returns the symbol's newest tick and the one before it.
func (hs *HistoryStore) LastTwo(symbol string) (latest, previous models.MTick, ok1, ok2 bool) {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	buffer, ok := hs.streams[symbol]
	if !ok {
		return models.MTick{}, models.MTick{}, false, false
	}
	return buffer.LastTwo()
}

// -----------------------------------------------------------------------------

// Len returns the number of ticks held for symbol.
func (hs *HistoryStore) Len(symbol string) int {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	if buffer, ok := hs.streams[symbol]; ok {
		return buffer.Size()
	}
	return 0
}

// -----------------------------------------------------------------------------

// Symbols returns the tracked symbols in lexical order.
func (hs *HistoryStore) Symbols() []string {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	out := make([]string, 0, len(hs.streams))
	for sym := range hs.streams {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// -----------------------------------------------------------------------------

// Cleanup releases every history.
func (hs *HistoryStore) Cleanup() {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	hs.streams = make(map[string]*RingBuffer)
}
