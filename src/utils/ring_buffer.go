package utils

import (
	"sentiment-pulse/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of ticks.
// Appending to a full buffer overwrites the oldest tick (FIFO eviction).
// Not safe for concurrent use; HistoryStore guards it.
// -----------------------------------------------------------------------------

type RingBuffer struct {
	data     []models.MTick
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}

	return &RingBuffer{
		data:     make([]models.MTick, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append adds a tick, evicting the oldest one when full.
func (rb *RingBuffer) Append(tick models.MTick) {
	rb.data[rb.index] = tick
	rb.index = (rb.index + 1) % rb.capacity

	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// start returns the position of the oldest element.
func (rb *RingBuffer) start() int {
	if rb.size == rb.capacity {
		return rb.index
	}
	return 0
}

// -----------------------------------------------------------------------------

// GetAll returns all ticks in insertion order (oldest to newest)
func (rb *RingBuffer) GetAll() []models.MTick {
	result := make([]models.MTick, rb.size)
	startIdx := rb.start()
	for i := 0; i < rb.size; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}
	return result
}

// -----------------------------------------------------------------------------

// Last returns the newest tick.
func (rb *RingBuffer) Last() (models.MTick, bool) {
	if rb.size == 0 {
		return models.MTick{}, false
	}
	return rb.data[(rb.index-1+rb.capacity)%rb.capacity], true
}

// -----------------------------------------------------------------------------

// LastTwo returns the newest tick and the one before it. ok2 is false when
// fewer than two ticks are held.
func (rb *RingBuffer) LastTwo() (latest, previous models.MTick, ok1, ok2 bool) {
	latest, ok1 = rb.Last()
	if rb.size < 2 {
		return latest, models.MTick{}, ok1, false
	}
	return latest, rb.data[(rb.index-2+rb.capacity)%rb.capacity], ok1, true
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}
