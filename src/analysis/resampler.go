package analysis

import (
	"sort"

	"sentiment-pulse/src/models"
)

// TickWindow is a run of ticks falling into one aligned time window.
type TickWindow struct {
	Ticks     []models.MTick
	StartTime int64 // inclusive, millis
	EndTime   int64 // exclusive, millis
}

// TimeSeriesResampler groups ticks into fixed windows aligned to the epoch.
type TimeSeriesResampler struct{}

// -----------------------------------------------------------------------------

// ResampleTicks buckets ticks by floor(timestamp/window). Input order is arrival
// order, so a stable sort by timestamp is applied to a copy first. Empty
// windows are not emitted.
func (r *TimeSeriesResampler) ResampleTicks(ticks []models.MTick, windowMillis int64) []TickWindow {
	if len(ticks) == 0 || windowMillis <= 0 {
		return []TickWindow{}
	}

	sorted := make([]models.MTick, len(ticks))
	copy(sorted, ticks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	var results []TickWindow
	for _, t := range sorted {
		start, end := CalculateWindowBoundaries(t.Timestamp, windowMillis)
		if n := len(results); n > 0 && results[n-1].StartTime == start {
			results[n-1].Ticks = append(results[n-1].Ticks, t)
			continue
		}
		results = append(results, TickWindow{Ticks: []models.MTick{t}, StartTime: start, EndTime: end})
	}

	return results
}

// -----------------------------------------------------------------------------

// CalculateWindowBoundaries returns the aligned window containing ts.
func CalculateWindowBoundaries(ts int64, window int64) (int64, int64) {
	start := ts - (ts % window)
	if ts < 0 && ts%window != 0 {
		start -= window
	}
	return start, start + window
}
