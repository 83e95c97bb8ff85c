package simulator

import (
	"math"
	"math/rand"
	"time"

	"sentiment-pulse/src/models"

	"github.com/shopspring/decimal"
)

const (
	candleVolatility = 0.02
	candleBias       = 0.48 // below 0.5 gives a slight upward drift
)

// round2 rounds to cents the way quotes are displayed.
func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// -----------------------------------------------------------------------------

// FallbackQuote generates a plausible quote when the upstream cannot answer.
func FallbackQuote(symbol string, now time.Time, r *rand.Rand) models.MQuote {
	base := decimal.NewFromFloat(150 + r.Float64()*50).Round(2)
	at := func(offset float64) float64 {
		f, _ := base.Add(decimal.NewFromFloat(offset)).Float64()
		return f
	}

	return models.MQuote{
		Symbol:        symbol,
		CurrentPrice:  at(0),
		Change:        2.5,
		PercentChange: 1.5,
		High:          at(5),
		Low:           at(-2),
		Open:          at(-1),
		PreviousClose: at(-2.5),
		Timestamp:     now.Unix(),
		Source:        models.SourceSimulated,
	}
}

// -----------------------------------------------------------------------------

// FallbackCandles generates one daily bar per entry in days, random walking
// with a slight upward bias so that the final close equals base. Without days
// it still returns one bar, dated today (UTC).
func FallbackCandles(symbol, resolution string, base float64, days []time.Time, r *rand.Rand) models.MCandles {
	if base <= 0 {
		base = DefaultPrice
	}
	if len(days) == 0 {
		now := time.Now().UTC()
		days = []time.Time{time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)}
	}
	n := len(days)
	out := models.MCandles{
		Symbol:     symbol,
		Resolution: resolution,
		Status:     "ok",
		Source:     models.SourceSimulated,
		Close:      make([]float64, 0, n),
		High:       make([]float64, 0, n),
		Low:        make([]float64, 0, n),
		Open:       make([]float64, 0, n),
		Timestamps: make([]int64, 0, n),
		Volume:     make([]float64, 0, n),
	}
	vol := base * candleVolatility
	current := base*0.9 + r.Float64()*base*0.1
	for i, day := range days {
		open := current
		current += (r.Float64() - candleBias) * vol
		if i == n-1 {
			current = base
		}
		high := math.Max(open, current) + r.Float64()*vol*0.5
		low := math.Min(open, current) - r.Float64()*vol*0.5

		out.Open = append(out.Open, round2(open))
		out.Close = append(out.Close, round2(current))
		out.High = append(out.High, round2(high))
		out.Low = append(out.Low, round2(math.Max(low, 0.01)))
		out.Timestamps = append(out.Timestamps, day.Unix())
		out.Volume = append(out.Volume, math.Floor(1e6+r.Float64()*4e6))
	}

	return out
}
