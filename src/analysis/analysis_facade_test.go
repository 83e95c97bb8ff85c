package analysis

import (
	"math"
	"testing"

	"sentiment-pulse/src/helpers"
	"sentiment-pulse/src/logger"
	"sentiment-pulse/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFacade(windows ...string) *AnalysisFacade {
	cfg := &models.MConfig{}
	cfg.Feed.BarWindows = windows
	return NewAnalysisFacade(cfg, logger.NewNop("analysis"))
}

func TestResampleTicks_AlignsAndSorts(t *testing.T) {
	r := &TimeSeriesResampler{}
	ticks := []models.MTick{
		{Price: 3, Timestamp: 12_500},
		{Price: 1, Timestamp: 10_100},
		{Price: 2, Timestamp: 10_900},
		{Price: 4, Timestamp: 31_000},
	}

	groups := r.ResampleTicks(ticks, 10_000)
	require.Len(t, groups, 2)

	assert.Equal(t, int64(10_000), groups[0].StartTime)
	assert.Equal(t, int64(20_000), groups[0].EndTime)
	assert.Equal(t, []float64{1, 2, 3}, []float64{groups[0].Ticks[0].Price, groups[0].Ticks[1].Price, groups[0].Ticks[2].Price})

	assert.Equal(t, int64(30_000), groups[1].StartTime)
	assert.Len(t, groups[1].Ticks, 1)

	assert.Empty(t, r.ResampleTicks(nil, 1000))
	assert.Empty(t, r.ResampleTicks(ticks, 0))
}

func TestBuildBars(t *testing.T) {
	a := newFacade("10s")
	ticks := []models.MTick{
		{Price: 100, Volume: 1, Timestamp: 0},
		{Price: 104, Volume: 2, Timestamp: 5_000},
		{Price: 101, Volume: 3, Timestamp: 9_999},
		{Price: 110, Volume: 4, Timestamp: 10_000},
	}

	bars, err := a.BuildBars("AAPL", ticks, "10s")
	require.NoError(t, err)
	require.Len(t, bars, 2)

	first := bars[0]
	assert.Equal(t, "AAPL", first.Symbol)
	assert.Equal(t, 100.0, first.Open)
	assert.Equal(t, 104.0, first.High)
	assert.Equal(t, 100.0, first.Low)
	assert.Equal(t, 101.0, first.Close)
	assert.Equal(t, 6.0, first.Volume)
	assert.Equal(t, 3, first.DataPoints)
	assert.Equal(t, 0.0, first.PercentChange)

	assert.InDelta(t, (110.0-101.0)/101.0*100, bars[1].PercentChange, 1e-9)
}

func TestBuildBars_UnknownWindow(t *testing.T) {
	a := newFacade()
	_, err := a.BuildBars("AAPL", nil, "3h")
	assert.True(t, helpers.IsValidation(err))

	assert.Equal(t, []string{DefaultBarWindow}, a.Windows())
}

func TestSessionStats(t *testing.T) {
	stats := SessionStats([]models.MTick{
		{Price: 10, Volume: 1},
		{Price: 20, Volume: 2},
		{Price: 30, Volume: 3},
	})

	assert.Equal(t, 30.0, stats.High)
	assert.Equal(t, 10.0, stats.Low)
	assert.InDelta(t, 20, stats.Mean, 1e-9)
	assert.Equal(t, 6.0, stats.Volume)
	assert.Equal(t, 3, stats.DataPoints)
	assert.InDelta(t, math.Sqrt(200.0/3), stats.StdDev, 1e-9)
	assert.Greater(t, stats.ZScore, 0.0)

	assert.Equal(t, models.MSessionStats{}, SessionStats(nil))
}
