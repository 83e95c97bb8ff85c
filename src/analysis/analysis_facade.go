package analysis

import (
	"time"

	"sentiment-pulse/src/analysis/core"
	"sentiment-pulse/src/helpers"
	"sentiment-pulse/src/logger"
	"sentiment-pulse/src/models"
)

const DefaultBarWindow = "10s"

type AnalysisFacade struct {
	Config           *models.MConfig
	WindowsMillisMap map[string]int64
	Resampler        *TimeSeriesResampler
	Logger           *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAnalysisFacade(cfg *models.MConfig, log *logger.Logger) *AnalysisFacade {
	windows := cfg.Feed.BarWindows
	if len(windows) == 0 {
		windows = []string{DefaultBarWindow}
	}

	windowsMap := make(map[string]int64, len(windows))
	for _, window := range windows {
		if dur, err := time.ParseDuration(window); err == nil && dur >= time.Millisecond {
			windowsMap[window] = dur.Milliseconds()
		}
	}

	return &AnalysisFacade{
		Config:           cfg,
		WindowsMillisMap: windowsMap,
		Resampler:        &TimeSeriesResampler{},
		Logger:           log,
	}
}

// -----------------------------------------------------------------------------

// Windows lists the configured bar windows.
func (a *AnalysisFacade) Windows() []string {
	out := make([]string, 0, len(a.WindowsMillisMap))
	for name := range a.WindowsMillisMap {
		out = append(out, name)
	}
	return out
}

// -----------------------------------------------------------------------------

// BuildBars turns a tick history into OHLCV bars for windowName. Each bar's
// percent change is measured against the previous bar's close.
func (a *AnalysisFacade) BuildBars(symbol string, ticks []models.MTick, windowName string) ([]models.MBar, error) {
	windowMillis, ok := a.WindowsMillisMap[windowName]
	if !ok {
		return nil, helpers.NewValidationError("unknown bar window '%s'", windowName)
	}

	groups := a.Resampler.ResampleTicks(ticks, windowMillis)
	bars := make([]models.MBar, 0, len(groups))

	prevClose := 0.0
	for _, g := range groups {
		prices := make([]float64, len(g.Ticks))
		volumes := make([]float64, len(g.Ticks))
		for i, t := range g.Ticks {
			prices[i] = t.Price
			volumes[i] = t.Volume
		}
		o := core.ComputeOHLCV(prices, volumes)

		bar := models.MBar{
			Symbol:     symbol,
			WindowName: windowName,
			Open:       o.Open,
			High:       o.High,
			Low:        o.Low,
			Close:      o.Close,
			Volume:     o.Volume,
			AvgPrice:   o.AvgPrice,
			StartTime:  g.StartTime,
			EndTime:    g.EndTime,
			DataPoints: len(g.Ticks),
		}
		if prevClose != 0 {
			bar.PercentChange = core.CalculateChangePercent(o.Close, prevClose)
		}
		prevClose = o.Close
		bars = append(bars, bar)
	}

	return bars, nil
}

// -----------------------------------------------------------------------------

// SessionStats summarises a tick history.
func SessionStats(ticks []models.MTick) models.MSessionStats {
	if len(ticks) == 0 {
		return models.MSessionStats{}
	}

	prices := make([]float64, len(ticks))
	volumes := make([]float64, len(ticks))
	for i, t := range ticks {
		prices[i] = t.Price
		volumes[i] = t.Volume
	}

	o := core.ComputeOHLCV(prices, volumes)
	mean, std := core.CalculateMeanStd(prices)

	return models.MSessionStats{
		High:       o.High,
		Low:        o.Low,
		Mean:       mean,
		StdDev:     std,
		Volume:     o.Volume,
		ZScore:     core.CalculateZScore(o.Close, mean, std),
		DataPoints: len(ticks),
	}
}
