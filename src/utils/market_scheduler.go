package utils

import (
	"sync"
	"time"

	"sentiment-pulse/src/logger"
)

// MarketScheduler keeps one trading calendar per tracked symbol.
type MarketScheduler struct {
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
	now       func() time.Time
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(symbols []string, l *logger.Logger) *MarketScheduler {
	ms := &MarketScheduler{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
		now:       time.Now,
	}
	ms.MapSymbolsToCalendars(symbols)
	return ms
}

// -----------------------------------------------------------------------------

// MapSymbolsToCalendars replaces the symbol to calendar mapping.
func (ms *MarketScheduler) MapSymbolsToCalendars(symbols []string) {
	calendars := make(map[string]*TradingCalendar, len(symbols))
	kinds := make(map[MarketKind]int)
	for _, symbol := range symbols {
		cal := GetCalendar(symbol)
		calendars[symbol] = cal
		kinds[cal.Kind]++
	}

	ms.mu.Lock()
	ms.Calendars = calendars
	ms.mu.Unlock()

	ms.Logger.Info("MarketScheduler: mapped %d symbols (exchange=%d crypto=%d forex=%d)",
		len(symbols), kinds[MarketExchange], kinds[MarketCrypto], kinds[MarketForex])
}

// -----------------------------------------------------------------------------

// CalendarFor returns the symbol's calendar, resolving unknown symbols on the fly.
func (ms *MarketScheduler) CalendarFor(symbol string) *TradingCalendar {
	ms.mu.RLock()
	cal, ok := ms.Calendars[symbol]
	ms.mu.RUnlock()
	if ok {
		return cal
	}
	return GetCalendar(symbol)
}

// -----------------------------------------------------------------------------

// IsOpen reports whether symbol's market is open right now.
func (ms *MarketScheduler) IsOpen(symbol string) bool {
	return ms.CalendarFor(symbol).IsOpenOnMinute(ms.now().UTC())
}
