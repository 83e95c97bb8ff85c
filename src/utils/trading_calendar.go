package utils

import (
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// MarketKind separates exchange-listed instruments from venues that trade around the clock.
type MarketKind int

const (
	MarketExchange MarketKind = iota
	MarketCrypto              // 24/7
	MarketForex               // Sunday 17:00 to Friday 17:00 New York
)

// suffix -> MIC (ISO 10383) for listings quoted as "TICKER.SUFFIX"
var suffixMICs = map[string]string{
	".L":  "xlon",
	".PA": "xpar",
	".DE": "xfra",
	".AS": "xams",
	".MI": "xmil",
	".MC": "xmad",
	".SW": "xswx",
	".TO": "xtse",
	".T":  "xtks",
	".HK": "xhkg",
	".AX": "xasx",
}

var cryptoVenues = []string{"BINANCE", "COINBASE", "KRAKEN", "BITFINEX", "BITSTAMP", "GEMINI", "HUOBI", "POLONIEX"}
var forexVenues = []string{"OANDA", "FXCM", "FOREX", "IC MARKETS", "FXPRO", "PEPPERSTONE", "SAXO"}

// TradingCalendar answers open/closed questions for one instrument.
type TradingCalendar struct {
	Calendar *calendar.Calendar
	Kind     MarketKind
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// ClassifySymbol derives the market kind from a "VENUE:TICKER" style symbol.
func ClassifySymbol(symbol string) MarketKind {
	venue, _, found := strings.Cut(strings.ToUpper(symbol), ":")
	if !found {
		return MarketExchange
	}
	for _, v := range cryptoVenues {
		if venue == v {
			return MarketCrypto
		}
	}
	for _, v := range forexVenues {
		if venue == v {
			return MarketForex
		}
	}
	return MarketExchange
}

// -----------------------------------------------------------------------------

func GetCalendar(symbol string) *TradingCalendar {
	nyLoc, err := time.LoadLocation("America/New_York")
	if err != nil {
		nyLoc = time.UTC
	}

	kind := ClassifySymbol(symbol)
	if kind != MarketExchange {
		return &TradingCalendar{Kind: kind, Timezone: nyLoc}
	}

	mic := "xnys" // Default US NYSE
	for suffix, code := range suffixMICs {
		if strings.HasSuffix(symbol, suffix) {
			mic = code
			break
		}
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		cal = calendar.GetCalendar("xnys")
	}
	if cal == nil {
		// Mon-Fri 09:30-16:00 New York
		return &TradingCalendar{Kind: kind, Fallback: true, Timezone: nyLoc}
	}

	return &TradingCalendar{Calendar: cal, Kind: kind, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	switch tc.Kind {
	case MarketCrypto:
		return true
	case MarketForex:
		return date.Weekday() != time.Saturday
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	switch tc.Kind {
	case MarketCrypto:
		return true
	case MarketForex:
		switch t.Weekday() {
		case time.Saturday:
			return false
		case time.Sunday:
			return t.Hour() >= 17
		case time.Friday:
			return t.Hour() < 17
		default:
			return true
		}
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}
		hour, minute := t.Hour(), t.Minute()
		return (hour > 9 || (hour == 9 && minute >= 30)) && hour < 16
	}

	return tc.Calendar.IsOpen(t)
}

// -----------------------------------------------------------------------------

// TradingDays lists the trading days in [from, to], oldest first, as midnight
// in the calendar's zone.
func (tc *TradingCalendar) TradingDays(from, to time.Time) []time.Time {
	loc := tc.Timezone
	if loc == nil {
		loc = time.UTC
	}
	from, to = from.In(loc), to.In(loc)

	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	var days []time.Time
	for !day.After(to) {
		if tc.IsTradingDay(day.Add(12 * time.Hour)) {
			days = append(days, day)
		}
		day = day.AddDate(0, 0, 1)
	}
	return days
}

// -----------------------------------------------------------------------------

// LastTradingDay returns the most recent trading day on or before t, as
// midnight in the calendar's zone. The search stops a month back and then
// settles on t's own day.
func (tc *TradingCalendar) LastTradingDay(t time.Time) time.Time {
	loc := tc.Timezone
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)

	today := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	day := today
	for i := 0; i < 31; i++ {
		if tc.IsTradingDay(day.Add(12 * time.Hour)) {
			return day
		}
		day = day.AddDate(0, 0, -1)
	}
	return today
}
