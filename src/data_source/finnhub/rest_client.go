package finnhub

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"sentiment-pulse/src/data_source/simulator"
	"sentiment-pulse/src/helpers"
	"sentiment-pulse/src/interfaces"
	"sentiment-pulse/src/logger"
	"sentiment-pulse/src/metrics"
	"sentiment-pulse/src/models"
	"sentiment-pulse/src/utils"

	"golang.org/x/sync/errgroup"
)

// Resolutions accepted by the candle endpoint.
var Resolutions = map[string]bool{
	"1": true, "5": true, "15": true, "30": true, "60": true, "D": true, "W": true, "M": true,
}

type quoteResponse struct {
	C  float64 `json:"c"`
	D  float64 `json:"d"`
	DP float64 `json:"dp"`
	H  float64 `json:"h"`
	L  float64 `json:"l"`
	O  float64 `json:"o"`
	PC float64 `json:"pc"`
	T  int64   `json:"t"`
}

// -----------------------------------------------------------------------------
// RestClient fetches quotes and candles. Every failure (missing key, 403/429,
// other HTTP errors, decode errors, "no_data") degrades to generated data
// marked as simulated; callers never see an error.
// -----------------------------------------------------------------------------

type RestClient struct {
	baseURL   string
	apiKey    string
	network   interfaces.INetworkManager
	scheduler *utils.MarketScheduler
	logger    *logger.Logger
	now       func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand

	quoteMu    sync.RWMutex
	lastQuotes map[string]float64
}

// -----------------------------------------------------------------------------

func NewRestClient(cfg *models.MConfig, network interfaces.INetworkManager, scheduler *utils.MarketScheduler, log *logger.Logger) *RestClient {
	return &RestClient{
		baseURL:    cfg.Finnhub.RestURL,
		apiKey:     cfg.Finnhub.APIKey,
		network:    network,
		scheduler:  scheduler,
		logger:     log,
		now:        time.Now,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
		lastQuotes: make(map[string]float64),
	}
}

// -----------------------------------------------------------------------------

// withRand serialises access to the shared random source.
func (c *RestClient) withRand(fn func(r *rand.Rand)) {
	c.randMu.Lock()
	defer c.randMu.Unlock()
	fn(c.rand)
}

// -----------------------------------------------------------------------------

func (c *RestClient) fetchQuoteLive(ctx context.Context, symbol string) (models.MQuote, error) {
	if c.apiKey == "" {
		return models.MQuote{}, helpers.NewValidationError("finnhub api key is not configured")
	}

	body, err := c.network.Get(ctx, c.baseURL+"/quote", map[string]string{
		"symbol": symbol,
		"token":  c.apiKey,
	})
	if err != nil {
		return models.MQuote{}, err
	}

	var r quoteResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return models.MQuote{}, helpers.NewMalformedMessageError("decode quote", err)
	}
	// Unknown symbols come back as an all-zero quote.
	if r.C == 0 && r.T == 0 {
		return models.MQuote{}, helpers.NewValidationError("no quote for '%s'", symbol)
	}

	return models.MQuote{
		Symbol:        symbol,
		CurrentPrice:  r.C,
		Change:        r.D,
		PercentChange: r.DP,
		High:          r.H,
		Low:           r.L,
		Open:          r.O,
		PreviousClose: r.PC,
		Timestamp:     r.T,
		Source:        models.SourceFinnhub,
	}, nil
}

// -----------------------------------------------------------------------------

// FetchQuote returns the upstream quote or a generated one.
func (c *RestClient) FetchQuote(ctx context.Context, symbol string) models.MQuote {
	start := time.Now()
	q, err := c.fetchQuoteLive(ctx, symbol)
	metrics.UpstreamLatency.WithLabelValues("quote").Observe(time.Since(start).Seconds())

	if err != nil {
		c.logFailure("quote", symbol, err)
		metrics.UpstreamRequests.WithLabelValues("quote", "fallback").Inc()
		c.withRand(func(r *rand.Rand) { q = simulator.FallbackQuote(symbol, c.now(), r) })
		return q
	}

	metrics.UpstreamRequests.WithLabelValues("quote", "live").Inc()
	c.quoteMu.Lock()
	c.lastQuotes[symbol] = q.CurrentPrice
	c.quoteMu.Unlock()
	return q
}

// -----------------------------------------------------------------------------

func (c *RestClient) fetchCandlesLive(ctx context.Context, symbol, resolution string, from, to int64) (models.MCandles, error) {
	if c.apiKey == "" {
		return models.MCandles{}, helpers.NewValidationError("finnhub api key is not configured")
	}

	body, err := c.network.Get(ctx, c.baseURL+"/stock/candle", map[string]string{
		"symbol":     symbol,
		"resolution": resolution,
		"from":       strconv.FormatInt(from, 10),
		"to":         strconv.FormatInt(to, 10),
		"token":      c.apiKey,
	})
	if err != nil {
		return models.MCandles{}, err
	}

	var candles models.MCandles
	if err := json.Unmarshal(body, &candles); err != nil {
		return models.MCandles{}, helpers.NewMalformedMessageError("decode candles", err)
	}
	if candles.Status != "ok" {
		return models.MCandles{}, helpers.NewValidationError("candles status '%s' for '%s'", candles.Status, symbol)
	}
	n := candles.Len()
	if n == 0 || len(candles.Close) != n || len(candles.Open) != n || len(candles.High) != n || len(candles.Low) != n {
		return models.MCandles{}, helpers.NewMalformedMessageError("candle columns differ in length", nil)
	}
	if len(candles.Volume) != n {
		candles.Volume = make([]float64, n)
	}

	candles.Symbol = symbol
	candles.Resolution = resolution
	candles.Source = models.SourceFinnhub
	return candles, nil
}

// -----------------------------------------------------------------------------

// fallbackCandles generates daily bars over the symbol's trading days in
// [from, to]. A range without trading days, such as a weekend, yields a single
// bar on the last trading day before to.
func (c *RestClient) fallbackCandles(symbol string, base float64, from, to int64) models.MCandles {
	cal := c.scheduler.CalendarFor(symbol)
	days := cal.TradingDays(time.Unix(from, 0), time.Unix(to, 0))
	if len(days) == 0 {
		days = []time.Time{cal.LastTradingDay(time.Unix(to, 0))}
	}

	var out models.MCandles
	c.withRand(func(r *rand.Rand) { out = simulator.FallbackCandles(symbol, "D", base, days, r) })
	return out
}

// -----------------------------------------------------------------------------

// FetchCandles returns upstream candles or a generated daily series ending at
// the last known quote for the symbol.
func (c *RestClient) FetchCandles(ctx context.Context, symbol, resolution string, from, to int64) models.MCandles {
	start := time.Now()
	candles, err := c.fetchCandlesLive(ctx, symbol, resolution, from, to)
	metrics.UpstreamLatency.WithLabelValues("candles").Observe(time.Since(start).Seconds())

	if err == nil {
		metrics.UpstreamRequests.WithLabelValues("candles", "live").Inc()
		return candles
	}

	c.logFailure("candles", symbol, err)
	metrics.UpstreamRequests.WithLabelValues("candles", "fallback").Inc()

	c.quoteMu.RLock()
	base, ok := c.lastQuotes[symbol]
	c.quoteMu.RUnlock()
	if !ok {
		base = simulator.DefaultPrice
	}
	return c.fallbackCandles(symbol, base, from, to)
}

// -----------------------------------------------------------------------------

// FetchChart loads the quote and the last `days` of daily candles in
// parallel. Generated candles end at the quote's price.
func (c *RestClient) FetchChart(ctx context.Context, symbol string, days int) models.MChart {
	to := c.now().Unix()
	from := to - int64(days)*24*60*60

	var quote models.MQuote
	var candles models.MCandles
	var candlesErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		quote = c.FetchQuote(gctx, symbol)
		return nil
	})
	g.Go(func() error {
		candles, candlesErr = c.fetchCandlesLive(gctx, symbol, "D", from, to)
		return nil
	})
	_ = g.Wait()

	if candlesErr != nil {
		c.logFailure("candles", symbol, candlesErr)
		metrics.UpstreamRequests.WithLabelValues("candles", "fallback").Inc()
		candles = c.fallbackCandles(symbol, quote.CurrentPrice, from, to)
	} else {
		metrics.UpstreamRequests.WithLabelValues("candles", "live").Inc()
	}

	source := models.SourceSimulated
	if quote.Source == models.SourceFinnhub || candles.Source == models.SourceFinnhub {
		source = models.SourceFinnhub
	}
	return models.MChart{Quote: quote, Candles: candles, Source: source}
}

// -----------------------------------------------------------------------------

func (c *RestClient) logFailure(kind, symbol string, err error) {
	switch {
	case helpers.IsRateLimited(err):
		c.logger.Warning("Finnhub %s for %s rate limited or forbidden, using generated data", kind, symbol)
	case helpers.IsValidation(err):
		c.logger.Debug("Finnhub %s for %s unavailable: %v", kind, symbol, err)
	default:
		c.logger.Error("Finnhub %s for %s failed: %v", kind, symbol, err)
	}
}
