package simulator

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"sentiment-pulse/src/helpers"
	"sentiment-pulse/src/interfaces"
	"sentiment-pulse/src/logger"
	"sentiment-pulse/src/models"
	"sentiment-pulse/src/utils"
)

const (
	SourceName = "simulator"

	// DefaultPrice continues a walk for a symbol that has no history yet.
	DefaultPrice = 150.0

	seedStep = 0.002
)

// -----------------------------------------------------------------------------
// Simulator produces a bounded random walk for the active symbol on a fixed
// interval. The sink passed to Start must also implement
// interfaces.IPriceOracle so the walk continues from the last known price.
// -----------------------------------------------------------------------------

type Simulator struct {
	interval   time.Duration
	volatility float64
	logger     *logger.Logger
	random     func() float64
	now        func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// -----------------------------------------------------------------------------

func NewSimulator(cfg *models.MConfig, log *logger.Logger) *Simulator {
	return &Simulator{
		interval:   time.Duration(cfg.Feed.Simulation.IntervalMs) * time.Millisecond,
		volatility: cfg.Feed.Simulation.Volatility,
		logger:     log,
		random:     rand.Float64,
		now:        time.Now,
	}
}

// -----------------------------------------------------------------------------

func (s *Simulator) Name() string {
	return SourceName
}

// -----------------------------------------------------------------------------

// Start begins ticking. Calling Start on a running simulator is a no-op.
func (s *Simulator) Start(ctx context.Context, sink interfaces.ITickSink, wg *sync.WaitGroup) error {
	oracle, ok := sink.(interfaces.IPriceOracle)
	if !ok {
		return helpers.NewValidationError("simulator sink %T does not expose prices", sink)
	}
	if s.interval <= 0 {
		return helpers.NewValidationError("simulator interval must be positive")
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("Simulator started (every %v, volatility %.4f)", s.interval, s.volatility)
		for {
			select {
			case <-runCtx.Done():
				sink.OnSourceClosed(SourceName, nil)
				return
			case <-ticker.C:
				sink.OnIncomingTick(SourceName, s.Next(oracle))
			}
		}
	}()

	return nil
}

// -----------------------------------------------------------------------------

// Stop cancels the walk and waits for the ticking goroutine to exit.
func (s *Simulator) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	s.logger.Info("Simulator stopped")
	return nil
}

// -----------------------------------------------------------------------------

// Next generates one tick for the oracle's active symbol:
// price = last + last*(r-0.5)*volatility, volume uniform in [0,100).
func (s *Simulator) Next(oracle interfaces.IPriceOracle) models.MTick {
	symbol := oracle.ActiveSymbol()
	last, ok := oracle.LastPrice(symbol)
	if !ok || last <= 0 {
		last = DefaultPrice
	}

	change := last * (s.random() - 0.5) * s.volatility
	return models.MTick{
		Price:     last + change,
		Symbol:    symbol,
		Timestamp: s.now().UnixMilli(),
		Volume:    math.Floor(s.random() * 100),
	}
}

// -----------------------------------------------------------------------------

// SeedPrice picks the starting price for a catalog entry's synthetic history.
func SeedPrice(entry models.MCatalogEntry) float64 {
	if entry.SeedPrice > 0 {
		return entry.SeedPrice
	}
	upper := strings.ToUpper(entry.Symbol)
	switch {
	case strings.Contains(upper, "BTC"):
		return 95000
	case strings.Contains(upper, "EUR"):
		return 1.05
	default:
		return DefaultPrice
	}
}

// -----------------------------------------------------------------------------

// SeedHistory builds n synthetic ticks ending one second before nowMillis,
// one second apart, walking at most 0.1% per step from seed.
func SeedHistory(symbol string, seed float64, n int, nowMillis int64, r *rand.Rand) []models.MTick {
	ticks := make([]models.MTick, 0, n)
	price := seed
	for i := n; i >= 1; i-- {
		price *= 1 + (r.Float64()-0.5)*seedStep
		ticks = append(ticks, models.MTick{
			Price:     price,
			Symbol:    symbol,
			Timestamp: nowMillis - int64(i)*utils.SeedStepMillis,
			Volume:    utils.SeedVolume,
		})
	}
	return ticks
}
