package feed

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"sentiment-pulse/src/analysis"
	"sentiment-pulse/src/data_source/simulator"
	"sentiment-pulse/src/helpers"
	"sentiment-pulse/src/interfaces"
	"sentiment-pulse/src/logger"
	"sentiment-pulse/src/metrics"
	"sentiment-pulse/src/models"
	"sentiment-pulse/src/utils"
)

// ErrTornDown is returned by reads after Teardown released the histories.
var ErrTornDown = errors.New("price feed has been torn down")

// -----------------------------------------------------------------------------
// Aggregator owns every symbol history and the feed connection state. All
// mutations go through one mutex so a tick append and a state change are
// never observed half-done.
// -----------------------------------------------------------------------------

type Aggregator struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	history   *utils.HistoryStore
	scheduler *utils.MarketScheduler

	live interfaces.ITickSource // nil when no live credentials are configured
	sim  interfaces.ITickSource

	catalog map[string]bool
	symbols []string

	mu           sync.Mutex
	state        models.FeedState
	active       string
	closed       bool
	connecting   bool
	simRunning   bool
	reconnecting bool
	listeners    []Listener

	runCtx     context.Context
	runCancel  context.CancelFunc
	liveCancel context.CancelFunc
	wg         sync.WaitGroup

	now  func() time.Time
	rand *rand.Rand
}

// Option customises an Aggregator at construction.
type Option func(*Aggregator)

// WithClock overrides the wall clock used for seed timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithRand sets the random source used for seed histories.
func WithRand(r *rand.Rand) Option {
	return func(a *Aggregator) { a.rand = r }
}

// WithScheduler enables market_open in snapshots.
func WithScheduler(ms *utils.MarketScheduler) Option {
	return func(a *Aggregator) { a.scheduler = ms }
}

// -----------------------------------------------------------------------------

// NewAggregator builds the aggregator and pre-seeds a full synthetic history
// for every catalog symbol, so no history is ever observed empty.
func NewAggregator(cfg *models.MConfig, live, sim interfaces.ITickSource, log *logger.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		Config:  cfg,
		Logger:  log,
		history: utils.NewHistoryStore(cfg.Feed.HistorySize),
		live:    live,
		sim:     sim,
		catalog: make(map[string]bool, len(cfg.Feed.Catalog)),
		state:   models.FeedConnecting,
		active:  cfg.Feed.ActiveSymbol,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rand == nil {
		a.rand = rand.New(rand.NewSource(a.now().UnixNano()))
	}
	a.runCtx, a.runCancel = context.WithCancel(context.Background())

	nowMillis := a.now().UnixMilli()
	for _, entry := range cfg.Feed.Catalog {
		a.catalog[entry.Symbol] = true
		a.symbols = append(a.symbols, entry.Symbol)
		seed := simulator.SeedPrice(entry)
		a.history.Seed(entry.Symbol, simulator.SeedHistory(entry.Symbol, seed, a.history.Capacity(), nowMillis, a.rand))
	}
	if a.active == "" && len(a.symbols) > 0 {
		a.active = a.symbols[0]
	}
	metrics.FeedState.Set(float64(a.state))

	return a
}

// -----------------------------------------------------------------------------

// Subscribe registers a listener for tick, state and selection events.
func (a *Aggregator) Subscribe(l Listener) {
	a.mu.Lock()
	a.listeners = append(a.listeners, l)
	a.mu.Unlock()
}

// -----------------------------------------------------------------------------

// emit delivers events outside the lock.
func (a *Aggregator) emit(events ...Event) {
	if len(events) == 0 {
		return
	}
	a.mu.Lock()
	listeners := append([]Listener(nil), a.listeners...)
	a.mu.Unlock()

	for _, ev := range events {
		for _, l := range listeners {
			l(ev)
		}
	}
}

// -----------------------------------------------------------------------------

// transition is the single place the state changes. Caller holds a.mu.
func (a *Aggregator) transition(to models.FeedState) Event {
	from := a.state
	a.state = to
	metrics.FeedState.Set(float64(to))
	metrics.FeedTransitions.WithLabelValues(to.String()).Inc()
	a.Logger.Info("Feed state %s -> %s", from, to)
	return Event{Kind: EventState, State: to, Prev: from, Symbol: a.active}
}

// -----------------------------------------------------------------------------

func (a *Aggregator) liveName() string {
	if a.live == nil {
		return ""
	}
	return a.live.Name()
}

// -----------------------------------------------------------------------------

// Connect opens the live source and subscribes every catalog symbol. It never
// fails: an open error moves the feed straight to Simulated. The live
// connection lives until ctx is cancelled or Teardown. The returned state is
// the one reached when the open attempt finished.
func (a *Aggregator) Connect(ctx context.Context) models.FeedState {
	a.mu.Lock()
	if a.closed || a.connecting || a.state != models.FeedConnecting {
		state := a.state
		a.mu.Unlock()
		return state
	}
	a.connecting = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.connecting = false
		a.mu.Unlock()
	}()

	if a.live == nil {
		a.Logger.Warning("No live source configured, using simulated prices")
		a.fallBackToSimulation(models.FeedConnecting)
		return a.State()
	}

	liveCtx, cancel := mergeContexts(ctx, a.runCtx)
	a.mu.Lock()
	a.liveCancel = cancel
	a.mu.Unlock()

	if err := a.live.Start(liveCtx, a, &a.wg); err != nil {
		a.Logger.Warning("Live feed unavailable: %v", err)
		a.fallBackToSimulation(models.FeedConnecting)
		a.scheduleReconnect()
	}
	return a.State()
}

// -----------------------------------------------------------------------------

// OnSourceOpen implements interfaces.ITickSink.
func (a *Aggregator) OnSourceOpen(source string) {
	if source != a.liveName() {
		return
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	var events []Event
	stopSim := false
	switch {
	case a.state == models.FeedConnecting:
		events = append(events, a.transition(models.FeedLive))
	case a.state == models.FeedSimulated && a.reconnecting:
		events = append(events, a.transition(models.FeedLive))
		stopSim = a.simRunning
		a.simRunning = false
	}
	a.mu.Unlock()

	if stopSim {
		_ = a.sim.Stop()
	}
	a.emit(events...)
}

// -----------------------------------------------------------------------------

// OnIncomingTick implements interfaces.ITickSink. Live ticks are applied only
// while Live and simulator ticks only while Simulated; anything else is
// discarded.
func (a *Aggregator) OnIncomingTick(source string, tick models.MTick) {
	a.mu.Lock()
	accept := !a.closed && tick.Symbol != "" &&
		((source == a.liveName() && a.state == models.FeedLive) ||
			(source == a.sim.Name() && a.state == models.FeedSimulated))
	if !accept {
		a.mu.Unlock()
		metrics.TicksDiscarded.WithLabelValues(source).Inc()
		return
	}
	a.history.Append(tick)
	state := a.state
	a.mu.Unlock()

	metrics.TicksIngested.WithLabelValues(source).Inc()
	a.emit(Event{Kind: EventTick, State: state, Symbol: tick.Symbol, Source: source, Tick: tick})
}

// -----------------------------------------------------------------------------

// OnSourceClosed implements interfaces.ITickSink. A live source that drops
// while Live moves the feed through Disconnected into Simulated.
func (a *Aggregator) OnSourceClosed(source string, err error) {
	if source != a.liveName() {
		if err != nil {
			a.Logger.Warning("Source %s stopped: %v", source, err)
		}
		return
	}

	a.mu.Lock()
	if a.closed || a.state != models.FeedLive {
		a.mu.Unlock()
		return
	}
	ev := a.transition(models.FeedDisconnected)
	a.mu.Unlock()

	if err != nil {
		a.Logger.Warning("Live feed closed: %v", err)
	} else {
		a.Logger.Info("Live feed closed")
	}
	a.emit(ev)

	a.fallBackToSimulation(models.FeedDisconnected)
	a.scheduleReconnect()
}

// -----------------------------------------------------------------------------

// fallBackToSimulation enters Simulated if the state is still from.
func (a *Aggregator) fallBackToSimulation(from models.FeedState) {
	a.mu.Lock()
	if a.closed || a.state != from {
		a.mu.Unlock()
		return
	}
	ev := a.transition(models.FeedSimulated)
	start := !a.simRunning
	a.simRunning = true
	a.mu.Unlock()

	a.emit(ev)
	if start {
		a.startSimulator()
	}
}

// -----------------------------------------------------------------------------

// StartSimulation forces the feed into Simulated and starts the local random
// walk. A running live source is stopped.
func (a *Aggregator) StartSimulation() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	var events []Event
	stopLive := a.state == models.FeedLive || a.state == models.FeedConnecting
	if a.state != models.FeedSimulated {
		events = append(events, a.transition(models.FeedSimulated))
	}
	start := !a.simRunning
	a.simRunning = true
	a.mu.Unlock()

	if stopLive && a.live != nil {
		_ = a.live.Stop()
	}
	a.emit(events...)
	if start {
		a.startSimulator()
	}
}

// -----------------------------------------------------------------------------

func (a *Aggregator) startSimulator() {
	if err := a.sim.Start(a.runCtx, a, &a.wg); err != nil {
		a.Logger.Error("Simulator failed to start: %v", err)
		a.mu.Lock()
		a.simRunning = false
		a.mu.Unlock()
	}
}

// -----------------------------------------------------------------------------

// scheduleReconnect retries the live source in the background while the
// feed is Simulated, when the reconnect policy is enabled.
func (a *Aggregator) scheduleReconnect() {
	policy := a.Config.Feed.Reconnect
	if !policy.Enabled || a.live == nil {
		return
	}

	a.mu.Lock()
	if a.closed || a.reconnecting {
		a.mu.Unlock()
		return
	}
	a.reconnecting = true
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		defer func() {
			a.mu.Lock()
			a.reconnecting = false
			a.mu.Unlock()
		}()

		interval := time.Duration(policy.IntervalSeconds) * time.Second
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for attempt := 1; policy.MaxAttempts == 0 || attempt <= policy.MaxAttempts; attempt++ {
			select {
			case <-a.runCtx.Done():
				return
			case <-ticker.C:
			}

			if a.State() != models.FeedSimulated {
				return
			}
			a.Logger.Info("Reconnect attempt %d", attempt)
			if err := a.live.Start(a.runCtx, a, &a.wg); err != nil {
				a.Logger.Warning("Reconnect attempt %d failed: %v", attempt, err)
				continue
			}
			return
		}
		a.Logger.Warning("Giving up on live feed after %d attempts", policy.MaxAttempts)
	}()
}

// -----------------------------------------------------------------------------

// SelectSymbol changes which symbol is exposed. Subscriptions and histories
// are left untouched.
func (a *Aggregator) SelectSymbol(symbol string) error {
	a.mu.Lock()
	if !a.catalog[symbol] {
		a.mu.Unlock()
		return helpers.NewValidationError("symbol '%s' is not in the catalog", symbol)
	}
	changed := a.active != symbol
	a.active = symbol
	state := a.state
	a.mu.Unlock()

	if changed {
		a.emit(Event{Kind: EventSelect, State: state, Symbol: symbol})
	}
	return nil
}

// -----------------------------------------------------------------------------

// GetSnapshot returns a copy of symbol's history with the derived delta and
// percent change. An empty symbol means the active one.
func (a *Aggregator) GetSnapshot(symbol string) (models.MSnapshot, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return models.MSnapshot{}, ErrTornDown
	}
	if symbol == "" {
		symbol = a.active
	}
	ticks := a.history.GetAll(symbol)
	latest, previous, hasLatest, hasPrevious := a.history.LastTwo(symbol)
	state, active := a.state, a.active
	a.mu.Unlock()

	if ticks == nil {
		return models.MSnapshot{}, helpers.NewValidationError("unknown symbol '%s'", symbol)
	}

	snap := models.MSnapshot{
		Symbol:       symbol,
		ActiveSymbol: active,
		State:        state,
		History:      ticks,
		Stats:        analysis.SessionStats(ticks),
	}
	if hasLatest {
		snap.Latest = &latest
	}
	if hasLatest && hasPrevious {
		snap.Previous = &previous
		snap.Delta = latest.Price - previous.Price
		if previous.Price != 0 {
			snap.PercentChange = snap.Delta / previous.Price * 100
		}
	}
	if a.scheduler != nil {
		snap.MarketOpen = a.scheduler.IsOpen(symbol)
	}
	return snap, nil
}

// -----------------------------------------------------------------------------

// LastPrice implements interfaces.IPriceOracle.
func (a *Aggregator) LastPrice(symbol string) (float64, bool) {
	t, ok := a.history.Last(symbol)
	return t.Price, ok
}

// -----------------------------------------------------------------------------

// ActiveSymbol implements interfaces.IPriceOracle.
func (a *Aggregator) ActiveSymbol() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// -----------------------------------------------------------------------------

// State returns the current connection state.
func (a *Aggregator) State() models.FeedState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// -----------------------------------------------------------------------------

// Symbols returns the catalog symbols in configured order.
func (a *Aggregator) Symbols() []string {
	return append([]string(nil), a.symbols...)
}

// -----------------------------------------------------------------------------

// HistorySizes reports how many ticks are held per tracked symbol, including
// symbols that only arrived on the live stream.
func (a *Aggregator) HistorySizes() map[string]int {
	symbols := a.history.Symbols()
	out := make(map[string]int, len(symbols))
	for _, sym := range symbols {
		out[sym] = a.history.Len(sym)
	}
	return out
}

// -----------------------------------------------------------------------------

// Teardown closes the live source, stops the simulator and releases every
// history. Safe to call more than once.
func (a *Aggregator) Teardown() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.listeners = nil
	a.runCancel()
	liveCancel := a.liveCancel
	a.mu.Unlock()

	if liveCancel != nil {
		liveCancel()
	}
	if a.live != nil {
		if err := a.live.Stop(); err != nil {
			a.Logger.Warning("Error stopping live source: %v", err)
		}
	}
	if err := a.sim.Stop(); err != nil {
		a.Logger.Warning("Error stopping simulator: %v", err)
	}
	a.wg.Wait()

	a.history.Cleanup()
	a.Logger.Info("Price feed torn down")
}

// -----------------------------------------------------------------------------

// mergeContexts returns a context cancelled when either parent is.
func mergeContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
