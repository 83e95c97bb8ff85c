package feed

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"sentiment-pulse/src/data_source/simulator"
	"sentiment-pulse/src/helpers"
	"sentiment-pulse/src/interfaces"
	"sentiment-pulse/src/logger"
	"sentiment-pulse/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is a controllable tick source standing in for the live stream
// or the simulator.
type fakeSource struct {
	name string

	mu       sync.Mutex
	openErrs []error // consumed one per Start
	sink     interfaces.ITickSink
	started  int
	stopped  int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Start(_ context.Context, sink interfaces.ITickSink, _ *sync.WaitGroup) error {
	f.mu.Lock()
	f.started++
	if len(f.openErrs) > 0 {
		err := f.openErrs[0]
		f.openErrs = f.openErrs[1:]
		if err != nil {
			f.mu.Unlock()
			return err
		}
	}
	f.sink = sink
	f.mu.Unlock()

	sink.OnSourceOpen(f.name)
	return nil
}

func (f *fakeSource) Stop() error {
	f.mu.Lock()
	f.stopped++
	sink := f.sink
	f.sink = nil
	f.mu.Unlock()

	if sink != nil {
		sink.OnSourceClosed(f.name, nil)
	}
	return nil
}

func (f *fakeSource) push(sink interfaces.ITickSink, t models.MTick) {
	sink.OnIncomingTick(f.name, t)
}

func (f *fakeSource) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started, f.stopped
}

func testConfig() *models.MConfig {
	cfg := &models.MConfig{}
	cfg.Feed.Catalog = []models.MCatalogEntry{{Symbol: "BINANCE:BTCUSDT"}, {Symbol: "AAPL"}}
	cfg.Feed.ActiveSymbol = "AAPL"
	cfg.Feed.HistorySize = 100
	cfg.Feed.Simulation.IntervalMs = 1000
	cfg.Feed.Simulation.Volatility = 0.005
	cfg.Feed.Reconnect.IntervalSeconds = 1
	return cfg
}

func newTestAggregator(cfg *models.MConfig, live interfaces.ITickSource) (*Aggregator, *fakeSource) {
	sim := &fakeSource{name: "simulator"}
	a := NewAggregator(cfg, live, sim, logger.NewNop("feed"),
		WithRand(rand.New(rand.NewSource(1))),
		WithClock(func() time.Time { return time.UnixMilli(1_700_000_000_000) }))
	return a, sim
}

type stateRecorder struct {
	mu     sync.Mutex
	states []models.FeedState
	ticks  int
}

func (r *stateRecorder) listen(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch ev.Kind {
	case EventState:
		r.states = append(r.states, ev.State)
	case EventTick:
		r.ticks++
	}
}

func (r *stateRecorder) get() []models.FeedState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.FeedState(nil), r.states...)
}

func TestNewAggregator_SeedsEveryCatalogSymbol(t *testing.T) {
	a, _ := newTestAggregator(testConfig(), &fakeSource{name: "finnhub"})

	assert.Equal(t, models.FeedConnecting, a.State())
	for _, sym := range []string{"BINANCE:BTCUSDT", "AAPL"} {
		snap, err := a.GetSnapshot(sym)
		require.NoError(t, err)
		require.Len(t, snap.History, 100)
		assert.Equal(t, int64(1_700_000_000_000-1000), snap.Latest.Timestamp)
	}

	btc, _ := a.GetSnapshot("BINANCE:BTCUSDT")
	assert.InDelta(t, 95000, btc.Latest.Price, 95000*0.2)
}

func TestConnect_SuccessGoesLiveAndAppliesTrades(t *testing.T) {
	live := &fakeSource{name: "finnhub"}
	a, sim := newTestAggregator(testConfig(), live)

	assert.Equal(t, models.FeedLive, a.Connect(context.Background()))

	before, _ := a.GetSnapshot("AAPL")
	live.push(a, models.MTick{Price: 151.2, Symbol: "AAPL", Timestamp: 1, Volume: 10})

	after, err := a.GetSnapshot("AAPL")
	require.NoError(t, err)
	require.Len(t, after.History, 100)
	assert.Equal(t, 151.2, after.Latest.Price)
	assert.Equal(t, before.History[1:], after.History[:99])

	// simulator ticks are ignored while live
	sim.push(a, models.MTick{Price: 1, Symbol: "AAPL"})
	again, _ := a.GetSnapshot("AAPL")
	assert.Equal(t, 151.2, again.Latest.Price)

	started, _ := sim.counts()
	assert.Zero(t, started)
}

func TestConnect_OpenErrorGoesSimulated(t *testing.T) {
	live := &fakeSource{name: "finnhub", openErrs: []error{errors.New("refused")}}
	a, sim := newTestAggregator(testConfig(), live)
	rec := &stateRecorder{}
	a.Subscribe(rec.listen)

	assert.Equal(t, models.FeedSimulated, a.Connect(context.Background()))
	assert.Equal(t, []models.FeedState{models.FeedSimulated}, rec.get())

	started, _ := sim.counts()
	assert.Equal(t, 1, started)

	// live ticks are ignored, simulator ticks are applied
	live.push(a, models.MTick{Price: 999, Symbol: "AAPL"})
	sim.push(a, models.MTick{Price: 151, Symbol: "AAPL"})

	snap, _ := a.GetSnapshot("")
	assert.Equal(t, 151.0, snap.Latest.Price)
	assert.Equal(t, models.FeedSimulated, snap.State)
}

func TestConnect_WithoutLiveSourceSimulates(t *testing.T) {
	a, sim := newTestAggregator(testConfig(), nil)

	assert.Equal(t, models.FeedSimulated, a.Connect(context.Background()))
	started, _ := sim.counts()
	assert.Equal(t, 1, started)
}

func TestConnect_OnlyFromConnecting(t *testing.T) {
	live := &fakeSource{name: "finnhub"}
	a, _ := newTestAggregator(testConfig(), live)

	a.Connect(context.Background())
	a.Connect(context.Background())

	started, _ := live.counts()
	assert.Equal(t, 1, started)
}

func TestLiveClose_TransitionsThroughDisconnected(t *testing.T) {
	live := &fakeSource{name: "finnhub"}
	a, sim := newTestAggregator(testConfig(), live)
	rec := &stateRecorder{}
	a.Subscribe(rec.listen)

	a.Connect(context.Background())
	a.OnSourceClosed("finnhub", helpers.NewTransportError("read", errors.New("eof")))

	assert.Equal(t, []models.FeedState{models.FeedLive, models.FeedDisconnected, models.FeedSimulated}, rec.get())
	assert.Equal(t, models.FeedSimulated, a.State())
	started, _ := sim.counts()
	assert.Equal(t, 1, started)

	// Simulated is terminal without a reconnect policy
	a.OnSourceOpen("finnhub")
	assert.Equal(t, models.FeedSimulated, a.State())
}

func TestIncomingTick_UnknownSymbolCreatesHistory(t *testing.T) {
	live := &fakeSource{name: "finnhub"}
	a, _ := newTestAggregator(testConfig(), live)
	a.Connect(context.Background())

	live.push(a, models.MTick{Price: 10, Symbol: "MSFT"})

	snap, err := a.GetSnapshot("MSFT")
	require.NoError(t, err)
	assert.Len(t, snap.History, 1)
	assert.Nil(t, snap.Previous)
	assert.Equal(t, 0.0, snap.PercentChange)
	assert.Equal(t, map[string]int{"AAPL": 100, "BINANCE:BTCUSDT": 100, "MSFT": 1}, a.HistorySizes())
}

func TestSelectSymbol(t *testing.T) {
	a, _ := newTestAggregator(testConfig(), &fakeSource{name: "finnhub"})
	before, _ := a.GetSnapshot("BINANCE:BTCUSDT")

	require.NoError(t, a.SelectSymbol("BINANCE:BTCUSDT"))
	assert.Equal(t, "BINANCE:BTCUSDT", a.ActiveSymbol())

	after, _ := a.GetSnapshot("")
	assert.Equal(t, "BINANCE:BTCUSDT", after.Symbol)
	assert.Equal(t, before.History, after.History)

	err := a.SelectSymbol("DOGE")
	assert.True(t, helpers.IsValidation(err))
	assert.Equal(t, "BINANCE:BTCUSDT", a.ActiveSymbol())
}

func TestGetSnapshot_DeltaAndPercentChange(t *testing.T) {
	live := &fakeSource{name: "finnhub"}
	a, _ := newTestAggregator(testConfig(), live)
	a.Connect(context.Background())

	live.push(a, models.MTick{Price: 150, Symbol: "AAPL"})
	live.push(a, models.MTick{Price: 151.2, Symbol: "AAPL"})

	snap, err := a.GetSnapshot("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 151.2, snap.Latest.Price)
	assert.Equal(t, 150.0, snap.Previous.Price)
	assert.InDelta(t, 1.2, snap.Delta, 1e-9)
	assert.InDelta(t, 0.8, snap.PercentChange, 1e-9)
	assert.Equal(t, 100, snap.Stats.DataPoints)

	live.push(a, models.MTick{Price: 0, Symbol: "AAPL"})
	live.push(a, models.MTick{Price: 5, Symbol: "AAPL"})
	snap, _ = a.GetSnapshot("AAPL")
	assert.Equal(t, 5.0, snap.Delta)
	assert.Equal(t, 0.0, snap.PercentChange)

	_, err = a.GetSnapshot("NOPE")
	assert.True(t, helpers.IsValidation(err))
}

func TestGetSnapshot_ReturnsCopy(t *testing.T) {
	a, _ := newTestAggregator(testConfig(), nil)
	snap, _ := a.GetSnapshot("AAPL")
	snap.History[0].Price = -1

	again, _ := a.GetSnapshot("AAPL")
	assert.NotEqual(t, -1.0, again.History[0].Price)
}

func TestStartSimulation_StopsLive(t *testing.T) {
	live := &fakeSource{name: "finnhub"}
	a, sim := newTestAggregator(testConfig(), live)
	a.Connect(context.Background())

	a.StartSimulation()
	a.StartSimulation()

	assert.Equal(t, models.FeedSimulated, a.State())
	_, stopped := live.counts()
	assert.Equal(t, 1, stopped)
	started, _ := sim.counts()
	assert.Equal(t, 1, started)
}

func TestTeardown_Idempotent(t *testing.T) {
	live := &fakeSource{name: "finnhub"}
	a, sim := newTestAggregator(testConfig(), live)
	a.Connect(context.Background())

	a.Teardown()
	a.Teardown()

	_, liveStops := live.counts()
	_, simStops := sim.counts()
	assert.Equal(t, 1, liveStops)
	assert.Equal(t, 1, simStops)

	_, err := a.GetSnapshot("AAPL")
	assert.ErrorIs(t, err, ErrTornDown)

	// late events after teardown are harmless
	a.OnIncomingTick("finnhub", models.MTick{Price: 1, Symbol: "AAPL"})
	a.OnSourceClosed("finnhub", errors.New("late"))
	a.StartSimulation()
	assert.Equal(t, models.FeedLive, a.State())
}

func TestReconnect_ReturnsToLive(t *testing.T) {
	cfg := testConfig()
	cfg.Feed.Reconnect.Enabled = true
	cfg.Feed.Reconnect.MaxAttempts = 3

	live := &fakeSource{name: "finnhub", openErrs: []error{errors.New("down"), errors.New("still down")}}
	a, sim := newTestAggregator(cfg, live)
	defer a.Teardown()

	assert.Equal(t, models.FeedSimulated, a.Connect(context.Background()))

	require.Eventually(t, func() bool { return a.State() == models.FeedLive }, 5*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		_, simStops := sim.counts()
		return simStops == 1
	}, time.Second, 10*time.Millisecond)

	started, _ := live.counts()
	assert.Equal(t, 3, started)
}

func TestOpenError_SimulatorWalksActiveSymbol(t *testing.T) {
	cfg := testConfig()
	cfg.Feed.Simulation.IntervalMs = 50
	live := &fakeSource{name: "finnhub", openErrs: []error{errors.New("connection refused")}}
	sim := simulator.NewSimulator(cfg, logger.NewNop("simulator"))
	a := NewAggregator(cfg, live, sim, logger.NewNop("feed"), WithRand(rand.New(rand.NewSource(7))))
	t.Cleanup(a.Teardown)

	before, err := a.GetSnapshot("")
	require.NoError(t, err)
	btcBefore, err := a.GetSnapshot("BINANCE:BTCUSDT")
	require.NoError(t, err)
	seededAt := before.Latest.Timestamp

	require.Equal(t, models.FeedSimulated, a.Connect(context.Background()))

	walked := func(snap models.MSnapshot) int {
		n := 0
		for _, tk := range snap.History {
			if tk.Timestamp > seededAt {
				n++
			}
		}
		return n
	}
	require.Eventually(t, func() bool {
		snap, err := a.GetSnapshot("")
		return err == nil && walked(snap) >= 5
	}, 3*time.Second, 10*time.Millisecond)

	snap, err := a.GetSnapshot("")
	require.NoError(t, err)
	require.Len(t, snap.History, 100)
	assert.Equal(t, models.FeedSimulated, snap.State)

	start := len(snap.History) - walked(snap)
	require.Greater(t, start, 0)
	for i := start; i < len(snap.History); i++ {
		prev, cur := snap.History[i-1], snap.History[i]
		assert.Equal(t, "AAPL", cur.Symbol)
		assert.LessOrEqual(t, math.Abs(cur.Price-prev.Price), prev.Price*0.005)
		assert.GreaterOrEqual(t, cur.Volume, 0.0)
		assert.Less(t, cur.Volume, 100.0)
	}

	btcAfter, err := a.GetSnapshot("BINANCE:BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, btcBefore.History, btcAfter.History)
}
