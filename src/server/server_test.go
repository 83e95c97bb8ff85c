package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sentiment-pulse/src/analysis"
	"sentiment-pulse/src/feed"
	"sentiment-pulse/src/helpers"
	"sentiment-pulse/src/logger"
	"sentiment-pulse/src/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// fakes
// -----------------------------------------------------------------------------

type fakeFeed struct {
	mu        sync.Mutex
	state     models.FeedState
	active    string
	histories map[string][]models.MTick
	tornDown  bool
	simulated int
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		state:  models.FeedSimulated,
		active: "AAPL",
		histories: map[string][]models.MTick{
			"AAPL": {
				{Price: 150, Symbol: "AAPL", Timestamp: 1_000, Volume: 1},
				{Price: 151.5, Symbol: "AAPL", Timestamp: 2_000, Volume: 2},
			},
			"BINANCE:BTCUSDT": {{Price: 95000, Symbol: "BINANCE:BTCUSDT", Timestamp: 1_000, Volume: 1}},
		},
	}
}

func (f *fakeFeed) GetSnapshot(symbol string) (models.MSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tornDown {
		return models.MSnapshot{}, feed.ErrTornDown
	}
	if symbol == "" {
		symbol = f.active
	}
	h, ok := f.histories[symbol]
	if !ok {
		return models.MSnapshot{}, helpers.NewValidationError("unknown symbol '%s'", symbol)
	}
	latest := h[len(h)-1]
	return models.MSnapshot{Symbol: symbol, ActiveSymbol: f.active, State: f.state, History: h, Latest: &latest}, nil
}

func (f *fakeFeed) SelectSymbol(symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.histories[symbol]; !ok {
		return helpers.NewValidationError("symbol '%s' is not in the catalog", symbol)
	}
	f.active = symbol
	return nil
}

func (f *fakeFeed) StartSimulation() {
	f.mu.Lock()
	f.simulated++
	f.state = models.FeedSimulated
	f.mu.Unlock()
}

func (f *fakeFeed) State() models.FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeFeed) ActiveSymbol() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeFeed) Symbols() []string { return []string{"BINANCE:BTCUSDT", "AAPL"} }

func (f *fakeFeed) HistorySizes() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.histories))
	for sym, h := range f.histories {
		out[sym] = len(h)
	}
	return out
}

type fakeMarket struct {
	mu       sync.Mutex
	lastFrom int64
	lastTo   int64
}

func (m *fakeMarket) FetchQuote(_ context.Context, symbol string) models.MQuote {
	return models.MQuote{Symbol: symbol, CurrentPrice: 190.1, Source: models.SourceSimulated}
}

func (m *fakeMarket) FetchCandles(_ context.Context, symbol, resolution string, from, to int64) models.MCandles {
	m.mu.Lock()
	m.lastFrom, m.lastTo = from, to
	m.mu.Unlock()
	return models.MCandles{Symbol: symbol, Resolution: resolution, Status: "ok", Close: []float64{1, 2}, Source: models.SourceFinnhub}
}

func (m *fakeMarket) FetchChart(ctx context.Context, symbol string, days int) models.MChart {
	return models.MChart{Quote: m.FetchQuote(ctx, symbol), Source: models.SourceSimulated}
}

type fakeStore struct {
	err        error
	lastFilter models.MFeedFilter
}

func (s *fakeStore) Initialize() error                               { return nil }
func (s *fakeStore) SavePosts(context.Context, []models.MPost) error { return s.err }
func (s *fakeStore) Close() error                                    { return nil }
func (s *fakeStore) GetRecentPosts(context.Context, int) ([]models.MPost, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.MPost{{ID: "p1", Title: "Nvidia rallies"}}, nil
}

func (s *fakeStore) GetStats(context.Context) (*models.MSocialStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.MSocialStats{TotalPosts: 3, TopTrend: "Nvidia"}, nil
}

func (s *fakeStore) GetFeed(_ context.Context, filter models.MFeedFilter) (*models.MSocialFeed, error) {
	s.lastFilter = filter
	if s.err != nil {
		return nil, s.err
	}
	return &models.MSocialFeed{Posts: []models.MPost{}, Pagination: models.MPagination{Page: filter.Page, Limit: filter.Limit}}, nil
}

// -----------------------------------------------------------------------------

type fixture struct {
	srv    *FastAPIServer
	feed   *fakeFeed
	market *fakeMarket
	store  *fakeStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &models.MConfig{Host: "127.0.0.1", Port: 8080, LogLevel: "error"}
	cfg.Feed.Catalog = []models.MCatalogEntry{{Symbol: "BINANCE:BTCUSDT"}, {Symbol: "AAPL"}}
	cfg.Feed.HistorySize = 100
	cfg.Feed.BarWindows = []string{"10s"}
	cfg.Feed.ChartLookback = 30

	log := logger.NewNop("server")
	f := &fixture{feed: newFakeFeed(), market: &fakeMarket{}, store: &fakeStore{}}
	f.srv = NewFastAPIServer(cfg, f.feed, f.market, f.store, analysis.NewAnalysisFacade(cfg, log), log)
	t.Cleanup(func() { f.srv.Stop() })
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// -----------------------------------------------------------------------------
// REST
// -----------------------------------------------------------------------------

func TestHealthAndConfig(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "simulated", body["feed_state"])
	assert.Equal(t, "AAPL", body["active_symbol"])
	assert.Equal(t, map[string]interface{}{"AAPL": 2.0, "BINANCE:BTCUSDT": 1.0}, body["histories"])

	rec = f.do(http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Len(t, body["catalog"], 2)
	assert.Equal(t, []interface{}{"10s"}, body["bar_windows"])
}

func TestFeedState(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/feed/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "simulated", body["state"])
	assert.Equal(t, []interface{}{"BINANCE:BTCUSDT", "AAPL"}, body["symbols"])
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/feed/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap models.MSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "AAPL", snap.Symbol)
	assert.Equal(t, models.FeedSimulated, snap.State)
	assert.Len(t, snap.History, 2)

	rec = f.do(http.MethodGet, "/api/feed/snapshot?symbol=DOGE", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.feed.tornDown = true
	rec = f.do(http.MethodGet, "/api/feed/snapshot", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBars(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/feed/bars?symbol=AAPL", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "10s", body["window"])
	assert.Len(t, body["bars"], 1)

	rec = f.do(http.MethodGet, "/api/feed/bars?symbol=AAPL&window=1h", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSelect(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/feed/select", `{"symbol":"BINANCE:BTCUSDT"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BINANCE:BTCUSDT", decode(t, rec)["active_symbol"])

	rec = f.do(http.MethodPost, "/api/feed/select", `{"symbol":"DOGE"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "DOGE")

	rec = f.do(http.MethodPost, "/api/feed/select", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BINANCE:BTCUSDT", f.feed.ActiveSymbol())
}

func TestQuoteCandlesChart(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/quote/aapl", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "AAPL", body["symbol"])
	assert.Equal(t, 190.1, body["c"])

	rec = f.do(http.MethodGet, "/api/candles/MSFT?days=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	f.market.mu.Lock()
	span := f.market.lastTo - f.market.lastFrom
	f.market.mu.Unlock()
	assert.InDelta(t, 10*24*3600, span, 3700)

	rec = f.do(http.MethodGet, "/api/candles/MSFT?days=400", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/candles/MSFT?resolution=7", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/chart/tsla", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "simulated", decode(t, rec)["source"])
}

func TestSocialEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/social-stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Nvidia", decode(t, rec)["topTrend"])

	rec = f.do(http.MethodGet, "/api/social-feed?page=3&limit=abc&sentiment=Positive&source=reddit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.MFeedFilter{Page: 3, Limit: 12, Sentiment: "Positive", Source: "reddit"}, f.store.lastFilter)

	rec = f.do(http.MethodGet, "/api/realtime-posts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var posts []models.MPost
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	assert.Len(t, posts, 1)
}

func TestSocialEndpoints_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.err = errors.New("db down")

	for path, msg := range map[string]string{
		"/api/social-stats":   "Failed to fetch stats",
		"/api/social-feed":    "Failed to fetch feed",
		"/api/realtime-posts": "Failed to fetch posts",
	} {
		rec := f.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.Equal(t, msg, decode(t, rec)["error"], path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pulse_feed_state")
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", "http://127.0.0.1:3000")
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://127.0.0.1:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

// -----------------------------------------------------------------------------
// WebSocket hub
// -----------------------------------------------------------------------------

func dialHub(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()
	f.srv.StartHub()
	ts := httptest.NewServer(f.srv.Handler())
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) models.MFeedMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg models.MFeedMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_InitialUpdateAndState(t *testing.T) {
	f := newFixture(t)
	conn := dialHub(t, f)

	initial := readMessage(t, conn)
	assert.Equal(t, models.MessageInitial, initial.Type)
	assert.Equal(t, "AAPL", initial.Symbol)
	require.NotNil(t, initial.Snapshot)
	assert.Len(t, initial.Snapshot.History, 2)

	// ticks for other symbols are not forwarded
	f.srv.OnFeedEvent(feed.Event{Kind: feed.EventTick, Symbol: "BINANCE:BTCUSDT"})
	f.srv.OnFeedEvent(feed.Event{Kind: feed.EventTick, Symbol: "AAPL"})
	update := readMessage(t, conn)
	assert.Equal(t, models.MessageUpdate, update.Type)
	assert.Equal(t, "AAPL", update.Symbol)

	f.srv.OnFeedEvent(feed.Event{Kind: feed.EventState, State: models.FeedSimulated, Prev: models.FeedDisconnected})
	state := readMessage(t, conn)
	assert.Equal(t, models.MessageState, state.Type)
	assert.Equal(t, models.FeedSimulated, state.State)

	require.Eventually(t, func() bool {
		return decode(t, f.do(http.MethodGet, "/api/health", ""))["connections"] == float64(1)
	}, time.Second, 10*time.Millisecond)
}

func TestHub_ClientCommands(t *testing.T) {
	f := newFixture(t)
	conn := dialHub(t, f)
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(models.MClientCommand{Command: "snapshot", Symbol: "BINANCE:BTCUSDT"}))
	snap := readMessage(t, conn)
	assert.Equal(t, models.MessageInitial, snap.Type)
	assert.Equal(t, "BINANCE:BTCUSDT", snap.Symbol)

	require.NoError(t, conn.WriteJSON(models.MClientCommand{Command: "select", Symbol: "DOGE"}))
	failed := readMessage(t, conn)
	assert.Equal(t, models.MessageError, failed.Type)
	assert.Contains(t, failed.Error, "DOGE")

	require.NoError(t, conn.WriteJSON(models.MClientCommand{Command: "select", Symbol: "BINANCE:BTCUSDT"}))
	require.Eventually(t, func() bool { return f.feed.ActiveSymbol() == "BINANCE:BTCUSDT" }, time.Second, 10*time.Millisecond)
}

func TestHub_StopClosesClients(t *testing.T) {
	f := newFixture(t)
	conn := dialHub(t, f)
	readMessage(t, conn)

	require.NoError(t, f.srv.Stop())
	require.NoError(t, f.srv.Stop())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected close: %v", err)
}

func TestHub_BadCommandsKeepConnection(t *testing.T) {
	f := newFixture(t)
	conn := dialHub(t, f)
	readMessage(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"command":`)))
	malformed := readMessage(t, conn)
	assert.Equal(t, models.MessageError, malformed.Type)
	assert.Contains(t, malformed.Error, "malformed command")

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0x01}))
	binary := readMessage(t, conn)
	assert.Equal(t, models.MessageError, binary.Type)

	require.NoError(t, conn.WriteJSON(models.MClientCommand{Command: "subscribe", Symbol: "AAPL"}))
	unknown := readMessage(t, conn)
	assert.Equal(t, models.MessageError, unknown.Type)
	assert.Contains(t, unknown.Error, "subscribe")

	// still served after the bad frames
	require.NoError(t, conn.WriteJSON(models.MClientCommand{Command: models.CommandSnapshot, Symbol: "AAPL"}))
	snap := readMessage(t, conn)
	assert.Equal(t, models.MessageInitial, snap.Type)
	assert.Equal(t, "AAPL", snap.Symbol)
}
