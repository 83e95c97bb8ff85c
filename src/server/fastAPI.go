package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"sentiment-pulse/src/analysis"
	"sentiment-pulse/src/interfaces"
	"sentiment-pulse/src/logger"
	"sentiment-pulse/src/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// -----------------------------------------------------------------------------
// FastAPIServer
// -----------------------------------------------------------------------------

type FastAPIServer struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	engine   *gin.Engine
	http     *http.Server
	feed     interfaces.IPriceFeed
	market   interfaces.IMarketData
	store    interfaces.ISentimentStore
	analysis *analysis.AnalysisFacade

	// WebSocket clients, owned by the hub goroutine
	clients     map[*Client]struct{}
	clientCount atomic.Int64
	broadcast   chan *models.MFeedMessage // Buffered queue
	register    chan *Client
	unregister  chan *Client
	replies     chan clientReply
	done        chan struct{}
	stopOnce    sync.Once
	hubOnce     sync.Once

	// Local cache
	latestState *models.MFeedMessage
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(cfg *models.MConfig, feed interfaces.IPriceFeed, market interfaces.IMarketData,
	store interfaces.ISentimentStore, facade *analysis.AnalysisFacade, logger *logger.Logger) *FastAPIServer {
	// Set Gin mode
	if !strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &FastAPIServer{
		Config:   cfg,
		Logger:   logger,
		engine:   gin.New(),
		feed:     feed,
		market:   market,
		store:    store,
		analysis: facade,
		clients:  make(map[*Client]struct{}),
		// Buffered channel so feed listeners never block on slow clients
		broadcast:  make(chan *models.MFeedMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		replies:    make(chan clientReply, 64),
		done:       make(chan struct{}),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()

	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	// Service endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Price feed
	feed := s.engine.Group("/api/feed")
	feed.GET("/state", s.getFeedState)
	feed.GET("/snapshot", s.getSnapshot)
	feed.GET("/bars", s.getBars)
	feed.POST("/select", s.postSelect)

	// Market data lookups
	s.engine.GET("/api/quote/:symbol", s.getQuote)
	s.engine.GET("/api/candles/:symbol", s.getCandles)
	s.engine.GET("/api/chart/:symbol", s.getChart)

	// Sentiment
	s.engine.GET("/api/social-stats", s.getSocialStats)
	s.engine.GET("/api/social-feed", s.getSocialFeed)
	s.engine.GET("/api/realtime-posts", s.getRealtimePosts)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// -----------------------------------------------------------------------------

// Handler exposes the router, mainly for tests.
func (s *FastAPIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start runs the hub and serves HTTP until Stop.
func (s *FastAPIServer) Start() error {
	s.Logger.Info("Starting server on %s", s.http.Addr)

	s.StartHub()

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// StartHub launches the websocket hub loop once.
func (s *FastAPIServer) StartHub() {
	s.hubOnce.Do(func() { go s.handleWebsockets() })
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.done)

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = s.http.Shutdown(ctx)
	})
	return err
}

// -----------------------------------------------------------------------------
// Service handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	var latest int64
	s.stateMutex.RLock()
	if s.latestState != nil {
		latest = s.latestState.Timestamp
	}
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   s.clientCount.Load(),
		"feed_state":    s.feed.State(),
		"active_symbol": s.feed.ActiveSymbol(),
		"latest_update": latest,
		"histories":     s.feed.HistorySizes(),
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"catalog":       s.Config.Feed.Catalog,
		"history_size":  s.Config.Feed.HistorySize,
		"bar_windows":   s.analysis.Windows(),
		"chart_symbols": s.Config.Feed.ChartSymbols,
	})
}
