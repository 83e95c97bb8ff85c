package server

import (
	"net/http"
	"strings"
	"time"

	"sentiment-pulse/src/analysis"
	"sentiment-pulse/src/config"
	"sentiment-pulse/src/data_source/finnhub"
	"sentiment-pulse/src/helpers"
	"sentiment-pulse/src/models"
	"sentiment-pulse/src/storage"

	"github.com/gin-gonic/gin"
)

const maxLookbackDays = 365

// -----------------------------------------------------------------------------
// Price feed
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getFeedState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state":         s.feed.State(),
		"active_symbol": s.feed.ActiveSymbol(),
		"symbols":       s.feed.Symbols(),
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getSnapshot(c *gin.Context) {
	snap, err := s.feed.GetSnapshot(c.Query("symbol"))
	if err != nil {
		abortWithError(c, feedErrorStatus(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, snap)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getBars(c *gin.Context) {
	snap, err := s.feed.GetSnapshot(c.Query("symbol"))
	if err != nil {
		abortWithError(c, feedErrorStatus(err), err.Error())
		return
	}

	window := c.DefaultQuery("window", analysis.DefaultBarWindow)
	bars, err := s.analysis.BuildBars(snap.Symbol, snap.History, window)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": snap.Symbol, "window": window, "bars": bars})
}

// -----------------------------------------------------------------------------

type selectRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

func (s *FastAPIServer) postSelect(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "body must be {\"symbol\": \"...\"}")
		return
	}
	if err := s.feed.SelectSymbol(req.Symbol); err != nil {
		status := http.StatusInternalServerError
		if helpers.IsValidation(err) {
			status = http.StatusBadRequest
		}
		abortWithError(c, status, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"active_symbol": s.feed.ActiveSymbol(), "state": s.feed.State()})
}

// -----------------------------------------------------------------------------
// Market data
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getQuote(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	c.JSON(http.StatusOK, s.market.FetchQuote(c.Request.Context(), symbol))
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) lookbackDays(c *gin.Context) (int, bool) {
	def := s.Config.Feed.ChartLookback
	if def <= 0 {
		def = config.DefaultChartLookback
	}
	days := intQuery(c, "days", def)
	if days > maxLookbackDays {
		abortWithError(c, http.StatusBadRequest, "days must be at most 365")
		return 0, false
	}
	return days, true
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getCandles(c *gin.Context) {
	days, ok := s.lookbackDays(c)
	if !ok {
		return
	}
	resolution := c.DefaultQuery("resolution", "D")
	if _, known := finnhub.Resolutions[resolution]; !known {
		abortWithError(c, http.StatusBadRequest, "unsupported resolution '"+resolution+"'")
		return
	}

	symbol := strings.ToUpper(c.Param("symbol"))
	to := time.Now()
	from := to.AddDate(0, 0, -days)
	c.JSON(http.StatusOK, s.market.FetchCandles(c.Request.Context(), symbol, resolution, from.Unix(), to.Unix()))
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getChart(c *gin.Context) {
	days, ok := s.lookbackDays(c)
	if !ok {
		return
	}
	symbol := strings.ToUpper(c.Param("symbol"))
	c.JSON(http.StatusOK, s.market.FetchChart(c.Request.Context(), symbol, days))
}

// -----------------------------------------------------------------------------
// Sentiment
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getSocialStats(c *gin.Context) {
	stats, err := s.store.GetStats(c.Request.Context())
	if err != nil {
		s.Logger.Error("Social stats failed: %v", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getSocialFeed(c *gin.Context) {
	filter := models.MFeedFilter{
		Page:      intQuery(c, "page", storage.DefaultFeedPage),
		Limit:     intQuery(c, "limit", storage.DefaultFeedLimit),
		Sentiment: c.Query("sentiment"),
		Source:    c.Query("source"),
	}

	feed, err := s.store.GetFeed(c.Request.Context(), filter)
	if err != nil {
		s.Logger.Error("Social feed failed: %v", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to fetch feed")
		return
	}
	c.JSON(http.StatusOK, feed)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getRealtimePosts(c *gin.Context) {
	posts, err := s.store.GetRecentPosts(c.Request.Context(), storage.RecentPostsSize)
	if err != nil {
		s.Logger.Error("Realtime posts failed: %v", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}
	c.JSON(http.StatusOK, posts)
}
