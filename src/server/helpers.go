package server

import (
	"errors"
	"net/http"
	"strconv"

	"sentiment-pulse/src/feed"
	"sentiment-pulse/src/helpers"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------

// intQuery reads a positive integer query parameter, def when absent or invalid.
func intQuery(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// -----------------------------------------------------------------------------

// feedErrorStatus maps aggregator errors to HTTP statuses.
func feedErrorStatus(err error) int {
	switch {
	case errors.Is(err, feed.ErrTornDown):
		return http.StatusServiceUnavailable
	case helpers.IsValidation(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// -----------------------------------------------------------------------------

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
