package internal

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultResultsLimit = 20
	maxResultsLimit     = 200
)

// SetupRouter wires the HTTP surface: health check, room and result listings
// and the websocket endpoint.
func SetupRouter(rm *RoomManager, results ResultStore, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	r.GET("/rooms", func(c *gin.Context) {
		rooms, err := rm.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rooms": rooms})
	})

	r.GET("/results", func(c *gin.Context) {
		limit := defaultResultsLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxResultsLimit {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and " + strconv.Itoa(maxResultsLimit)})
				return
			}
			limit = n
		}
		list, err := results.List(c.Request.Context(), limit)
		if err != nil {
			logger.Error("list results failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load results"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": list})
	})

	r.GET("/ws", func(c *gin.Context) {
		ServeWs(rm, c.Writer, c.Request)
	})

	return r
}

// requestLogger logs each HTTP request through zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
