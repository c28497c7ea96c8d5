// Package api assembles the relay's HTTP surface.
package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/emmetthe/interactive-db/api/handlers"
	"github.com/emmetthe/interactive-db/internal/ws"
)

// NewRouter builds the Gin engine serving the relay endpoint, the health
// check and the workspace introspection API. activity may be nil.
func NewRouter(wsHandler *ws.Handler, activity handlers.ActivityLister) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), corsMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	handlers.NewWebSocketHandler(wsHandler).RegisterRoutes(r)

	apiGroup := r.Group("/api")
	{
		handlers.NewWorkspaceHandler(wsHandler.Registry(), activity).RegisterRoutes(apiGroup)
	}

	return r
}

// requestLogger logs each HTTP request through slog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.DebugContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// corsMiddleware returns a permissive CORS middleware for browser clients.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
