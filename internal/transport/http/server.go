// Package http exposes the server's outer surface: a health probe, the
// read-only leaderboard API, and the websocket endpoint every client
// speaks the envelope protocol over.
package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/bramvdv/tileverse-server/internal/config"
	"github.com/bramvdv/tileverse-server/internal/core"
	"github.com/bramvdv/tileverse-server/internal/proto"
)

// ErrorResponse is the JSON error body for the REST endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LeaderboardResponse wraps the score table for the REST endpoint.
type LeaderboardResponse struct {
	Entries []proto.LeaderboardEntry `json:"entries"`
}

// NewServer builds the HTTP server with all routes mounted.
func NewServer(hub *core.Hub, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/healthz", healthHandler)
	router.GET("/api/leaderboard", leaderboardHandler(hub))
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, cfg.ConnPerMinute, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

func leaderboardHandler(hub *core.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := hub.LeaderboardSnapshot(c.Request.Context())
		if err != nil {
			c.JSON(stdhttp.StatusServiceUnavailable, ErrorResponse{Error: "leaderboard unavailable"})
			return
		}
		if entries == nil {
			entries = []proto.LeaderboardEntry{}
		}
		c.JSON(stdhttp.StatusOK, LeaderboardResponse{Entries: entries})
	}
}
