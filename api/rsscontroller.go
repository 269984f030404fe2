package api

import (
	"context"
	"errors"
	"net/http"

	"newsbot/orchestrator"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RegisterRSSRoutes registers RSS-related endpoints.
func RegisterRSSRoutes(r *gin.Engine, runner PassRunner) {
	g := r.Group("/api/rss")
	g.POST("/refresh", func(c *gin.Context) { handleRSSRefresh(c, runner) })
}

// handleRSSRefresh starts a full cycle (ingest then deduplicate) in the background
// and returns 202 Accepted immediately.
func handleRSSRefresh(c *gin.Context, runner PassRunner) {
	go func() {
		if _, err := runner.RunOnce(context.Background()); err != nil {
			if errors.Is(err, orchestrator.ErrBusy) {
				log.Info().Msg("refresh requested while a cycle is running; skipped")
				return
			}
			log.Error().Err(err).Msg("refresh cycle failed")
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "refresh started"})
}
