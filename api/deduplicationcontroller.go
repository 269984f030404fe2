package api

import (
	"errors"
	"io"
	"net/http"

	"newsbot/common"
	"newsbot/orchestrator"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RegisterDeduplicationRoutes registers deduplication pass endpoints.
func RegisterDeduplicationRoutes(r *gin.Engine, runner PassRunner, archive PassArchive) {
	h := &deduplicationHandlers{runner: runner, archive: archive}
	g := r.Group("/api/deduplication")
	g.POST("/run", h.handleRun)
	g.GET("/last", h.handleLast)
	g.GET("/status", h.handleStatus)
	g.GET("/runs/:id", h.handleGetRun)
}

// RunPassRequest optionally overrides the similarity threshold for one pass.
type RunPassRequest struct {
	Threshold *float64 `json:"threshold"`
}

type deduplicationHandlers struct {
	runner  PassRunner
	archive PassArchive
}

// handleRun runs a pass synchronously and returns its report.
func (h *deduplicationHandlers) handleRun(c *gin.Context) {
	var req RunPassRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Threshold != nil && (*req.Threshold < 0 || *req.Threshold > 1) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be between 0 and 1"})
		return
	}

	result, err := h.runner.RunPass(c.Request.Context(), req.Threshold)
	if errors.Is(err, orchestrator.ErrBusy) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("deduplication pass failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to run deduplication pass: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *deduplicationHandlers) handleLast(c *gin.Context) {
	last := h.runner.Last()
	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pass has run yet"})
		return
	}
	c.JSON(http.StatusOK, last)
}

func (h *deduplicationHandlers) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.runner.Status())
}

// handleGetRun returns an archived pass report by run id.
func (h *deduplicationHandlers) handleGetRun(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pass archive not configured"})
		return
	}

	result, err := h.archive.LoadPassResult(c.Request.Context(), c.Param("id"))
	if errors.Is(err, common.ErrObjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load pass result: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
