package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterHealthRoutes registers health check endpoints. The runner's
// current phase is included so probes can tell a stuck pass from an idle one.
func RegisterHealthRoutes(r *gin.Engine, runner PassRunner) {
	r.GET("/api/health", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if runner != nil {
			body["state"] = runner.Status().State
		}
		c.JSON(http.StatusOK, body)
	})
}
