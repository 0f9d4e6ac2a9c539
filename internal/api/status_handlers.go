package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sitesage/gateway/internal/client"
)

// HealthHandler reports gateway liveness plus upstream reachability. The
// upstream probe is best-effort: a down backend degrades the status but the
// gateway itself still answers 200.
func HealthHandler(apiClient *client.Client, publicURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		backendStatus := "healthy"

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := apiClient.Health(ctx); err != nil {
			backendStatus = "unreachable"
		}

		status := "healthy"
		if backendStatus != "healthy" {
			status = "degraded"
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     status,
			"backend":    backendStatus,
			"public_api": publicURL,
			"timestamp":  time.Now().UTC(),
			"service":    "sitesage-gateway",
		})
	}
}
