package api

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sitesage/gateway/internal/client"
	"github.com/sitesage/gateway/internal/model"
	"github.com/sitesage/gateway/internal/poll"
	"github.com/sitesage/gateway/internal/token"
)

// Bounds for the lighthouse long-poll. The wait stays well under the
// server's write timeout; clients that still see "pending" simply call
// again, which also keeps one slow report from pinning a connection for the
// full Lighthouse budget.
const (
	waitInterval    = 5 * time.Second
	maxWaitAttempts = 4
)

// LighthouseWaitHandler serves GET /api/reports/:id/lighthouse. It returns
// immediately when the report already carries a Lighthouse score, otherwise
// it polls the backend until a score appears or the per-request attempt
// budget runs out.
//
// A fresh client is built per request: polling must never read a cached
// report, and the caller's own bearer token has to travel upstream so the
// backend can apply its per-report access rules.
func LighthouseWaitHandler(backendURL, internalKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report ID"})
			return
		}

		opts := []client.Option{
			client.WithInternalKey(internalKey),
			client.WithCacheTTL(0),
		}
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			opts = append(opts, client.WithTokenSource(token.Static(strings.TrimPrefix(auth, "Bearer "))))
		}
		apiClient := client.New(backendURL, opts...)

		report, err := apiClient.Report(c.Request.Context(), id)
		if err != nil {
			renderClientError(c, err)
			return
		}

		if report.LighthouseReady() {
			c.JSON(http.StatusOK, gin.H{
				"status": poll.StatusCompleted,
				"report": report,
			})
			return
		}

		done := make(chan poll.Status, 1)
		latest := report
		watcher := poll.New(apiClient,
			poll.WithInterval(waitInterval),
			poll.WithMaxAttempts(maxWaitAttempts),
			poll.OnUpdate(func(r *model.Report) { latest = r }),
			poll.OnDone(func(s poll.Status) { done <- s }),
		)
		watcher.Start(id)

		select {
		case status := <-done:
			if status == poll.StatusExhausted {
				// Not terminal for the product: Lighthouse may still land,
				// the caller just has to ask again.
				status = "pending"
			}
			c.JSON(http.StatusOK, gin.H{
				"status": status,
				"report": latest,
			})
		case <-c.Request.Context().Done():
			watcher.Stop()
		}
	}
}

// renderClientError translates a backend client error into the gin response
// the browser should see.
func renderClientError(c *gin.Context, err error) {
	switch {
	case client.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
	case client.IsForbidden(err):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case client.IsUnauthorized(err):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case client.IsRateLimited(err):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	default:
		log.Printf("Backend request failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream unavailable"})
	}
}
