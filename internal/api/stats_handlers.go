package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sitesage/gateway/internal/service"
)

// StatisticsHandler serves aggregated gateway traffic counters. Mounted
// behind the admin gate. A nil stats service (no database configured)
// answers 503 so operators can tell "disabled" from "empty".
func StatisticsHandler(stats *service.Stats) gin.HandlerFunc {
	return func(c *gin.Context) {
		if stats == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "statistics not configured"})
			return
		}

		days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
		if err != nil || days < 1 {
			days = 30
		}

		totals, err := stats.Totals()
		if err != nil {
			log.Printf("Failed to read stats totals: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve statistics"})
			return
		}

		recent, err := stats.RecentDays(days)
		if err != nil {
			log.Printf("Failed to read daily stats: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve statistics"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"totals": gin.H{
				"requests":     totals.Requests,
				"analyses":     totals.Analyses,
				"errors":       totals.Errors,
				"rate_limited": totals.RateLimited,
			},
			"daily": recent,
		})
	}
}
