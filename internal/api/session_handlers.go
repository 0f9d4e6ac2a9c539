package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sitesage/gateway/internal/middleware"
)

// RedirectHandler serves GET /api/session/redirect. The frontend calls it
// once after a successful sign-in to learn where the user was originally
// headed; reading the intent clears it.
func RedirectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		path, ok := middleware.ConsumeRedirect(c)
		if !ok {
			path = "/dashboard"
		}
		c.JSON(http.StatusOK, gin.H{"redirect": path})
	}
}
