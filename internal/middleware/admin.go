package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AdminRequired gates operational endpoints behind HTTP basic auth. The
// password is compared against a bcrypt hash so the plaintext never appears
// in configuration. Use cmd/hashpw to generate the hash.
func AdminRequired(user, passwordHash string) gin.HandlerFunc {
	if user == "" || passwordHash == "" {
		log.Println("WARNING: admin credentials not configured, admin endpoints disabled")
	}

	return func(c *gin.Context) {
		if user == "" || passwordHash == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "admin access not configured",
			})
			return
		}

		reqUser, reqPass, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="gateway"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		userMatch := subtle.ConstantTimeCompare([]byte(reqUser), []byte(user)) == 1
		passErr := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(reqPass))
		if !userMatch || passErr != nil {
			log.Printf("Failed admin login attempt for user: %s", reqUser)
			c.Header("WWW-Authenticate", `Basic realm="gateway"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid credentials",
			})
			return
		}

		c.Next()
	}
}
