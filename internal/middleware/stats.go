package middleware

import "github.com/gin-gonic/gin"

// StatsRecorder receives one call per handled request
type StatsRecorder interface {
	Record(method, path string, status int)
}

// Stats tracks request counts through the given recorder. A nil recorder
// (no database configured) yields a pass-through middleware.
func Stats(rec StatsRecorder) gin.HandlerFunc {
	if rec == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		c.Next()
		rec.Record(c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}
