package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Session-indicating cookies. Presence is all the guard checks: it gates
// navigation for UX, it does not authorize anything. The backend verifies
// the actual credential on every data request regardless of what happens
// here.
var sessionCookies = []string{"firebase-auth-token", "__session"}

// RedirectCookie records the page a guest tried to reach, replayed once
// after sign-in.
const RedirectCookie = "redirect-after-login"

// redirectCookieTTL is short on purpose: a stale intent is worse than none.
const redirectCookieTTL = 5 * 60 // seconds

var authPages = map[string]bool{
	"/login":          true,
	"/signup":         true,
	"/reset-password": true,
}

var protectedPrefixes = []string{"/dashboard", "/settings", "/profile"}

// RouteGuard redirects based on session-cookie presence: signed-in users are
// bounced off auth pages, guests are bounced off protected pages with their
// destination recorded for replay. Everything else, including the public
// per-report view, passes untouched.
func RouteGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		signedIn := hasSessionCookie(c)

		if authPages[path] && signedIn {
			c.Redirect(http.StatusTemporaryRedirect, "/dashboard")
			c.Abort()
			return
		}

		if isProtected(path) && !signedIn {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(RedirectCookie, path, redirectCookieTTL, "/", "", false, true)
			c.Redirect(http.StatusTemporaryRedirect, "/login")
			c.Abort()
			return
		}

		c.Next()
	}
}

// ConsumeRedirect returns the recorded post-login destination and clears the
// cookie so the intent replays at most once.
func ConsumeRedirect(c *gin.Context) (string, bool) {
	path, err := c.Cookie(RedirectCookie)
	if err != nil || path == "" {
		return "", false
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(RedirectCookie, "", -1, "/", "", false, true)

	// Only same-site absolute paths are ever replayed.
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return "", false
	}
	return path, true
}

func hasSessionCookie(c *gin.Context) bool {
	for _, name := range sessionCookies {
		if cookie, err := c.Cookie(name); err == nil && cookie != "" {
			return true
		}
	}
	return false
}

func isProtected(path string) bool {
	for _, prefix := range protectedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
