// Package proxy implements the Backend-for-Frontend forwarder. It is the
// only path between browsers and the analysis backend, and it exists to keep
// the confidential service key out of client-visible code: the browser sends
// its own bearer token, the proxy adds X-INTERNAL-API-KEY, and the backend
// rejects anything without it.
package proxy

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	internalKeyHeader = "X-INTERNAL-API-KEY"
	maxRequestBody    = 1 << 20  // 1 MB
	maxResponseBody   = 10 << 20 // 10 MB
)

// Proxy forwards /api/proxy/* requests to the upstream backend
type Proxy struct {
	backendURL  string
	internalKey string
	httpClient  *http.Client
}

// New creates a Proxy targeting the backend at backendURL. An empty
// internalKey is tolerated here and rejected per request, so a misconfigured
// deployment serves clean 500s instead of refusing to boot.
func New(backendURL, internalKey string) *Proxy {
	return &Proxy{
		backendURL:  strings.TrimRight(backendURL, "/"),
		internalKey: internalKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			// Upstream redirects must surface to the caller rather than be
			// followed server-side with the internal key attached.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Handler returns the gin handler for the catch-all proxy route. It accepts
// any HTTP method; the sub-path after the mount point selects the upstream
// endpoint.
func (p *Proxy) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Fail closed: without the key the backend would reject everything
		// as 403 anyway, but this way we never leak traffic upstream from a
		// half-configured deployment.
		if p.internalKey == "" {
			log.Printf("Proxy rejected %s %s: INTERNAL_API_KEY is not configured",
				c.Request.Method, c.Request.URL.Path)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "configuration error",
			})
			return
		}

		upstream := p.backendURL + c.Param("path")
		if raw := c.Request.URL.RawQuery; raw != "" {
			upstream += "?" + raw
		}

		var body io.Reader
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBody))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
				return
			}
			if len(payload) > 0 {
				// Bodies are forwarded verbatim; the backend owns
				// validation. A malformed body is only worth a log line.
				if !json.Valid(payload) {
					log.Printf("Proxy forwarding non-JSON body for %s %s",
						c.Request.Method, c.Param("path"))
				}
				body = bytes.NewReader(payload)
			}
		}

		req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, upstream, body)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":  "upstream unavailable",
				"detail": err.Error(),
			})
			return
		}

		req.Header.Set(internalKeyHeader, p.internalKey)
		if auth := c.GetHeader("Authorization"); auth != "" {
			req.Header.Set("Authorization", auth)
		}
		if ct := c.GetHeader("Content-Type"); ct != "" && body != nil {
			req.Header.Set("Content-Type", ct)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := p.httpClient.Do(req)
		if err != nil {
			log.Printf("Proxy request to %s failed: %v", upstream, err)
			c.JSON(http.StatusBadGateway, gin.H{
				"error":  "upstream unavailable",
				"detail": err.Error(),
			})
			return
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			log.Printf("Proxy failed to read upstream response: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{
				"error":  "upstream unavailable",
				"detail": err.Error(),
			})
			return
		}

		// Redirects are not followed server-side; hand the target back to
		// the caller so the browser can decide.
		if loc := resp.Header.Get("Location"); loc != "" {
			c.Header("Location", loc)
		}

		// Pass the upstream's answer through byte-for-byte with its status
		// preserved, advertised as JSON only when it actually is JSON.
		contentType := "application/json"
		if !json.Valid(respBody) {
			contentType = "text/plain; charset=utf-8"
		}
		c.Data(resp.StatusCode, contentType, respBody)
	}
}
