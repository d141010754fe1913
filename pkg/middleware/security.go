package middleware

import (
	"net/http"
	"strings"

	"studyspot/pkg/apperror"

	"github.com/gin-gonic/gin"
)

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("X-XSS-Protection", "0")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		if isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

// HTTPSRedirect sends plain-HTTP requests to their https:// equivalent.
// /health stays reachable for load balancer health checks.
func HTTPSRedirect(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled || isHTTPS(c.Request) || c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		c.Redirect(http.StatusPermanentRedirect, "https://"+c.Request.Host+c.Request.URL.RequestURI())
		c.Abort()
	}
}

func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// ErrorHandler renders errors attached with c.Error when nothing was written.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		apperror.Respond(c, c.Errors.Last().Err)
	}
}
