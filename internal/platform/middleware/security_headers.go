package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// SecurityHeadersConfig tunes SecurityHeaders per deployment.
type SecurityHeadersConfig struct {
	// HSTSMaxAge enables Strict-Transport-Security when positive. Leave it
	// zero for local runs over plain HTTP.
	HSTSMaxAge time.Duration
	// PublicPrefixes are paths served without credentials, such as the
	// health check polled by the load balancer. They may be revalidated by
	// caches; everything else is per-user billing data and is never stored.
	PublicPrefixes []string
}

// SecurityHeaders sets the response headers for a JSON API that carries
// billing data.
func SecurityHeaders(cfg SecurityHeadersConfig) echo.MiddlewareFunc {
	hsts := ""
	if cfg.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.FormatInt(int64(cfg.HSTSMaxAge/time.Second), 10) + "; includeSubDomains"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			if hsts != "" {
				h.Set("Strict-Transport-Security", hsts)
			}
			if isPublicPath(c.Request().URL.Path, cfg.PublicPrefixes) {
				h.Set("Cache-Control", "no-cache")
				return next(c)
			}
			// Statements differ per caller and change on every generation run.
			h.Set("Cache-Control", "no-store")
			h.Add("Vary", "Authorization")
			return next(c)
		}
	}
}

func isPublicPath(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
