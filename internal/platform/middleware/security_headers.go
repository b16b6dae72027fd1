package middleware

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
)

// SecurityHeadersConfig controls the optional headers. The zero value sends
// only the always-on set.
type SecurityHeadersConfig struct {
	// HSTSMaxAge enables Strict-Transport-Security when positive. Only set it
	// when the API is served exclusively over TLS.
	HSTSMaxAge time.Duration
}

// SecurityHeaders sets the response headers expected from an API that serves
// patient records to a browser client.
func SecurityHeaders(cfg SecurityHeadersConfig) echo.MiddlewareFunc {
	var hsts string
	if cfg.HSTSMaxAge > 0 {
		hsts = fmt.Sprintf("max-age=%d; includeSubDomains", int64(cfg.HSTSMaxAge.Seconds()))
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

			// Records and exports must not end up in shared caches.
			h.Set("Cache-Control", "no-store")
			return next(c)
		}
	}
}
