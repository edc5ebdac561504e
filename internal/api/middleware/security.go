// Package middleware holds echo middleware shared by the API server.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityHeaders sets browser hardening headers and disables caching of
// API responses.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", "frame-ancestors 'self'")

			if strings.HasPrefix(c.Request().URL.Path, "/api") {
				h.Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
				h.Set("Pragma", "no-cache")
			}

			return next(c)
		}
	}
}

// ProxyRequestBlock rejects absolute-URI requests such as
// "GET http://example.com/" sent by open-proxy scanners.
func ProxyRequestBlock() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method == http.MethodConnect || req.RequestURI != "" && !strings.HasPrefix(req.RequestURI, "/") {
				return echo.NewHTTPError(http.StatusBadRequest, "proxy requests are not supported")
			}
			return next(c)
		}
	}
}
