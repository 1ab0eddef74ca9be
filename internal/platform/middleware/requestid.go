// Package middleware carries the cross-cutting HTTP concerns of the
// gateway: request identity, logging, panic recovery, and the admission
// controls (body cap, rate limit, deadline) that protect the translation
// pipeline from abusive or runaway requests.
package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// HeaderRequestID is the correlation header accepted from clients and
// echoed back on every response.
const HeaderRequestID = "X-Request-ID"

// RequestID assigns each request a correlation id. A client-supplied
// X-Request-ID is honored so upstream systems can trace a record across
// hops; otherwise a fresh UUID is generated. The id is stored in the echo
// context under "request_id" and set on the response header.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(HeaderRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set("request_id", rid)
			c.Response().Header().Set(HeaderRequestID, rid)
			return next(c)
		}
	}
}

// GetRequestID returns the correlation id assigned by RequestID, or ""
// when the middleware did not run.
func GetRequestID(c echo.Context) string {
	rid, _ := c.Get("request_id").(string)
	return rid
}
