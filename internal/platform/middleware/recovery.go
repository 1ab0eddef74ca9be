package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Recovery converts a handler panic into a 500 error response instead of
// tearing down the connection. The stack is logged, never returned to the
// caller.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					var stack [4096]byte
					n := runtime.Stack(stack[:], false)

					logger.Error().
						Str("request_id", GetRequestID(c)).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", string(stack[:n])).
						Msg("panic recovered")

					err = errorEnvelope(c, http.StatusInternalServerError, "internal server error")
				}
			}()
			return next(c)
		}
	}
}

// errorEnvelope writes the gateway's uniform error response body.
func errorEnvelope(c echo.Context, status int, message string) error {
	if c.Response().Committed {
		return nil
	}
	return c.JSON(status, map[string]string{
		"status":        "error",
		"error_message": message,
	})
}
