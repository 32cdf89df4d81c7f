package middleware

import (
	"log"

	"github.com/jaevor/go-nanoid"
	"github.com/labstack/echo/v4"
)

const RequestIDHeader = "X-Request-Id"

// RequestID tags every request with a short id, reusing the caller's one
// when present.
func RequestID() echo.MiddlewareFunc {
	idGenerator, err := nanoid.Standard(15)
	if err != nil {
		log.Fatalf("failed to init request id generator: %v", err)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = idGenerator()
			}
			c.Response().Header().Set(RequestIDHeader, requestID)
			c.Set("request_id", requestID)
			return next(c)
		}
	}
}
