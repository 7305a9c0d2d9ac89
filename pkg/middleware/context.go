package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/appctx"
)

// Context stamps every request with a request ID, minting one when the
// caller did not send the X-Request-Id header, and echoes it back on the
// response so callers can correlate logs.
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := appctx.SetRequestID(req.Context(), requestID)
			c.SetRequest(req.WithContext(ctx))
			c.Response().Header().Set(echo.HeaderXRequestID, appctx.GetRequestID(ctx))

			return next(c)
		}
	}
}
