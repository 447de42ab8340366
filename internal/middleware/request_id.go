package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/logger"
)

// HeaderRequestID carries the request id in and out.
const HeaderRequestID = "X-Request-ID"

// RequestLogger tags each request with an id, stores it in the request
// context for the services' loggers and writes one access log line.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(HeaderRequestID)
			if id == "" {
				id = logger.NewRequestID()
			}
			c.SetRequest(req.WithContext(logger.ContextWithRequestID(req.Context(), id)))
			c.Response().Header().Set(HeaderRequestID, id)

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.WithContext(c.Request().Context(), log).Info("request",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()))
			return nil
		}
	}
}
