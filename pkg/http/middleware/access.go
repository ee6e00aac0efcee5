package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"EnsembleView/pkg/logger"

	"github.com/labstack/echo/v4"
)

// runIDKey mirrors the context key the response envelope reads.
const runIDKey = "run_id"

// Recover turns a handler panic into a 500 envelope. The session lock is
// released by the panicking View's defer before the panic reaches here.
func Recover(l *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				l.Error("panic in http handler",
					logger.String("route", c.Path()),
					logger.String("panic", fmt.Sprint(r)),
					logger.String("stack", string(debug.Stack())),
				)
				err = c.JSON(http.StatusInternalServerError, map[string]interface{}{
					"status":  http.StatusInternalServerError,
					"message": http.StatusText(http.StatusInternalServerError),
					"data":    []map[string]string{{"code": "ERR_INTERNAL", "message": "internal error"}},
				})
			}()
			return next(c)
		}
	}
}

// RequestLogging logs each request at debug level, tagged with the run the
// response was produced for when the route sets one.
func RequestLogging(l *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			fields := []logger.Field{
				logger.String("method", c.Request().Method),
				logger.String("route", c.Path()),
				logger.String("remote", c.RealIP()),
				logger.Int("status", c.Response().Status),
				logger.Duration("duration_ms", time.Since(start)),
			}
			if id, ok := c.Get(runIDKey).(string); ok && id != "" {
				fields = append(fields, logger.String("run_id", id))
			}
			l.Debug("http request", fields...)
			return err
		}
	}
}
