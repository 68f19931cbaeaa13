package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medcv/medcv/pkg/apperr"
)

// Recovery converts handler panics into internal errors so one bad request
// cannot take the server down. http.ErrAbortHandler is re-raised since the
// HTTP stack uses it to abort a response on purpose.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				rid, _ := c.Get("request_id").(string)
				logger.Error().
					Str("request_id", rid).
					Str("method", c.Request().Method).
					Str("path", c.Request().URL.Path).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")

				err = apperr.Internal("panic recovered", fmt.Errorf("%v", r))
			}()
			return next(c)
		}
	}
}
