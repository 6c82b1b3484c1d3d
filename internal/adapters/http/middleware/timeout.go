package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/daily-quote-service/internal/adapters/http/dto"
)

// Deadline bounds the request context by timeout. An earlier deadline
// already on the context wins. Storage adapters honor it, so a stuck store
// makes the daily quote fall back instead of hanging the request.
//
// A handler that gives up without writing after the deadline passed gets a
// 504 with the standard error envelope.
func Deadline(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if c.Writer.Written() || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return
		}

		dto.Abort(c, dto.ErrorCodeTimeout, "request timed out")
	}
}
