package middleware

import (
	"net/http"
	"time"

	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxIdempotencyKeyLength caps the Idempotency-Key header
const MaxIdempotencyKeyLength = 255

// Idempotency rejects a repeated POST carrying an Idempotency-Key already seen
// within ttl. A request that ends with an error status releases its key so the
// client can retry. Requests without the header pass through. Store failures
// are logged and the request proceeds.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if c.Request.Method != http.MethodPost || key == "" {
			c.Next()
			return
		}
		if len(key) > MaxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(
				dto.ErrCodeBadRequest, "Idempotency-Key is too long", GetRequestID(c)))
			return
		}

		scoped := c.Request.Method + " " + c.FullPath() + ":" + key
		ctx := c.Request.Context()
		fresh, err := store.MarkProcessed(ctx, scoped, ttl)
		if err != nil {
			logger.Warn("Idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !fresh {
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponse(
				dto.ErrCodeDuplicateRequest,
				"A request with this Idempotency-Key was already submitted",
				GetRequestID(c),
			))
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if err := store.Forget(ctx, scoped); err != nil {
				logger.Warn("Failed to release idempotency key", zap.Error(err))
			}
		}
	}
}
