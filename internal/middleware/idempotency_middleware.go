package middleware

import (
	"net/http"
	"strings"

	"restaurant_backend/internal/cache"
	"restaurant_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// IdempotencyHeader carries the client-chosen key for a retryable submission.
const IdempotencyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 128

// IdempotencyMiddleware rejects a replayed submission with 409 DUPLICATE_REQUEST. Requests without
// the header pass through. A request that ends with a 4xx or 5xx releases its key so it can be
// retried. A nil store disables the check.
func IdempotencyMiddleware(store cache.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
		if store == nil || key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			utils.RespondValidationFailed(c, IdempotencyHeader+" is too long")
			return
		}
		if userID, ok := c.Get("userID"); ok {
			if id, ok := userID.(int64); ok {
				key = utils.Int64ToStr(id) + ":" + key
			}
		}

		ctx := c.Request.Context()
		acquired, err := store.Acquire(ctx, key)
		if err != nil {
			// Redis outage must not block order taking.
			utils.LogError(err, "IdempotencyMiddleware: key check failed, continuing without it")
			c.Next()
			return
		}
		if !acquired {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeDuplicateRequest,
				"This request was already submitted.", IdempotencyHeader+" "+key))
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if err := store.Release(ctx, key); err != nil {
				utils.LogError(err, "IdempotencyMiddleware: failed to release key")
			}
		}
	}
}
