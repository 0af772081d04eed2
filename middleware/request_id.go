package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextRequestIDKey stores the per-request correlation id in the Gin context.
const ContextRequestIDKey = "request_id"

// RequestID assigns every request a random correlation id and echoes it in
// the X-Request-ID response header. Incoming X-Request-ID values from
// trusted proxies are preserved.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		ctx.Set(ContextRequestIDKey, id)
		ctx.Header("X-Request-ID", id)
		ctx.Next()
	}
}
