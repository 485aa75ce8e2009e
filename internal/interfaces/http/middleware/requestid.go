// Package middleware holds the gin middleware chain for the citekeep API.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is echoed back on every response.
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
)

// RequestID assigns each request a unique id, honoring one supplied by the
// caller. The id is stored in the gin context and echoed in the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID, or "" outside the chain.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
