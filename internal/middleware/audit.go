package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clanstats-api/internal/service"
)

// AuditSource stores the caller's address and user agent on the request context so audit
// records written further down carry them.
func AuditSource() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := service.WithAuditSource(c.Request.Context(), service.AuditSource{
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
