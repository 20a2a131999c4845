package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clanstats-api/internal/models"
	appErrors "github.com/noah-isme/clanstats-api/pkg/errors"
	"github.com/noah-isme/clanstats-api/pkg/response"
)

// RequireRoles only lets callers holding one of roles through. It must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role not permitted to review submissions"))
			c.Abort()
			return
		}
		c.Next()
	}
}
