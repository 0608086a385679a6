package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/fleetline/fleet-api/pkg/errors"
	"github.com/fleetline/fleet-api/pkg/response"
)

// CronSecret guards scheduler endpoints with a shared bearer secret. An empty secret
// disables the endpoint.
func CronSecret(secret string) gin.HandlerFunc {
	expected := []byte(secret)
	return func(c *gin.Context) {
		if len(expected) == 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "scheduled sync is not configured"))
			c.Abort()
			return
		}
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), expected) != 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid cron secret"))
			c.Abort()
			return
		}
		c.Next()
	}
}
