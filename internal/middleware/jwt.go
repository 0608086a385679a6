package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fleetline/fleet-api/internal/models"
	"github.com/fleetline/fleet-api/internal/service"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
	"github.com/fleetline/fleet-api/pkg/logger"
	"github.com/fleetline/fleet-api/pkg/middleware/requestid"
	"github.com/fleetline/fleet-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// ContextActorKey is the gin context key storing the authenticated actor.
const ContextActorKey = "actor"

// TokenValidator verifies access tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token. Tokens are validated on every
// request so role changes take effect when the token expires.
func JWT(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		actor := models.ActorFromClaims(claims)
		c.Set(ContextUserKey, claims)
		c.Set(ContextActorKey, actor)
		c.Set(logger.ActorKey, actor.ID)
		c.Request = c.Request.WithContext(service.ContextWithRequest(c.Request.Context(), requestInfo(c, actor.ID)))
		c.Next()
	}
}

// RequestContext attaches request metadata to the request context for error logs and
// audit rows written further down the stack.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(service.ContextWithRequest(c.Request.Context(), requestInfo(c, "")))
		c.Next()
	}
}

// ActorFromContext returns the authenticated actor.
func ActorFromContext(c *gin.Context) (models.Actor, bool) {
	value, ok := c.Get(ContextActorKey)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := value.(models.Actor)
	return actor, ok
}

func requestInfo(c *gin.Context, actorID string) service.RequestInfo {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	return service.RequestInfo{
		RequestID: requestid.Value(c),
		Method:    c.Request.Method,
		Path:      path,
		ActorID:   actorID,
		ClientIP:  c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}
