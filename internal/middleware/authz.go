package middleware

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleetline/fleet-api/internal/authz"
	"github.com/fleetline/fleet-api/internal/models"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
	"github.com/fleetline/fleet-api/pkg/response"
)

// AuditLogWriter persists audit rows.
type AuditLogWriter interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// Guard builds capability middleware. Denials are logged and written to audit_logs.
type Guard struct {
	authorizer *authz.Authorizer
	auditLogs  AuditLogWriter
	logger     *zap.Logger
}

// NewGuard constructs a Guard. auditLogs may be nil.
func NewGuard(authorizer *authz.Authorizer, auditLogs AuditLogWriter, logger *zap.Logger) *Guard {
	if authorizer == nil {
		authorizer = authz.New(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{authorizer: authorizer, auditLogs: auditLogs, logger: logger}
}

// Authorizer exposes the underlying authorizer for services.
func (g *Guard) Authorizer() *authz.Authorizer {
	return g.authorizer
}

// Require passes when the actor holds any of the capabilities at some scope. Ownership of
// the specific record is checked by the service once it is loaded.
func (g *Guard) Require(capabilities ...authz.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		resource := authz.Resource{Kind: c.FullPath(), ID: c.Param("id")}
		var decision authz.Decision
		for _, capability := range capabilities {
			decision = g.authorizer.Authorize(actor, capability, resource)
			if decision.Allowed {
				c.Next()
				return
			}
		}

		g.deny(c, actor, capabilities, decision.Reason)
		response.Error(c, decision.Err())
		c.Abort()
	}
}

func (g *Guard) deny(c *gin.Context, actor models.Actor, capabilities []authz.Capability, reason string) {
	g.logger.Warn("access denied",
		zap.String("actor_id", actor.ID),
		zap.String("role", string(actor.Role)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Any("capabilities", capabilities),
		zap.String("reason", reason),
	)
	if g.auditLogs == nil {
		return
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"method":       c.Request.Method,
		"path":         c.Request.URL.Path,
		"capabilities": capabilities,
		"reason":       reason,
	})
	var resourceID *string
	if id := c.Param("id"); id != "" {
		resourceID = &id
	}
	if err := g.auditLogs.Create(context.WithoutCancel(c.Request.Context()), &models.AuditLog{
		UserID:     actor.IDPtr(),
		Action:     models.AuditActionAccessDenied,
		Resource:   c.FullPath(),
		ResourceID: resourceID,
		NewValues:  payload,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
	}); err != nil {
		g.logger.Warn("failed to write access audit", zap.Error(err))
	}
}
