package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleetline/fleet-api/internal/models"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
	"github.com/fleetline/fleet-api/pkg/middleware/requestid"
)

// ErrorLogWriter persists server-side failures.
type ErrorLogWriter interface {
	Create(ctx context.Context, entry *models.ErrorLog) error
}

// ErrorLog writes every 5xx response to error_logs together with the request context.
// response.Error attaches the original error to the gin context for this purpose.
func ErrorLog(writer ErrorLogWriter, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 500 || writer == nil {
			return
		}

		code := appErrors.ErrInternal.Code
		message := appErrors.ErrInternal.Message
		var details []string
		for _, ginErr := range c.Errors {
			appErr := appErrors.FromError(ginErr.Err)
			code, message = appErr.Code, appErr.Message
			details = append(details, ginErr.Err.Error())
		}

		entry := &models.ErrorLog{
			RequestID: optional(requestid.Value(c)),
			Method:    optional(c.Request.Method),
			Path:      optional(c.Request.URL.Path),
			Code:      code,
			Message:   message,
		}
		if actor, ok := ActorFromContext(c); ok {
			entry.ActorID = actor.IDPtr()
		}
		if len(details) > 0 {
			detail := strings.Join(details, "; ")
			entry.Detail = &detail
		}

		logger.Error("request failed",
			zap.Int("status", status),
			zap.String("code", code),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", requestid.Value(c)),
			zap.Strings("errors", details),
		)
		if err := writer.Create(context.WithoutCancel(c.Request.Context()), entry); err != nil {
			logger.Warn("failed to write error log", zap.Error(err))
		}
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
