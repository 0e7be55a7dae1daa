package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/evotehq/evote-backend/internal/audit"
	"github.com/evotehq/evote-backend/internal/logging"
	"github.com/evotehq/evote-backend/internal/models"
)

// Audit records the request outcome under the given action name after the
// handler chain finishes. Unauthenticated requests are attributed to their
// client IP.
func Audit(logger *audit.Logger, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		entry := models.AuditEntry{
			ActorType: "voter",
			ActorID:   c.ClientIP(),
			Action:    action,
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			Status:    c.Writer.Status(),
			IP:        c.ClientIP(),
			Timestamp: time.Now(),
		}
		if p, ok := PrincipalFrom(c); ok {
			entry.ActorType = string(p.Kind)
			entry.ActorID = p.ID
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := logger.Log(ctx, entry); err != nil {
			logging.Error("audit logging failed", zap.String("action", action), zap.Error(err))
		}
	}
}
