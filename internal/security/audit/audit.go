package audit

import (
	"context"
	"log/slog"
	"time"
)

// Logger emits structured audit records for security-relevant actions.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, tenantID, userID int64, action, resource string, resourceID int64, status, details string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.Int64("resource_id", resourceID),
		slog.Int64("tenant_id", tenantID),
		slog.Int64("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogOrderCreated(ctx context.Context, tenantID, userID, orderID int64, orderNumber string) {
	al.LogAction(ctx, tenantID, userID, "order_create", "order", orderID, "success", orderNumber)
}

func (al *Logger) LogStatusChange(ctx context.Context, tenantID, userID, orderID int64, from, to string) {
	al.LogAction(ctx, tenantID, userID, "status_change", "order", orderID, "success", from+" -> "+to)
}

func (al *Logger) LogDenied(ctx context.Context, tenantID, userID int64, reason string) {
	al.LogAction(ctx, tenantID, userID, "access_denied", "api", 0, "denied", reason)
}

func (al *Logger) LogTenantPurge(ctx context.Context, tenantID int64, details string) {
	al.LogAction(ctx, tenantID, 0, "tenant_purge", "tenant", tenantID, "success", details)
}
