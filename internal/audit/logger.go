// Package audit records security-relevant events: login, refresh, logout and admin mutations.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"auth-service/internal/audit/domain"
	auditrepo "auth-service/internal/audit/repository"
	"auth-service/internal/telemetry"
)

// Auth lifecycle actions.
const (
	ActionRegister       = "user.register"
	ActionLoginSuccess   = "auth.login_success"
	ActionLoginFailure   = "auth.login_failure"
	ActionRefresh        = "auth.refresh"
	ActionLogout         = "auth.logout"
	ActionRefreshRevoked = "auth.refresh_revoked"
)

// ResourceSession is the resource for auth lifecycle events.
const ResourceSession = "session"

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID int64, action, resource, metadata string)
}

// Logger persists audit events and mirrors them to the telemetry pipeline.
type Logger struct {
	repo    auditrepo.Repository
	emitter telemetry.EventEmitter
	metrics *telemetry.Metrics
	log     *slog.Logger
	now     func() time.Time
}

// NewLogger returns a Logger. Any of repo, emitter and metrics may be nil.
func NewLogger(repo auditrepo.Repository, emitter telemetry.EventEmitter, metrics *telemetry.Metrics, log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{repo: repo, emitter: emitter, metrics: metrics, log: log, now: time.Now}
}

// LogEvent writes one audit entry. userID 0 means the actor is unknown.
// The client IP is taken from ctx (see WithClientIP).
func (l *Logger) LogEvent(ctx context.Context, userID int64, action, resource, metadata string) {
	if l == nil {
		return
	}
	ip := ClientIP(ctx)
	now := l.now().UTC()

	l.metrics.CountEvent(action)

	if l.repo != nil {
		entry := &domain.AuditLog{
			ID:        uuid.New().String(),
			Action:    action,
			Resource:  resource,
			IP:        ip,
			Metadata:  metadata,
			CreatedAt: now,
		}
		if userID > 0 {
			uid := userID
			entry.UserID = &uid
		}
		if err := l.repo.Create(ctx, entry); err != nil {
			l.log.Warn("audit: failed to log event",
				slog.String("action", action), slog.String("resource", resource), slog.Any("error", err))
		}
	}

	telemetry.EmitAsync(l.log, l.emitter, &telemetry.Event{
		Type:      action,
		UserID:    userID,
		Source:    resource,
		IP:        ip,
		Metadata:  []byte(metadata),
		CreatedAt: now,
	})
}

// Nop is an AuditLogger that drops everything.
type Nop struct{}

// LogEvent implements AuditLogger.
func (Nop) LogEvent(context.Context, int64, string, string, string) {}
