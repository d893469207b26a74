// Package telemetry carries auth events out of the process (OTel logs) and exposes
// Prometheus metrics for the HTTP edge.
package telemetry

import (
	"context"
	"time"
)

// Event is one auth lifecycle event (register, login, refresh, logout ...).
type Event struct {
	Type      string
	UserID    int64 // zero when the principal is unknown (e.g. failed login)
	Source    string
	IP        string
	Metadata  []byte
	CreatedAt time.Time
}

// EventEmitter emits auth events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}
