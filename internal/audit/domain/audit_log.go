package domain

import "time"

// AuditLog represents an audit event.
type AuditLog struct {
	ID        string
	UserID    *int64 // nil when the actor is unknown (e.g. failed login)
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
