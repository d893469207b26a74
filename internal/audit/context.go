package audit

import "context"

type contextKey struct{ name string }

var clientIPKey = contextKey{"client_ip"}

// UnknownIP is recorded when no client address is known.
const UnknownIP = "unknown"

// WithClientIP returns a copy of ctx carrying the client IP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP returns the client IP stored in ctx, or UnknownIP.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey).(string); ok && ip != "" {
		return ip
	}
	return UnknownIP
}
