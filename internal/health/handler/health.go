// Package handler reports liveness and readiness over HTTP and the standard gRPC health service.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"auth-service/internal/platform/httpx"
)

// WelcomeMessage is served on GET /.
const WelcomeMessage = "Welcome to auth-service!"

const checkTimeout = 2 * time.Second

// Pinger is implemented by *sql.DB and used for readiness.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker verifies the in-process policy engine, e.g. *rbac.PolicyGate.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Checker runs the readiness checks. Either dependency may be nil and is then skipped.
type Checker struct {
	pinger Pinger
	policy PolicyChecker
	log    *slog.Logger
}

// NewChecker returns a Checker.
func NewChecker(pinger Pinger, policy PolicyChecker, log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{pinger: pinger, policy: policy, log: log}
}

// Check returns the first failing dependency, or nil when the service is ready.
func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	var errs []error
	if c.pinger != nil {
		if err := c.pinger.PingContext(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.policy != nil {
		if err := c.policy.HealthCheck(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Welcome handles GET /.
func Welcome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(WelcomeMessage))
}

// Healthz handles GET /healthz: 200 when ready, 503 otherwise.
func (c *Checker) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := c.Check(r.Context()); err != nil {
		c.log.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Watch updates the overall serving status of hs every interval until ctx is done.
func (c *Checker) Watch(ctx context.Context, hs *health.Server, interval time.Duration) {
	c.update(ctx, hs)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.update(ctx, hs)
		}
	}
}

func (c *Checker) update(ctx context.Context, hs *health.Server) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := c.Check(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		c.log.WarnContext(ctx, "health check failed", slog.Any("error", err))
	}
	hs.SetServingStatus("", status)
}
