package server

import (
	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"auth-service/internal/server/interceptors"
)

// healthCheckMethod is polled by orchestrators and not worth a log line per probe.
const healthCheckMethod = "/grpc.health.v1.Health/Check"

// NewGRPCServer returns a gRPC server exposing the standard health service, plus the
// health.Server whose status the caller keeps current (see health/handler.Checker.Watch).
func NewGRPCServer(log *slog.Logger) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors.LoggingUnary(log, map[string]bool{healthCheckMethod: true})),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)
	return s, hs
}
