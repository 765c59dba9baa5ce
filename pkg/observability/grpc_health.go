package observability

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported alongside the overall status
const ServiceName = "cloudpayments.v1.Gateway"

// GRPCHealthReporter mirrors HealthChecker results into a grpc health server
// so orchestrators can probe with grpc_health_probe.
type GRPCHealthReporter struct {
	server   *health.Server
	checker  *HealthChecker
	interval time.Duration
	logger   *zap.Logger
}

// NewGRPCHealthReporter creates a reporter around a fresh health server
func NewGRPCHealthReporter(checker *HealthChecker, interval time.Duration, logger *zap.Logger) *GRPCHealthReporter {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &GRPCHealthReporter{
		server:   health.NewServer(),
		checker:  checker,
		interval: interval,
		logger:   logger,
	}
}

// Server returns the health server to register on a grpc.Server
func (r *GRPCHealthReporter) Server() *health.Server {
	return r.server
}

// Update runs one check and publishes the result
func (r *GRPCHealthReporter) Update(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := r.checker.Check(ctx)

	serving := healthpb.HealthCheckResponse_SERVING
	if status.Status == "unhealthy" {
		serving = healthpb.HealthCheckResponse_NOT_SERVING
		r.logger.Warn("Health check failed", zap.Any("checks", status.Checks))
	}

	r.server.SetServingStatus("", serving)
	r.server.SetServingStatus(ServiceName, serving)
	return serving
}

// Run updates the status every interval until ctx is done, then marks the service as shutting down
func (r *GRPCHealthReporter) Run(ctx context.Context) {
	r.Update(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.server.Shutdown()
			return
		case <-ticker.C:
			r.Update(ctx)
		}
	}
}
