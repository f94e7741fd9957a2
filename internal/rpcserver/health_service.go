package rpcserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ndajr/tinyurl-go/internal/datastore"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName is the name clients may pass to the health check.
const ServiceName = "tinyurl"

var _ healthpb.HealthServer = (*HealthService)(nil)

// HealthService reports SERVING while every dependency answers a ping.
type HealthService struct {
	healthpb.UnimplementedHealthServer
	logger *slog.Logger
	deps   map[string]datastore.Pinger
}

func NewHealthService(logger *slog.Logger, deps map[string]datastore.Pinger) HealthService {
	return HealthService{
		logger: logger,
		deps:   deps,
	}
}

func (h HealthService) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if svc := req.GetService(); svc != "" && svc != ServiceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
	}
	if err := h.up(ctx); err != nil {
		h.logger.Warn("health check failed", "error", err)
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

func (h HealthService) up(ctx context.Context) error {
	for name, dep := range h.deps {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			return fmt.Errorf("health: %s not ok: %w", name, err)
		}
	}
	return nil
}
