package rpcserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Server struct {
	logger     *slog.Logger
	grpcServer *grpc.Server
}

// NewServer builds a gRPC server exposing the health service, instrumented
// with the default Prometheus registry.
func NewServer(logger *slog.Logger, health HealthService) Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
		grpc.ChainStreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	)
	healthpb.RegisterHealthServer(grpcServer, health)
	grpc_prometheus.Register(grpcServer)

	return Server{
		logger:     logger,
		grpcServer: grpcServer,
	}
}

func (s Server) Run(ctx context.Context, address string, wg *sync.WaitGroup) error {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis, wg)
}

// Serve accepts connections on lis until ctx is done.
func (s Server) Serve(ctx context.Context, lis net.Listener, wg *sync.WaitGroup) error {
	go func() {
		s.logger.Info("starting tinyurl gRPC service", "addr", lis.Addr().String())
		if serveErr := s.grpcServer.Serve(lis); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			s.logger.Error("gRPC server failed to serve", "error", serveErr)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		s.logger.Info("gRPC server shutting down")
		s.grpcServer.GracefulStop()
	}()

	return nil
}
