package main

import (
	"context"
	_ "embed"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ndajr/tinyurl-go/internal/cachestore"
	"github.com/ndajr/tinyurl-go/internal/config"
	"github.com/ndajr/tinyurl-go/internal/datastore"
	"github.com/ndajr/tinyurl-go/internal/httpserver"
	"github.com/ndajr/tinyurl-go/internal/rpcserver"
	"github.com/ndajr/tinyurl-go/internal/shortener"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	version   = "dev"
	gitCommit = "none"
)

//go:embed apidocs.swagger.json
var swaggerJSON []byte

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, shutdown := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer shutdown()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	logger.Info("starting tinyurl service", "version", version, "commit", gitCommit)

	db, err := datastore.NewStore(ctx, logger, cfg.App, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Error("failed to connect to datastore", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cache, err := cachestore.NewCache(ctx, logger, cfg.Redis, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Error("failed to connect to cache", "error", err)
		os.Exit(1)
	}
	defer cache.Close()

	svc, err := shortener.NewService(logger, cfg.Shortener, cache, db, db, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Error("failed to create shortener", "error", err)
		os.Exit(1)
	}
	defer svc.Wait()

	limiter := cachestore.NewRateLimiter(logger, cache, cfg.RateLimiter)
	handler, err := httpserver.NewHandler(logger, svc, db, httpserver.Options{
		BaseURL:      cfg.App.BaseURL,
		ErrorPageURL: cfg.App.ErrorPageURL,
		SwaggerJSON:  swaggerJSON,
		RateLimit:    limiter.Middleware,
	})
	if err != nil {
		logger.Error("failed to build HTTP handler", "error", err)
		os.Exit(1)
	}

	var wg sync.WaitGroup

	health := rpcserver.NewHealthService(logger, map[string]datastore.Pinger{
		"postgres": db,
		"redis":    cache,
	})
	grpcSrv := rpcserver.NewServer(logger, health)
	if runErr := grpcSrv.Run(ctx, cfg.App.GrpcEndpoint, &wg); runErr != nil {
		logger.Error("failed to run gRPC server", "error", runErr)
		os.Exit(1)
	}

	httpSrv := httpserver.NewServer(logger, cfg.App.HttpEndpoint, handler)
	if runErr := httpSrv.Run(ctx, &wg); runErr != nil {
		logger.Error("failed to run HTTP server", "error", runErr)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("powering down tinyurl service")
	wg.Wait()
}
