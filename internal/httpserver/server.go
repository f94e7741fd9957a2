package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerui "github.com/swaggest/swgui/v5emb"
)

const docsURL = "/docs/"

// Options configures the HTTP surface.
type Options struct {
	// BaseURL prefixes issued codes in create responses.
	BaseURL string
	// ErrorPageURL receives redirects for unknown or malformed codes.
	ErrorPageURL string
	SwaggerJSON  []byte
	Gatherer     prometheus.Gatherer
	// RateLimit wraps the create endpoint when set.
	RateLimit func(http.Handler) http.Handler
}

type routes struct {
	logger       *slog.Logger
	api          api
	errorPageURL string
}

type Server struct {
	server *http.Server
	logger *slog.Logger
}

func NewServer(logger *slog.Logger, httpAddress string, handler http.Handler) *Server {
	server := &http.Server{
		Addr:              httpAddress,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return &Server{server: server, logger: logger}
}

// NewHandler wires the JSON API on a gateway mux and the redirect, docs and
// metrics endpoints around it.
func NewHandler(logger *slog.Logger, links Shortener, accounts Accounts, opts Options) (http.Handler, error) {
	rs := &routes{
		logger:       logger,
		errorPageURL: opts.ErrorPageURL,
		api: api{
			logger:   logger,
			links:    links,
			accounts: accounts,
			baseURL:  opts.BaseURL,
		},
	}
	if rs.errorPageURL == "" {
		rs.errorPageURL = "/notfound"
	}

	gwmux := runtime.NewServeMux(runtime.WithErrorHandler(NewCustomHTTPErrorHandler(logger)))
	gatewayRoutes := []struct {
		method, pattern string
		handler         runtime.HandlerFunc
	}{
		{http.MethodPost, "/tiny", rs.api.createTiny},
		{http.MethodPost, "/user", rs.api.createUser},
		{http.MethodGet, "/user/{name}", rs.api.getUser},
		{http.MethodGet, "/user/{name}/clicks", rs.api.getUserClicks},
	}
	for _, route := range gatewayRoutes {
		if err := gwmux.HandlePath(route.method, route.pattern, route.handler); err != nil {
			return nil, fmt.Errorf("httpserver: register %s %s: %w", route.method, route.pattern, err)
		}
	}

	var create http.Handler = gwmux
	if opts.RateLimit != nil {
		create = opts.RateLimit(gwmux)
	}

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.Handle("POST /tiny", create)
	mux.Handle("POST /user", gwmux)
	mux.Handle("GET /user/", gwmux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(opts.SwaggerJSON); err != nil {
			logger.Error("failed to respond with swagger.json content", "error", err)
		}
	})
	mux.Handle("GET "+docsURL, swaggerui.New("TinyURL API", "/swagger.json", docsURL))
	mux.HandleFunc("GET /notfound", notFoundPage)
	mux.HandleFunc("GET /", rs.redirectHandler())

	return mux, nil
}

func (s *Server) Run(ctx context.Context, wg *sync.WaitGroup) error {
	lis, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	go func() {
		s.logger.Info("starting tinyurl http service", "addr", s.server.Addr)
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed to serve", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		s.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server graceful shutdown failed", "error", err)
		}
	}()

	return nil
}
