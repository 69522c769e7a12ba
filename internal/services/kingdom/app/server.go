// Package server wires the kingdom runtime and its HTTP and gRPC lifecycles.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/net/netutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/louisbranch/throne-of-dust/internal/platform/timeouts"
	kingdomgrpc "github.com/louisbranch/throne-of-dust/internal/services/kingdom/api/grpc/kingdom"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/api/rest"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/audit"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/auth"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/tuning"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/feed"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/service"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/storage/sqlite"
)

// Config holds everything the server needs to boot.
type Config struct {
	HTTPAddr   string
	GRPCAddr   string
	DBPath     string
	JWTSecret  string
	JWTTTL     time.Duration
	TuningPath string
	AuditDir   string
	// MaxConns caps concurrent connections per listener. Zero disables the cap.
	MaxConns int
}

// Server hosts the kingdom HTTP and gRPC APIs over one shared store.
type Server struct {
	httpListener net.Listener
	grpcListener net.Listener
	httpServer   *http.Server
	grpcServer   *grpc.Server
	health       *health.Server
	store        *sqlite.Store
	hub          *feed.Hub
	audit        *audit.Writer
}

// New opens storage, restores the raid feed and binds both listeners.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	rules, err := loadRules(cfg.TuningPath)
	if err != nil {
		return nil, err
	}
	store, err := openKingdomStore(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	s := &Server{
		store: store,
		hub:   feed.NewHub(),
	}
	if cfg.AuditDir != "" {
		s.audit = audit.NewWriter(cfg.AuditDir)
	}
	if err := s.restoreFeed(ctx); err != nil {
		s.Close()
		return nil, err
	}

	svcCfg := service.Config{
		Store:    store,
		Rules:    rules,
		Tokens:   auth.TokenConfig{Secret: []byte(cfg.JWTSecret), TTL: cfg.JWTTTL},
		Notifier: s.hub,
	}
	if s.audit != nil {
		svcCfg.Audit = s.audit
	}
	svc, err := service.New(svcCfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	handler, err := rest.New(svc, s.hub)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.httpServer = &http.Server{
		Handler:           handler.Routes(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	s.grpcServer = grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(kingdomgrpc.Interceptors(svc)...),
	)
	kingdomgrpc.Register(s.grpcServer, kingdomgrpc.NewService(svc))
	s.health = health.NewServer()
	grpc_health_v1.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(kingdomgrpc.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	if s.httpListener, err = listen(cfg.HTTPAddr, cfg.MaxConns); err != nil {
		s.Close()
		return nil, err
	}
	if s.grpcListener, err = listen(cfg.GRPCAddr, cfg.MaxConns); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// HTTPAddr returns the bound HTTP listener address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the bound gRPC listener address.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// Run creates and serves a kingdom server until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve runs both servers until ctx ends or either fails, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("kingdom http listening at %v", s.httpListener.Addr())
	log.Printf("kingdom grpc listening at %v", s.grpcListener.Addr())

	httpErr := make(chan error, 1)
	grpcErr := make(chan error, 1)
	go func() { httpErr <- s.httpServer.Serve(s.httpListener) }()
	go func() { grpcErr <- s.grpcServer.Serve(s.grpcListener) }()

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-httpErr:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("serve http: %w", err)
		}
		httpErr <- nil
	case err := <-grpcErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErr = fmt.Errorf("serve grpc: %w", err)
		}
		grpcErr <- nil
	}

	s.health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	// Hijacked feed sockets are not tracked by Shutdown; closing the hub ends them.
	s.hub.Close()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown http: %v", err)
	}
	stopGRPC(shutdownCtx, s.grpcServer)

	<-httpErr
	<-grpcErr
	return serveErr
}

// Close releases every resource. It is safe to call more than once.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	for _, l := range []net.Listener{s.httpListener, s.grpcListener} {
		if l != nil {
			_ = l.Close()
		}
	}
	if s.hub != nil {
		s.hub.Close()
	}
	if s.audit != nil {
		if err := s.audit.Close(); err != nil {
			log.Printf("close audit writer: %v", err)
		}
		s.audit = nil
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close kingdom store: %v", err)
		}
		s.store = nil
	}
}

func (s *Server) restoreFeed(ctx context.Context) error {
	active, err := s.store.ListActiveRaids(ctx)
	if err != nil {
		return fmt.Errorf("list active raids: %w", err)
	}
	s.hub.Restore(active)
	if len(active) > 0 {
		log.Printf("restored %d raid due timers", len(active))
	}
	return nil
}

// stopGRPC drains in-flight calls, forcing a stop once ctx expires.
func stopGRPC(ctx context.Context, srv *grpc.Server) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		srv.Stop()
		<-done
	}
}

func listen(addr string, maxConns int) (net.Listener, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	if maxConns > 0 {
		listener = netutil.LimitListener(listener, maxConns)
	}
	return listener, nil
}

func loadRules(path string) (tuning.Rules, error) {
	if strings.TrimSpace(path) == "" {
		return tuning.Default()
	}
	rules, err := tuning.Load(path)
	if err != nil {
		return tuning.Rules{}, fmt.Errorf("load tuning: %w", err)
	}
	return rules, nil
}

func openKingdomStore(ctx context.Context, path string) (*sqlite.Store, error) {
	if strings.TrimSpace(path) == "" {
		path = filepath.Join("data", "kingdom.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open kingdom sqlite store: %w", err)
	}
	return store, nil
}
