package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/healthfirst/portal-api/config"
	"github.com/healthfirst/portal-api/internal/email"
	"github.com/healthfirst/portal-api/internal/flow"
	"github.com/healthfirst/portal-api/internal/handler"
	authhandler "github.com/healthfirst/portal-api/internal/handler/auth"
	availabilityhandler "github.com/healthfirst/portal-api/internal/handler/availability"
	"github.com/healthfirst/portal-api/internal/middleware"
	"github.com/healthfirst/portal-api/internal/model"
	"github.com/healthfirst/portal-api/internal/router"
	authService "github.com/healthfirst/portal-api/internal/service/auth"
	availabilityService "github.com/healthfirst/portal-api/internal/service/availability"
	"github.com/healthfirst/portal-api/internal/session"
	"github.com/healthfirst/portal-api/internal/upstream"
	jwtauth "github.com/healthfirst/portal-api/pkg/auth"
	"github.com/healthfirst/portal-api/pkg/logger"
	"github.com/healthfirst/portal-api/pkg/metrics"
	"github.com/healthfirst/portal-api/pkg/validator"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to config.yml")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Setup(&cfg.Log)
	zl, err := logger.NewZap(&cfg.Log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build service logger")
	}
	defer func() { _ = zl.Sync() }()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg, cfg.Metrics.Namespace)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := session.Open(ctx, cfg.Session, m)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Session.Backend).Msg("failed to open session store")
	}
	defer store.Close()

	backend, err := newBackend(cfg, m, zl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize backend")
	}

	if err := middleware.RegisterValidation(time.Now); err != nil {
		log.Fatal().Err(err).Msg("failed to register validation rules")
	}

	// Services
	sessions := session.NewManager(store, cfg.Session.TTL, zl)
	flows := flow.NewRegistry(flow.RegistryConfig{
		IdleTTL:         cfg.Flows.IdleTTL,
		CleanupInterval: cfg.Flows.CleanupInterval,
	}, flow.Deps{
		Backend:   backend,
		Sessions:  sessions,
		Validator: validator.New(),
		Metrics:   m,
		Logger:    zl,
	})
	drafts := availabilityService.NewService(availabilityService.Config{
		IdleTTL:         cfg.Drafts.IdleTTL,
		CleanupInterval: cfg.Drafts.CleanupInterval,
	}, backend, m, zl)

	// Handlers
	h := handler.NewHandler(reg, map[string]handler.ReadinessProbe{
		"session_store": session.Probe(store),
	})

	routerConfig := router.RouterConfig{
		Mode:         cfg.Server.Mode,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		CORSConfig:   cfg.CORS,
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerConfig.RateBurst = cfg.RateLimit.Burst
	}

	r := router.NewRouter(
		h,
		authhandler.NewHandler(model.RoleProvider, flows, sessions, drafts),
		authhandler.NewHandler(model.RolePatient, flows, sessions, nil),
		availabilityhandler.NewHandler(drafts, m),
		sessions,
		m,
		routerConfig,
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().
			Int("port", cfg.Server.Port).
			Str("auth_mode", cfg.Auth.Mode).
			Str("session_backend", cfg.Session.Backend).
			Msg("starting portal api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

// newBackend returns the remote API client, or the in-process directory when
// running simulated.
func newBackend(cfg *config.Config, m *metrics.Metrics, zl *zap.Logger) (authService.Backend, error) {
	if cfg.Auth.Mode == authService.ModeRemote {
		return upstream.NewClient(cfg.Upstream, m, zl), nil
	}

	tokens, err := jwtauth.NewTokenIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}
	mailer := email.NewService(cfg.Email, zl)
	return authService.NewDirectory(cfg.Auth.Directory, tokens, mailer, zl)
}
