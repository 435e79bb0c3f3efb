package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"momo-gateway/internal/config"
	"momo-gateway/internal/handlers"
	"momo-gateway/internal/metrics"
	"momo-gateway/internal/reconcile"
	"momo-gateway/internal/services"
	"momo-gateway/internal/store"
	"momo-gateway/pkg/collections"
	"momo-gateway/pkg/logger"
	"momo-gateway/pkg/msisdn"
	"momo-gateway/routes"
)

func main() {
	// Load configuration
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&logger.Config{
		Level:   logger.LogLevel(cfg.Log.Level),
		Format:  cfg.Log.Format,
		AppName: cfg.App.Name,
		Version: cfg.App.Version,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Fatalf("%v", err)
	}
}

// run owns every resource the server opens; its deferred cleanup runs before
// main exits.
func run(cfg *config.Config, log *logger.Logger) error {
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(registry)

	// Payment store
	paymentStore, err := store.NewRedisStore(ctx, &store.Options{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		RecordTTL:    cfg.Redis.RecordTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer paymentStore.Close()

	numbering := msisdn.DefaultRegistry()
	countries, err := numbering.Resolve(append([]string{cfg.Momo.DefaultCountry}, cfg.Momo.AlternateCountries...)...)
	if err != nil {
		return fmt.Errorf("failed to resolve mobile number countries: %w", err)
	}

	// Collections client; authorizes once before the server accepts traffic
	client, err := collections.New(ctx, collections.Config{
		Username:        cfg.Momo.Username,
		Password:        cfg.Momo.Password,
		SubscriptionKey: cfg.Momo.SubscriptionKey,
		BaseURL:         cfg.Momo.BaseURL,
		CallbackHost:    cfg.Momo.CallbackHost,
		PayerMessage:    cfg.Momo.PayerMessage,
		PayeeNote:       cfg.Momo.PayeeNote,
		Timeout:         cfg.Momo.HTTPTimeout,
		Logger:          log,
		Recorder:        recorder,
	})
	if err != nil {
		return fmt.Errorf("failed to authorize collections client: %w", err)
	}

	paymentService := services.NewPaymentService(client, paymentStore, services.Countries{
		Default:    countries[0],
		Alternates: countries[1:],
	}, log, recorder)

	router, err := routes.NewRouter(routes.RouterConfig{
		JWTSecret:          cfg.Security.JWTSecret,
		CORSAllowedOrigins: cfg.Security.CORSAllowedOrigins,
		TrustedProxies:     cfg.Security.TrustedProxies,
		Gatherer:           registry,
	}, log, handlers.NewPaymentHandler(paymentService, log), handlers.NewHealthHandler(paymentStore, cfg.App.Version))
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}
	if cfg.Security.JWTSecret == "" {
		log.Warn("JWT_SECRET is empty, merchant endpoints are unauthenticated")
	}

	var scheduler *reconcile.Scheduler
	if cfg.Reconcile.Enabled {
		scheduler = reconcile.NewScheduler(paymentService, cfg.Reconcile.Schedule, cfg.Reconcile.Timeout, log)
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start reconciliation: %w", err)
		}
	}

	server := &http.Server{
		Addr:    cfg.App.Address(),
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var failure error
	select {
	case <-ctx.Done():
		log.Info("Shutting down server")
	case err := <-serveErr:
		failure = fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if scheduler != nil {
		select {
		case <-scheduler.Stop().Done():
		case <-shutdownCtx.Done():
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	return failure
}
