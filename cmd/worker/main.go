package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/carehospital/admin-api/internal/bootstrap"
	"github.com/carehospital/admin-api/internal/config"
	"github.com/carehospital/admin-api/internal/email"
	"github.com/carehospital/admin-api/internal/repository"
	"github.com/carehospital/admin-api/internal/service/notification"
	"github.com/carehospital/admin-api/pkg/logger"
	"github.com/carehospital/admin-api/pkg/metrics"
	"github.com/carehospital/admin-api/pkg/worker"
)

const serviceName = "care-reminder-worker"

func setupHealthCheck(port int, store repository.CollectionStore, registry *prometheus.Registry, l *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if _, err := store.Keys(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.ZL.Error().Err(err).Msg("Health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger
	l := logger.InitGlobal(&logger.Config{
		Level:   logger.ParseLevel(cfg.Log.Level),
		Format:  cfg.Log.Format,
		Service: serviceName,
	})

	loc, err := time.LoadLocation(cfg.Worker.Timezone)
	if err != nil {
		l.ZL.Fatal().Err(err).Str("timezone", cfg.Worker.Timezone).Msg("Invalid worker timezone")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics("care", registry)

	storage, err := bootstrap.OpenStorage(ctx, cfg, m)
	if err != nil {
		l.ZL.Fatal().Err(err).Msg("Failed to open collection store")
	}
	defer func() {
		if err := storage.Close(); err != nil {
			l.ZL.Error().Err(err).Msg("Failed to close collection store")
		}
	}()

	var emailSvc email.Service
	if cfg.SMTP.Enabled() {
		emailSvc = email.NewSMTPService(cfg.SMTP)
	} else {
		l.ZL.Warn().Msg("SMTP not configured, reminder emails are logged only")
		emailSvc = email.NewLogService(l.ZL)
	}
	hospital := notification.Hospital{Name: cfg.Hospital.Name, Phone: cfg.Hospital.Phone}
	dispatcher := notification.NewService(emailSvc, notification.NewHandoff("", m), hospital, m)

	processor := worker.NewReminderProcessor(
		storage.Collections,
		dispatcher,
		worker.ReminderProcessorConfig{
			PollInterval: cfg.Worker.PollInterval,
			Location:     loc,
		},
		l.WithFields(map[string]interface{}{"component": "reminders"}),
		m,
	)

	// Setup health check endpoints
	healthSrv := setupHealthCheck(cfg.Worker.MetricsPort, storage.Store, registry, l)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.ZL.Info().Msg("Shutting down...")
		cancel()
	}()

	processor.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		l.ZL.Error().Err(err).Msg("Health check server shutdown failed")
	}
}
