package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/carehospital/admin-api/internal/bootstrap"
	"github.com/carehospital/admin-api/internal/config"
	"github.com/carehospital/admin-api/internal/email"
	"github.com/carehospital/admin-api/internal/handler/appointment"
	"github.com/carehospital/admin-api/internal/handler/auth"
	"github.com/carehospital/admin-api/internal/handler/chat"
	"github.com/carehospital/admin-api/internal/handler/doctor"
	"github.com/carehospital/admin-api/internal/handler/health"
	"github.com/carehospital/admin-api/internal/handler/healthrecord"
	"github.com/carehospital/admin-api/internal/handler/patient"
	"github.com/carehospital/admin-api/internal/handler/prometheus"
	"github.com/carehospital/admin-api/internal/handler/template"
	"github.com/carehospital/admin-api/internal/middleware"
	"github.com/carehospital/admin-api/internal/router"
	appointmentService "github.com/carehospital/admin-api/internal/service/appointment"
	authService "github.com/carehospital/admin-api/internal/service/auth"
	chatService "github.com/carehospital/admin-api/internal/service/chat"
	doctorService "github.com/carehospital/admin-api/internal/service/doctor"
	healthRecordService "github.com/carehospital/admin-api/internal/service/healthrecord"
	"github.com/carehospital/admin-api/internal/service/notification"
	patientService "github.com/carehospital/admin-api/internal/service/patient"
	templateService "github.com/carehospital/admin-api/internal/service/template"
	pkgauth "github.com/carehospital/admin-api/pkg/auth"
	"github.com/carehospital/admin-api/pkg/logger"
	"github.com/carehospital/admin-api/pkg/metrics"
	"github.com/carehospital/admin-api/pkg/security"
)

const serviceName = "care-admin-api"

func main() {
	hashPassword := flag.String("hash-password", "", "print the bcrypt hash of the given admin password and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := security.NewBcryptHasher(bcrypt.DefaultCost).Hash(*hashPassword)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.InitGlobal(&logger.Config{
		Level:   logger.ParseLevel(cfg.Log.Level),
		Format:  cfg.Log.Format,
		Service: serviceName,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	registry := prom.NewRegistry()
	promHandler := prometheus.New(registry)
	m := metrics.NewMetrics("care", registry)

	// Storage
	storage, err := bootstrap.OpenStorage(ctx, cfg, m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open collection store")
	}
	defer func() {
		if err := storage.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close collection store")
		}
	}()
	collections := storage.Collections

	// Notifications
	hospital := notification.Hospital{Name: cfg.Hospital.Name, Phone: cfg.Hospital.Phone}
	handoff := notification.NewHandoff("", m)
	var emailSvc email.Service
	if cfg.SMTP.Enabled() {
		emailSvc = email.NewSMTPService(cfg.SMTP)
	} else {
		log.Warn().Msg("smtp not configured, email notifications are logged only")
		emailSvc = email.NewLogService(log.Logger)
	}
	dispatcher := notification.NewService(emailSvc, handoff, hospital, m)

	// Services
	jwtSvc, err := pkgauth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry())
	if err != nil {
		log.Fatal().Err(err).Msg("jwt.secret must be set")
	}
	if cfg.Admin.PasswordHash == "" {
		log.Warn().Msg("admin.password_hash not set, admin login is disabled")
	}
	authSvc := authService.NewService(cfg.Admin.Username, cfg.Admin.PasswordHash, security.NewBcryptHasher(bcrypt.DefaultCost), jwtSvc)
	appointmentSvc := appointmentService.NewService(collections.Appointments, notification.NewComposer(hospital), handoff, m)
	doctorSvc := doctorService.NewService(collections.Doctors)
	patientSvc := patientService.NewService(collections.Patients)
	templateSvc := templateService.NewService(collections.Templates, dispatcher, hospital)
	healthRecordSvc := healthRecordService.NewService(collections.HealthRecords)
	chatSvc := chatService.NewService(collections.ChatSessions, chatService.Config{
		ReplyDelay: cfg.Chat.ReplyDelay,
		AutoReply:  cfg.Chat.AutoReply,
	})
	defer chatSvc.Close()

	// Admin view of appointments, kept current by change events and resync
	watcher := appointmentService.NewWatcher(collections.Appointments, storage.Broker, cfg.Storage.ResyncInterval)
	if err := watcher.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start appointment watcher")
	}

	// Router
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	r, err := router.NewRouter(
		middleware.NewAuthMiddleware(jwtSvc),
		router.Handlers{
			Health:       health.NewHandler(storage.Store),
			Metrics:      promHandler,
			Auth:         auth.NewHandler(authSvc),
			Appointment:  appointment.NewHandler(appointmentSvc, watcher),
			Doctor:       doctor.NewHandler(doctorSvc),
			Patient:      patient.NewHandler(patientSvc),
			Template:     template.NewHandler(templateSvc, appointmentSvc),
			HealthRecord: healthrecord.NewHandler(healthRecordSvc),
			Chat:         chat.NewHandler(chatSvc),
		},
		router.RouterConfig{
			ServiceName: serviceName,
			RateEnabled: cfg.RateLimit.Enabled,
			RateLimit:   rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:   cfg.RateLimit.Burst,
			CORSConfig:  corsConfig,
			ReleaseMode: !cfg.IsDevelopment(),
		},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	// Create server
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     r.Engine(),
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout stays 0 by default so the appointment stream is not cut.
		WriteTimeout: cfg.Server.WriteTimeout,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("driver", storage.Driver).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	// Cancelling ctx ends open event streams before Shutdown waits on them.
	cancel()
	<-watcher.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return 5 * time.Second
}
