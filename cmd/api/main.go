package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medifollow/care-api/internal/config"
	appointmenthandler "github.com/medifollow/care-api/internal/handler/appointment"
	healthhandler "github.com/medifollow/care-api/internal/handler/health"
	recordhandler "github.com/medifollow/care-api/internal/handler/record"
	schedulehandler "github.com/medifollow/care-api/internal/handler/schedule"
	timelinehandler "github.com/medifollow/care-api/internal/handler/timeline"
	treatmenthandler "github.com/medifollow/care-api/internal/handler/treatment"
	"github.com/medifollow/care-api/internal/middleware"
	"github.com/medifollow/care-api/internal/repository/postgres"
	"github.com/medifollow/care-api/internal/router"
	appointmentService "github.com/medifollow/care-api/internal/service/appointment"
	"github.com/medifollow/care-api/internal/service/notification"
	recordService "github.com/medifollow/care-api/internal/service/record"
	schedulingService "github.com/medifollow/care-api/internal/service/scheduling"
	timelineService "github.com/medifollow/care-api/internal/service/timeline"
	treatmentService "github.com/medifollow/care-api/internal/service/treatment"
	"github.com/medifollow/care-api/internal/storage"
	"github.com/medifollow/care-api/pkg/auth"
	"github.com/medifollow/care-api/pkg/logger"
	"github.com/medifollow/care-api/pkg/messaging/redis"
	"github.com/medifollow/care-api/pkg/metrics"
)

func main() {
	log.Logger = *logger.NewLogger(nil).Zerolog()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics("care_api")

	// Repositories
	profileRepo := postgres.NewProfileRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	requestRepo := postgres.NewAppointmentRequestRepository(db)
	scheduleRepo := postgres.NewScheduleRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	treatmentRepo := postgres.NewTreatmentRepository(db)
	recordRepo := postgres.NewMedicalRecordRepository(db)

	signer := storage.NewSigner(cfg.Storage.BaseURL, cfg.Storage.SigningSecret, cfg.Storage.URLTTLSeconds)
	publisher := notification.NewPublisher(broker, &log.Logger)

	// Services
	schedulingSvc := schedulingService.NewService(scheduleRepo, sessionRepo, appointmentRepo, profileRepo, m)
	treatmentSvc := treatmentService.NewService(treatmentRepo, profileRepo, &log.Logger, m)
	appointmentSvc := appointmentService.NewService(appointmentRepo, requestRepo, treatmentSvc, publisher, &log.Logger, m)
	timelineSvc := timelineService.NewService(appointmentRepo, recordRepo, &log.Logger, m)
	recordSvc := recordService.NewService(recordRepo, signer, &log.Logger)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	r := router.NewRouter(authMiddleware, router.Handlers{
		Health:      healthhandler.NewHandler(db),
		Appointment: appointmenthandler.NewHandler(appointmentSvc),
		Schedule:    schedulehandler.NewHandler(schedulingSvc),
		Treatment:   treatmenthandler.NewHandler(treatmentSvc),
		Timeline:    timelinehandler.NewHandler(timelineSvc),
		Record:      recordhandler.NewHandler(recordSvc),
	}, router.Config{
		RateLimit:     100,
		RateBurst:     200,
		CORSConfig:    middleware.DefaultCORSConfig(),
		MetricsPrefix: "care_api_http",
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
