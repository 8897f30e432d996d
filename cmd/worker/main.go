package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/medifollow/care-api/internal/config"
	"github.com/medifollow/care-api/internal/email"
	"github.com/medifollow/care-api/internal/repository/postgres"
	"github.com/medifollow/care-api/internal/worker"
	"github.com/medifollow/care-api/pkg/logger"
	"github.com/medifollow/care-api/pkg/messaging/redis"
	"github.com/medifollow/care-api/pkg/metrics"
)

func setupHealthCheck(port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			log.Error().Err(err).Msg("health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	workerCfg, err := config.LoadWorkerConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load worker config")
	}

	log.Logger = *logger.NewLogger(nil).Zerolog()

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
		log.Fatal().Err(err).Msg("failed to create Redis broker")
	}
	defer broker.Close()

	appointmentRepo := postgres.NewAppointmentRepository(db)
	profileRepo := postgres.NewProfileRepository(db)
	emailSvc := email.NewSMTPService(cfg.SMTP)
	m := metrics.NewMetrics("care_worker")

	notifier := worker.NewNotifier(broker, profileRepo, emailSvc, &log.Logger, m)
	reminders := worker.NewReminderWorker(appointmentRepo, profileRepo, emailSvc, workerCfg.ReminderInterval, &log.Logger, m)

	setupHealthCheck(workerCfg.HealthPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("shutting down...")
		cancel()
	}()

	go reminders.Start(ctx)

	if err := notifier.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("notifier stopped")
	}
}
