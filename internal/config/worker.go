package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// WorkerConfig carries the settings specific to the background worker.
// It is layered over the shared yaml config from environment variables
// (WORKER_REMINDER_INTERVAL etc.) so deployments can tune the worker
// without touching the config file.
type WorkerConfig struct {
	ReminderInterval time.Duration `envconfig:"REMINDER_INTERVAL" default:"15m"`
	HealthPort       int           `envconfig:"HEALTH_PORT" default:"8081"`
}

func LoadWorkerConfig() (*WorkerConfig, error) {
	var cfg WorkerConfig
	if err := envconfig.Process("WORKER", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
