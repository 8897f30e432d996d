package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/medifollow/care-api/internal/email"
	"github.com/medifollow/care-api/internal/repository"
	"github.com/medifollow/care-api/pkg/metrics"
)

// ReminderWorker sweeps for appointments happening today or tomorrow that
// have not yet had a reminder sent, emails the patient, and stamps the
// appointment so the next sweep skips it.
type ReminderWorker struct {
	appointments repository.AppointmentRepository
	profiles     repository.ProfileRepository
	email        email.Service
	interval     time.Duration
	logger       *zerolog.Logger
	metrics      *metrics.Metrics
}

func NewReminderWorker(
	appointments repository.AppointmentRepository,
	profiles repository.ProfileRepository,
	emailSvc email.Service,
	interval time.Duration,
	logger *zerolog.Logger,
	m *metrics.Metrics,
) *ReminderWorker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &ReminderWorker{
		appointments: appointments,
		profiles:     profiles,
		email:        emailSvc,
		interval:     interval,
		logger:       logger,
		metrics:      m,
	}
}

func (w *ReminderWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				w.logger.Error().Err(err).Msg("reminder sweep failed")
			}
		}
	}
}

func (w *ReminderWorker) sweep(ctx context.Context) error {
	started := time.Now()
	today := started.Format("2006-01-02")
	tomorrow := started.AddDate(0, 0, 1).Format("2006-01-02")

	due, err := w.appointments.ListDueReminders(ctx, today, tomorrow)
	if err != nil {
		return fmt.Errorf("failed to list due reminders: %w", err)
	}

	sent := 0
	for _, apt := range due {
		patient, err := w.profiles.Get(ctx, apt.PatientID)
		if err != nil {
			w.logger.Warn().Err(err).Str("appointment_id", apt.ID.String()).Msg("skipping reminder, patient lookup failed")
			continue
		}

		err = w.email.SendReminder(ctx, patient.Email, patient.FullName,
			"Dr. "+apt.DoctorName, apt.AppointmentDate, apt.StartTime, string(apt.Status))
		if err != nil {
			w.logger.Warn().Err(err).Str("appointment_id", apt.ID.String()).Msg("failed to send reminder email")
			if w.metrics != nil {
				w.metrics.EmailsFailed.WithLabelValues("reminder").Inc()
			}
			continue
		}

		if err := w.appointments.MarkReminderSent(ctx, apt.ID); err != nil {
			w.logger.Error().Err(err).Str("appointment_id", apt.ID.String()).Msg("failed to stamp reminder")
			continue
		}

		sent++
		if w.metrics != nil {
			w.metrics.RemindersSent.Inc()
			w.metrics.EmailsSent.WithLabelValues("reminder").Inc()
		}
	}

	if w.metrics != nil {
		w.metrics.ReminderSweepDur.Observe(time.Since(started).Seconds())
	}
	if sent > 0 {
		w.logger.Info().Int("sent", sent).Int("due", len(due)).Msg("reminder sweep complete")
	}
	return nil
}
