package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/medifollow/care-api/internal/email"
	"github.com/medifollow/care-api/internal/model"
	"github.com/medifollow/care-api/internal/repository"
	"github.com/medifollow/care-api/internal/service/notification"
	"github.com/medifollow/care-api/pkg/messaging"
	"github.com/medifollow/care-api/pkg/metrics"
)

// Notifier consumes notification events off the broker and turns them
// into emails. It runs in the worker binary, not in the API process, so a
// slow SMTP round-trip never sits on a request path.
type Notifier struct {
	broker   messaging.Broker
	profiles repository.ProfileRepository
	email    email.Service
	logger   *zerolog.Logger
	metrics  *metrics.Metrics
}

func NewNotifier(
	broker messaging.Broker,
	profiles repository.ProfileRepository,
	emailSvc email.Service,
	logger *zerolog.Logger,
	m *metrics.Metrics,
) *Notifier {
	return &Notifier{
		broker:   broker,
		profiles: profiles,
		email:    emailSvc,
		logger:   logger,
		metrics:  m,
	}
}

func (w *Notifier) Start(ctx context.Context) error {
	msgs, err := w.broker.Subscribe(ctx, notification.Channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", notification.Channel, err)
	}
	w.logger.Info().Str("channel", notification.Channel).Msg("notification worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := w.handleMessage(ctx, raw); err != nil {
				w.logger.Error().Err(err).Msg("failed to handle notification event")
			}
		}
	}
}

func (w *Notifier) handleMessage(ctx context.Context, raw []byte) error {
	var envelope struct {
		Type    string             `json:"type"`
		Payload notification.Event `json:"payload"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}
	return w.handleEvent(ctx, envelope.Payload)
}

func (w *Notifier) handleEvent(ctx context.Context, event notification.Event) error {
	patient, err := w.profiles.Get(ctx, event.PatientID)
	if err != nil {
		return fmt.Errorf("failed to load patient profile: %w", err)
	}
	doctor, err := w.profiles.Get(ctx, event.DoctorID)
	if err != nil {
		return fmt.Errorf("failed to load doctor profile: %w", err)
	}

	err = w.sendFor(ctx, event, patient, doctor)
	if w.metrics != nil {
		if err != nil {
			w.metrics.EmailsFailed.WithLabelValues(event.Type).Inc()
		} else {
			w.metrics.EmailsSent.WithLabelValues(event.Type).Inc()
		}
	}
	if err != nil {
		return fmt.Errorf("failed to send %s email: %w", event.Type, err)
	}

	w.logger.Info().
		Str("event", event.Type).
		Str("appointment_id", event.AppointmentID.String()).
		Msg("notification email sent")
	return nil
}

func (w *Notifier) sendFor(ctx context.Context, event notification.Event, patient, doctor *model.Profile) error {
	timeOfDay := event.StartTime

	switch event.Type {
	case notification.EventAppointmentBooked:
		return w.email.SendBookingReceived(ctx, patient.Email, patient.FullName, doctor.FullName, event.Date, timeOfDay)
	case notification.EventAppointmentConfirmed:
		return w.email.SendConfirmation(ctx, patient.Email, patient.FullName, doctor.FullName, event.Date, timeOfDay)
	case notification.EventRequestApproved:
		return w.email.SendApproval(ctx, patient.Email, patient.FullName, doctor.FullName, event.Date, timeOfDay)
	case notification.EventRequestRejected:
		return w.email.SendRejection(ctx, patient.Email, patient.FullName, doctor.FullName, event.Date)
	case notification.EventAppointmentCancelled:
		if err := w.email.SendCancellation(ctx, patient.Email, patient.FullName, "Dr. "+doctor.FullName, event.Date, timeOfDay); err != nil {
			return err
		}
		return w.email.SendCancellation(ctx, doctor.Email, doctor.FullName, patient.FullName, event.Date, timeOfDay)
	case notification.EventAppointmentCompleted:
		// No email today; completion shows up on the timeline.
		return nil
	default:
		w.logger.Warn().Str("event", event.Type).Msg("unknown notification event type")
		return nil
	}
}
