package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medifollow/care-api/pkg/messaging"
)

// Channel is the pub/sub channel the notification worker subscribes to.
const Channel = "care:notifications"

const (
	EventAppointmentBooked    = "appointment.booked"
	EventAppointmentConfirmed = "appointment.confirmed"
	EventAppointmentCancelled = "appointment.cancelled"
	EventAppointmentCompleted = "appointment.completed"
	EventRequestApproved      = "request.approved"
	EventRequestRejected      = "request.rejected"
	EventAppointmentReminder  = "appointment.reminder"
)

// Event is the wire shape published whenever something a patient or doctor
// should hear about happens to an appointment.
type Event struct {
	Type          string    `json:"type"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time,omitempty"`
}

// Publisher pushes notification events onto the broker. Delivery is
// best-effort; a broker outage must never fail the operation that
// triggered the event.
type Publisher struct {
	broker messaging.Broker
	logger *zerolog.Logger
}

func NewPublisher(broker messaging.Broker, logger *zerolog.Logger) *Publisher {
	return &Publisher{broker: broker, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, event Event) error {
	err := p.broker.Publish(ctx, Channel, messaging.Message{Type: event.Type, Payload: event})
	if err != nil && p.logger != nil {
		p.logger.Warn().Err(err).Str("event", event.Type).Msg("failed to publish notification event")
	}
	return err
}
