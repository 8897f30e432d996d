package email

import (
	"context"

	gomail "gopkg.in/gomail.v2"

	"github.com/medifollow/care-api/internal/config"
)

type Service interface {
	SendBookingReceived(ctx context.Context, to, patientName, doctorName, date, timeOfDay string) error
	SendConfirmation(ctx context.Context, to, patientName, doctorName, date, timeOfDay string) error
	SendApproval(ctx context.Context, to, patientName, doctorName, date, timeOfDay string) error
	SendRejection(ctx context.Context, to, patientName, doctorName, date string) error
	SendCancellation(ctx context.Context, to, recipientName, otherPartyName, date, timeOfDay string) error
	SendReminder(ctx context.Context, to, recipientName, otherPartyName, date, timeOfDay, status string) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPService(cfg config.SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return s.dialer.DialAndSend(m)
}

func (s *smtpService) SendBookingReceived(_ context.Context, to, patientName, doctorName, date, timeOfDay string) error {
	return s.send(to, "Appointment Request Received", bookingReceivedBody(patientName, doctorName, date, timeOfDay))
}

func (s *smtpService) SendConfirmation(_ context.Context, to, patientName, doctorName, date, timeOfDay string) error {
	return s.send(to, "Appointment Confirmation", confirmationBody(patientName, doctorName, date, timeOfDay))
}

func (s *smtpService) SendApproval(_ context.Context, to, patientName, doctorName, date, timeOfDay string) error {
	return s.send(to, "Appointment Approved", approvalBody(patientName, doctorName, date, timeOfDay))
}

func (s *smtpService) SendRejection(_ context.Context, to, patientName, doctorName, date string) error {
	return s.send(to, "Appointment Update", rejectionBody(patientName, doctorName, date))
}

func (s *smtpService) SendCancellation(_ context.Context, to, recipientName, otherPartyName, date, timeOfDay string) error {
	return s.send(to, "Appointment Cancelled", cancellationBody(recipientName, otherPartyName, date, timeOfDay))
}

func (s *smtpService) SendReminder(_ context.Context, to, recipientName, otherPartyName, date, timeOfDay, status string) error {
	return s.send(to, "Appointment Reminder", reminderBody(recipientName, otherPartyName, date, timeOfDay, status))
}
