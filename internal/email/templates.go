package email

import (
	"fmt"
	"html"
)

func detailBox(background string, rows ...[2]string) string {
	body := ""
	for _, row := range rows {
		body += fmt.Sprintf("<p><strong>%s:</strong> %s</p>", row[0], html.EscapeString(row[1]))
	}
	return fmt.Sprintf(`<div style="background-color: %s; padding: 15px; border-radius: 5px; margin: 20px 0;">%s</div>`, background, body)
}

func wrap(heading, inner string) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; color: #333;"><h2>%s</h2>%s<p>Best regards,<br>The Care Team</p></div>`, heading, inner)
}

func bookingReceivedBody(patientName, doctorName, date, timeOfDay string) string {
	return wrap("Appointment Request Received", fmt.Sprintf(
		`<p>Dear %s,</p><p>Your appointment request has been received and is pending approval.</p>%s<p>You will receive another email once the doctor reviews your request.</p>`,
		html.EscapeString(patientName),
		detailBox("#f5f5f5", [2]string{"Doctor", doctorName}, [2]string{"Date", date}, [2]string{"Time", timeOfDay}),
	))
}

func confirmationBody(patientName, doctorName, date, timeOfDay string) string {
	return wrap("Appointment Confirmation", fmt.Sprintf(
		`<p>Dear %s,</p><p>Your appointment has been successfully booked.</p>%s<p>Please arrive 10 minutes before your scheduled time.</p>`,
		html.EscapeString(patientName),
		detailBox("#f5f5f5", [2]string{"Doctor", doctorName}, [2]string{"Date", date}, [2]string{"Time", timeOfDay}),
	))
}

func approvalBody(patientName, doctorName, date, timeOfDay string) string {
	return wrap("Appointment Approved", fmt.Sprintf(
		`<p>Dear %s,</p><p>Great news! Your appointment request has been approved by Dr. %s.</p>%s<p>We look forward to seeing you.</p>`,
		html.EscapeString(patientName), html.EscapeString(doctorName),
		detailBox("#e6fffa", [2]string{"Doctor", doctorName}, [2]string{"Date", date}, [2]string{"Time", timeOfDay}),
	))
}

func rejectionBody(patientName, doctorName, date string) string {
	return wrap("Appointment Update", fmt.Sprintf(
		`<p>Dear %s,</p><p>Unfortunately, your appointment request with Dr. %s for %s could not be accepted at this time.</p><p>Please log in to your dashboard to choose a different time slot or doctor.</p>`,
		html.EscapeString(patientName), html.EscapeString(doctorName), html.EscapeString(date),
	))
}

func cancellationBody(recipientName, otherPartyName, date, timeOfDay string) string {
	return wrap("Appointment Cancelled", fmt.Sprintf(
		`<p>Dear %s,</p><p>The appointment with %s scheduled for %s at %s has been cancelled.</p><p>If this was a mistake, please book a new appointment.</p>`,
		html.EscapeString(recipientName), html.EscapeString(otherPartyName), html.EscapeString(date), html.EscapeString(timeOfDay),
	))
}

func reminderBody(recipientName, otherPartyName, date, timeOfDay, status string) string {
	return wrap("Appointment Reminder", fmt.Sprintf(
		`<p>Dear %s,</p><p>This is a reminder for your upcoming appointment with %s.</p>%s`,
		html.EscapeString(recipientName), html.EscapeString(otherPartyName),
		detailBox("#fff8e1", [2]string{"Date", date}, [2]string{"Time", timeOfDay}, [2]string{"Status", status}),
	))
}
