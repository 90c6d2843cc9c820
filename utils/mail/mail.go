package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"strconv"

	gomail "gopkg.in/gomail.v2"

	"github.com/clinicbook/backend/logger"
)

var templates *template.Template

// InitTemplates parses the email templates once at startup. Production hands
// in the embedded filesystem; tests pass os.DirFS rooted at the repo.
func InitTemplates(fsys fs.FS) {
	templates = template.Must(template.ParseFS(fsys, "templates/email/*.html"))
}

// Mailer is the outbound mail surface. Dispatch is best-effort from the
// engine's perspective; a failed or stalled send is logged, never propagated
// to the booking flow.
type Mailer interface {
	SendEmail(to, subject, html string) error
}

// SMTPMailer sends through the configured SMTP relay using gomail.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer builds a mailer from SMTP_* environment variables.
func NewSMTPMailer() *SMTPMailer {
	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil || port == 0 {
		port = 587
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(
			os.Getenv("SMTP_HOST"),
			port,
			os.Getenv("SMTP_USER"),
			os.Getenv("SMTP_PASSWORD"),
		),
		from: os.Getenv("FROM_EMAIL"),
	}
}

func (m *SMTPMailer) SendEmail(to, subject, html string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func render(name string, data interface{}) (string, error) {
	if templates == nil {
		return "", fmt.Errorf("email templates not initialized")
	}
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name, data); err != nil {
		return "", fmt.Errorf("failed to execute email template %s: %w", name, err)
	}
	return body.String(), nil
}

// VerificationOTPData feeds the email-verification template.
type VerificationOTPData struct {
	FirstName string
	OTP       string
	Minutes   int
}

// SendVerificationOTP sends the email-verification code.
func SendVerificationOTP(mailer Mailer, to string, data VerificationOTPData) error {
	html, err := render("email_verification_otp.html", data)
	if err != nil {
		return err
	}
	return mailer.SendEmail(to, "Verify your email", html)
}

// ConfirmationData feeds the booking-confirmation template. Amounts are
// pre-formatted strings so the template stays arithmetic-free.
type ConfirmationData struct {
	FirstName   string
	BookingID   string
	BookingType string
	Rooms       []ConfirmationRoom
	Total       string
}

type ConfirmationRoom struct {
	Name     string
	TimeSlot string
	Dates    []string
}

// SendBookingConfirmationAsync dispatches the confirmation email without
// blocking the reconciliation request. Failures are logged and dropped.
func SendBookingConfirmationAsync(mailer Mailer, to string, data ConfirmationData) {
	go func() {
		html, err := render("booking_confirmation.html", data)
		if err != nil {
			logger.ErrorLogger.Errorf("Failed to render confirmation email for booking %s: %v", data.BookingID, err)
			return
		}
		if err := mailer.SendEmail(to, "Your booking is confirmed", html); err != nil {
			logger.ErrorLogger.Errorf("Failed to send confirmation email for booking %s: %v", data.BookingID, err)
			return
		}
		logger.InfoLogger.Infof("Confirmation email sent for booking %s", data.BookingID)
	}()
}
