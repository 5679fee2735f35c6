package app

import (
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"booking-service/internal/config"
	"booking-service/internal/schedule"
)

// Mailer sends booking confirmation emails over SMTP. Dispatch happens after
// the booking row is committed and never influences the booking outcome; a
// failed send is logged and dropped. A nil *Mailer is a no-op.
type Mailer struct {
	cfg config.Config
	log *zap.Logger
}

func NewMailer(cfg *config.Config, log *zap.Logger) *Mailer {
	if cfg.SMTP.Host == "" {
		return nil
	}
	return &Mailer{cfg: *cfg, log: log}
}

// SendConfirmationAsync fires the confirmation email without blocking the
// request that created the booking.
func (m *Mailer) SendConfirmationAsync(b *schedule.Booking) {
	if m == nil {
		return
	}
	go func() {
		if err := m.sendConfirmation(b); err != nil {
			m.log.Error("confirmation email failed",
				zap.String("booking_id", b.ID),
				zap.String("to", b.AttendeeEmail),
				zap.Error(err))
		}
	}()
}

func (m *Mailer) sendConfirmation(b *schedule.Booking) error {
	client, err := mail.NewClient(m.cfg.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(m.cfg.SMTP.Port),
		mail.WithUsername(m.cfg.SMTP.Username),
		mail.WithPassword(m.cfg.SMTP.Password),
		mail.WithTimeout(time.Duration(m.cfg.SMTP.DialTimeout)*time.Second),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.SMTP.From); err != nil {
		return err
	}
	if err := msg.To(b.AttendeeEmail); err != nil {
		return err
	}

	subject := "Booking confirmed"
	if b.Status == schedule.StatusPendingApproval {
		subject = "Booking received, pending approval"
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"Hi %s,\n\nYour meeting is scheduled for %s - %s (UTC).\nStatus: %s\nReference: %s\n",
		b.AttendeeName,
		b.Start.Format("Mon, Jan 2 2006 15:04"),
		b.End.Format("15:04"),
		b.Status,
		b.ID,
	))

	return client.DialAndSend(msg)
}
