package email

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"gopkg.in/gomail.v2"

	"github.com/carehospital/admin-api/internal/config"
)

type Service interface {
	SendCustom(ctx context.Context, to string, subject string, content string) error
}

// Dialer is the subset of gomail.Dialer used for delivery.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	dialer  Dialer
	from    string
	breaker *gobreaker.CircuitBreaker
}

// NewSMTPService delivers mail through cfg's SMTP relay behind a circuit breaker.
func NewSMTPService(cfg config.SMTPConfig) Service {
	return NewServiceWithDialer(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From)
}

func NewServiceWithDialer(d Dialer, from string) Service {
	return &smtpService{
		dialer: d,
		from:   from,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "smtp",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

func (s *smtpService) SendCustom(ctx context.Context, to, subject, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", content)

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.dialer.DialAndSend(m)
	})
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

type logService struct {
	logger zerolog.Logger
}

// NewLogService records messages instead of sending them. Used when SMTP is not configured.
func NewLogService(logger zerolog.Logger) Service {
	return &logService{logger: logger}
}

func (s *logService) SendCustom(_ context.Context, to, subject, content string) error {
	s.logger.Info().
		Str("to", to).
		Str("subject", subject).
		Int("length", len(content)).
		Msg("email delivery disabled, message logged")
	return nil
}
