package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/carehospital/admin-api/internal/email"
	"github.com/carehospital/admin-api/internal/model"
	"github.com/carehospital/admin-api/pkg/metrics"
)

var (
	ErrTemplateInactive   = errors.New("template is inactive")
	ErrUnsupportedChannel = errors.New("unsupported notification channel")
	ErrNoEmail            = errors.New("patient has no email address")
)

// Delivery is the outcome of dispatching one template.
type Delivery struct {
	Channel model.NotificationChannel `json:"channel"`
	Subject string                    `json:"subject"`
	Body    string                    `json:"body"`
	Email   string                    `json:"email,omitempty"`
	Link    string                    `json:"whatsappLink,omitempty"`
}

// Delivered reports whether at least one channel went out.
func (d *Delivery) Delivered() bool {
	return d != nil && (d.Email != "" || d.Link != "")
}

type Service interface {
	// Dispatch renders tpl against apt and delivers it on the template's channel.
	// When a "both" template reaches only one channel, the Delivery is
	// returned together with the error of the other.
	Dispatch(ctx context.Context, tpl model.NotificationTemplate, apt model.Appointment) (*Delivery, error)
}

type service struct {
	emailSvc email.Service
	handoff  *Handoff
	hospital Hospital
	metrics  *metrics.Metrics
}

func NewService(emailSvc email.Service, handoff *Handoff, hospital Hospital, m *metrics.Metrics) Service {
	if hospital.Name == "" {
		hospital.Name = DefaultHospital.Name
	}
	if hospital.Phone == "" {
		hospital.Phone = DefaultHospital.Phone
	}
	return &service{
		emailSvc: emailSvc,
		handoff:  handoff,
		hospital: hospital,
		metrics:  m,
	}
}

func (s *service) Dispatch(ctx context.Context, tpl model.NotificationTemplate, apt model.Appointment) (*Delivery, error) {
	if !tpl.IsActive {
		s.count(tpl.Channel, "inactive")
		return nil, ErrTemplateInactive
	}

	rendered := RenderTemplate(tpl, apt, s.hospital)
	d := &Delivery{Channel: tpl.Channel, Subject: rendered.Subject, Body: rendered.Body}

	var err error
	switch tpl.Channel {
	case model.ChannelEmail:
		err = s.sendEmail(ctx, apt, d)
	case model.ChannelSMS:
		err = s.sendSMS(apt, d)
	case model.ChannelBoth:
		err = errors.Join(s.sendEmail(ctx, apt, d), s.sendSMS(apt, d))
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedChannel, tpl.Channel)
	}

	if err != nil {
		if d.Delivered() {
			s.count(tpl.Channel, "partial")
			return d, err
		}
		s.count(tpl.Channel, "failure")
		return nil, err
	}
	s.count(tpl.Channel, "success")
	return d, nil
}

func (s *service) sendEmail(ctx context.Context, apt model.Appointment, d *Delivery) error {
	if apt.PatientEmail == "" {
		return ErrNoEmail
	}
	if err := s.emailSvc.SendCustom(ctx, apt.PatientEmail, d.Subject, d.Body); err != nil {
		return err
	}
	d.Email = apt.PatientEmail
	return nil
}

// sendSMS goes through the WhatsApp hand-off; the client opens the link.
func (s *service) sendSMS(apt model.Appointment, d *Delivery) error {
	link, err := s.handoff.BuildLink(apt.PatientPhone, d.Body)
	if err != nil {
		return err
	}
	d.Link = link
	return nil
}

func (s *service) count(channel model.NotificationChannel, result string) {
	if s.metrics != nil {
		s.metrics.TemplateDispatches.WithLabelValues(string(channel), result).Inc()
	}
}
