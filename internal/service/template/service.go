package template

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/carehospital/admin-api/internal/model"
	"github.com/carehospital/admin-api/internal/repository"
	"github.com/carehospital/admin-api/internal/service/notification"
	apperrors "github.com/carehospital/admin-api/pkg/errors"
	"github.com/carehospital/admin-api/pkg/logger"
	"github.com/carehospital/admin-api/pkg/validator"
)

// Service manages notification templates.
type Service struct {
	repo       repository.TemplateRepository
	dispatcher notification.Service
	hospital   notification.Hospital
	validator  validator.Validator
	now        func() time.Time
}

func NewService(repo repository.TemplateRepository, dispatcher notification.Service, hospital notification.Hospital) *Service {
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		hospital:   hospital,
		validator:  validator.New(),
		now:        time.Now,
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// DefaultTemplates returns the reminder and confirmation templates seeded at now.
// Both share one timestamp id, so Create bumps the second.
func DefaultTemplates(now time.Time) []model.NotificationTemplate {
	return []model.NotificationTemplate{
		{
			Name:    "Appointment Reminder",
			Type:    model.TemplateTypeAppointmentReminder,
			Subject: "Reminder: Your appointment at {hospitalName}",
			Body:    "Dear {patientName}, this is a reminder for your appointment with {doctorName} on {appointmentDate} at {appointmentTime}. Please arrive 15 minutes early. Contact us at {hospitalPhone} if you need to reschedule.",
			Variables: []string{
				"patientName", "doctorName", "appointmentDate", "appointmentTime", "hospitalName", "hospitalPhone",
			},
			IsActive:      true,
			Channel:       model.ChannelEmail,
			TriggerBefore: model.DefaultTriggerBefore,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			Name:    "Appointment Confirmation",
			Type:    model.TemplateTypeAppointmentConfirmation,
			Subject: "Appointment Confirmed - {hospitalName}",
			Body:    "Dear {patientName}, your appointment with {doctorName} has been confirmed for {appointmentDate} at {appointmentTime}. Department: {department}. Please bring your insurance card and arrive 15 minutes early.",
			Variables: []string{
				"patientName", "doctorName", "appointmentDate", "appointmentTime", "department", "hospitalName",
			},
			IsActive:      true,
			Channel:       model.ChannelEmail,
			TriggerBefore: model.DefaultTriggerBefore,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
}

func (s *Service) List(ctx context.Context, term string) ([]model.NotificationTemplate, error) {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.NotificationTemplate, 0, len(snap.Items))
	for _, t := range snap.Items {
		if t.Matches(term) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.NotificationTemplate, error) {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range snap.Items {
		if snap.Items[i].ID == id {
			return &snap.Items[i], nil
		}
	}
	return nil, apperrors.NotFound("template", nil)
}

func (s *Service) Create(ctx context.Context, req model.TemplateRequest) (*model.NotificationTemplate, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}
	now := s.now()
	tpl := fromRequest(req)
	tpl.CreatedAt = now
	tpl.UpdatedAt = now

	created, err := s.insert(ctx, []model.NotificationTemplate{tpl})
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

// AddDefaults appends the built-in templates.
func (s *Service) AddDefaults(ctx context.Context) ([]model.NotificationTemplate, error) {
	created, err := s.insert(ctx, DefaultTemplates(s.now()))
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info().Int("count", len(created)).Msg("default templates added")
	return created, nil
}

func (s *Service) insert(ctx context.Context, tpls []model.NotificationTemplate) ([]model.NotificationTemplate, error) {
	var created []model.NotificationTemplate
	_, err := s.repo.Mutate(ctx, func(items []model.NotificationTemplate) ([]model.NotificationTemplate, error) {
		taken := make(map[string]bool, len(items)+len(tpls))
		for _, t := range items {
			taken[t.ID] = true
		}
		created = make([]model.NotificationTemplate, 0, len(tpls))
		now := s.now()
		for _, t := range tpls {
			t.ID = model.NextTimestampID("template-", now, func(id string) bool { return taken[id] })
			taken[t.ID] = true
			created = append(created, t)
		}
		return append(items, created...), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, req model.TemplateRequest) (*model.NotificationTemplate, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}
	return s.modify(ctx, id, func(t *model.NotificationTemplate) {
		next := fromRequest(req)
		next.ID = t.ID
		next.CreatedAt = t.CreatedAt
		if req.IsActive == nil {
			next.IsActive = t.IsActive
		}
		*t = next
	})
}

// Toggle flips isActive.
func (s *Service) Toggle(ctx context.Context, id string) (*model.NotificationTemplate, error) {
	return s.modify(ctx, id, func(t *model.NotificationTemplate) {
		t.IsActive = !t.IsActive
	})
}

func (s *Service) modify(ctx context.Context, id string, fn func(*model.NotificationTemplate)) (*model.NotificationTemplate, error) {
	var updated model.NotificationTemplate
	_, err := s.repo.Mutate(ctx, func(items []model.NotificationTemplate) ([]model.NotificationTemplate, error) {
		next := make([]model.NotificationTemplate, len(items))
		copy(next, items)
		for i := range next {
			if next[i].ID != id {
				continue
			}
			fn(&next[i])
			next[i].UpdatedAt = s.now()
			updated = next[i]
			return next, nil
		}
		return nil, repository.ErrNoChange
	})
	if errors.Is(err, repository.ErrNoChange) {
		return nil, apperrors.NotFound("template", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	return &updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.repo.Mutate(ctx, func(items []model.NotificationTemplate) ([]model.NotificationTemplate, error) {
		next := make([]model.NotificationTemplate, 0, len(items))
		for _, t := range items {
			if t.ID != id {
				next = append(next, t)
			}
		}
		if len(next) == len(items) {
			return nil, repository.ErrNoChange
		}
		return next, nil
	})
	if errors.Is(err, repository.ErrNoChange) {
		return apperrors.NotFound("template", nil)
	}
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

// Render previews a template against an appointment.
func (s *Service) Render(ctx context.Context, id string, apt model.Appointment) (*notification.Rendered, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r := notification.RenderTemplate(*tpl, apt, s.hospital)
	return &r, nil
}

func (s *Service) Dispatch(ctx context.Context, id string, apt model.Appointment) (*notification.Delivery, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d, err := s.dispatcher.Dispatch(ctx, *tpl, apt)
	if err != nil {
		switch {
		case errors.Is(err, notification.ErrTemplateInactive):
			return nil, apperrors.Conflict("template is inactive", err)
		case errors.Is(err, notification.ErrNoRecipient), errors.Is(err, notification.ErrNoEmail),
			errors.Is(err, notification.ErrUnsupportedChannel):
			return nil, apperrors.BadRequest(err.Error(), err)
		}
		return nil, fmt.Errorf("failed to dispatch template: %w", err)
	}
	return d, nil
}

func fromRequest(req model.TemplateRequest) model.NotificationTemplate {
	tpl := model.NotificationTemplate{
		Name:          req.Name,
		Type:          req.Type,
		Subject:       req.Subject,
		Body:          req.Body,
		Variables:     req.Variables,
		IsActive:      true,
		Channel:       req.Channel,
		TriggerBefore: req.TriggerBefore,
	}
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}
	if tpl.Type == "" {
		tpl.Type = model.TemplateTypeAppointmentReminder
	}
	if tpl.Channel == "" {
		tpl.Channel = model.ChannelEmail
	}
	if tpl.TriggerBefore == 0 {
		tpl.TriggerBefore = model.DefaultTriggerBefore
	}
	if tpl.Variables == nil {
		tpl.Variables = []string{}
	}
	return tpl
}
