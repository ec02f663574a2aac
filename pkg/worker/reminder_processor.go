package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/carehospital/admin-api/internal/model"
	"github.com/carehospital/admin-api/internal/repository"
	"github.com/carehospital/admin-api/internal/service/notification"
	"github.com/carehospital/admin-api/pkg/logger"
	"github.com/carehospital/admin-api/pkg/metrics"
)

type ReminderProcessorConfig struct {
	PollInterval time.Duration
	// Location interprets appointment date and time slots.
	Location *time.Location
}

// ReminderProcessor sends active reminder templates for confirmed
// appointments that start within each template's triggerBefore window.
// Every (appointment, template) pair is attempted once; the attempt is
// recorded in the reminder log whether or not delivery succeeded.
type ReminderProcessor struct {
	appointments repository.AppointmentRepository
	templates    repository.TemplateRepository
	reminderLog  repository.ReminderLogRepository
	dispatcher   notification.Service
	config       ReminderProcessorConfig
	logger       *logger.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewReminderProcessor returns a processor over collections. m may be nil.
func NewReminderProcessor(
	collections *repository.Collections,
	dispatcher notification.Service,
	config ReminderProcessorConfig,
	logger *logger.Logger,
	m *metrics.Metrics,
) *ReminderProcessor {
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if m == nil {
		m = metrics.NewNop()
	}

	return &ReminderProcessor{
		appointments: collections.Appointments,
		templates:    collections.Templates,
		reminderLog:  collections.ReminderLog,
		dispatcher:   dispatcher,
		config:       config,
		logger:       logger,
		metrics:      m,
		now:          time.Now,
	}
}

func (p *ReminderProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting reminder processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down reminder processor")
			return
		case <-ticker.C:
			if _, err := p.RunOnce(ctx); err != nil {
				p.logger.Error(err, "Failed to process reminders")
			}
		}
	}
}

type reminderKey struct {
	appointmentID string
	templateID    string
}

// RunOnce performs one scan and returns how many reminders were delivered.
func (p *ReminderProcessor) RunOnce(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.ReminderRunLatency)
	defer timer.ObserveDuration()

	tpls, err := p.templates.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load templates: %w", err)
	}
	active := make([]model.NotificationTemplate, 0, len(tpls.Items))
	for _, t := range tpls.Items {
		if t.IsActive && t.Type == model.TemplateTypeAppointmentReminder {
			active = append(active, t)
		}
	}
	if len(active) == 0 {
		return 0, nil
	}

	apts, err := p.appointments.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load appointments: %w", err)
	}
	sentLog, err := p.reminderLog.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load reminder log: %w", err)
	}
	done := make(map[reminderKey]bool, len(sentLog.Items))
	for _, e := range sentLog.Items {
		done[reminderKey{e.AppointmentID, e.TemplateID}] = true
	}

	now := p.now()
	var entries []model.ReminderLog
	sent := 0

	for _, apt := range apts.Items {
		if apt.Status != model.AppointmentStatusConfirmed {
			continue
		}
		start, err := apt.StartsAt(p.config.Location)
		if err != nil {
			p.logger.Debug("Skipping appointment with unparseable slot", "appointment_id", apt.ID, "error", err.Error())
			continue
		}
		if !start.After(now) {
			continue
		}

		for _, tpl := range active {
			key := reminderKey{apt.ID, tpl.ID}
			if done[key] {
				continue
			}
			window := time.Duration(tpl.TriggerBefore) * time.Hour
			if start.Sub(now) > window {
				continue
			}

			entry := model.ReminderLog{
				AppointmentID: apt.ID,
				TemplateID:    tpl.ID,
				Channel:       tpl.Channel,
				SentAt:        now,
			}
			d, err := p.dispatcher.Dispatch(ctx, tpl, apt)
			switch {
			case err == nil:
				entry.Recipient = recipient(d, apt)
			case d.Delivered():
				entry.Recipient = recipient(d, apt)
				entry.Error = err.Error()
				entry.Partial = true
				p.logger.Warn("Reminder partially delivered", "appointment_id", apt.ID, "template_id", tpl.ID, "error", err.Error())
			default:
				entry.Recipient = apt.PatientEmail
				entry.Error = err.Error()
				p.logger.Error(err, "Failed to send reminder", "appointment_id", apt.ID, "template_id", tpl.ID)
			}
			if d.Delivered() {
				sent++
				p.metrics.RemindersSent.Inc()
			}
			done[key] = true
			entries = append(entries, entry)
		}
	}

	if len(entries) == 0 {
		return sent, nil
	}
	if err := p.record(ctx, entries, now); err != nil {
		return sent, err
	}

	p.logger.Info("Reminder scan finished", "attempted", len(entries), "sent", sent)
	return sent, nil
}

func (p *ReminderProcessor) record(ctx context.Context, entries []model.ReminderLog, now time.Time) error {
	_, err := p.reminderLog.Mutate(ctx, func(items []model.ReminderLog) ([]model.ReminderLog, error) {
		taken := make(map[string]bool, len(items)+len(entries))
		for _, e := range items {
			taken[e.ID] = true
		}
		next := make([]model.ReminderLog, len(items), len(items)+len(entries))
		copy(next, items)
		for _, e := range entries {
			e.ID = model.NextTimestampID("reminder-", now, func(id string) bool { return taken[id] })
			taken[e.ID] = true
			next = append(next, e)
		}
		return next, nil
	})
	if err != nil {
		return fmt.Errorf("failed to record reminders: %w", err)
	}
	return nil
}

func recipient(d *notification.Delivery, apt model.Appointment) string {
	if d.Email != "" {
		return d.Email
	}
	return apt.PatientPhone
}
