package model

import "time"

type TemplateType string

const (
	TemplateTypeAppointmentReminder     TemplateType = "appointment_reminder"
	TemplateTypeAppointmentConfirmation TemplateType = "appointment_confirmation"
	TemplateTypePrescriptionReady       TemplateType = "prescription_ready"
	TemplateTypeFollowUp                TemplateType = "follow_up"
)

type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelSMS   NotificationChannel = "sms"
	ChannelBoth  NotificationChannel = "both"
)

const DefaultTriggerBefore = 24

type NotificationTemplate struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Type          TemplateType        `json:"type"`
	Subject       string              `json:"subject"`
	Body          string              `json:"body"`
	Variables     []string            `json:"variables"`
	IsActive      bool                `json:"isActive"`
	Channel       NotificationChannel `json:"channel"`
	TriggerBefore int                 `json:"triggerBefore,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

func (t NotificationTemplate) Matches(term string) bool {
	return containsFold(term, t.Name, string(t.Type), t.Subject)
}

type TemplateRequest struct {
	Name          string              `json:"name" binding:"required" validate:"required"`
	Type          TemplateType        `json:"type" binding:"omitempty,oneof=appointment_reminder appointment_confirmation prescription_ready follow_up" validate:"omitempty,oneof=appointment_reminder appointment_confirmation prescription_ready follow_up"`
	Subject       string              `json:"subject" binding:"required" validate:"required"`
	Body          string              `json:"body" binding:"required" validate:"required"`
	Variables     []string            `json:"variables"`
	IsActive      *bool               `json:"isActive"`
	Channel       NotificationChannel `json:"channel" binding:"omitempty,oneof=email sms both" validate:"omitempty,oneof=email sms both"`
	TriggerBefore int                 `json:"triggerBefore" binding:"min=0" validate:"min=0"`
}

// ReminderLog records one reminder dispatch attempt per appointment and template.
type ReminderLog struct {
	ID            string              `json:"id"`
	AppointmentID string              `json:"appointmentId"`
	TemplateID    string              `json:"templateId"`
	Channel       NotificationChannel `json:"channel"`
	Recipient     string              `json:"recipient"`
	SentAt        time.Time           `json:"sentAt"`
	Error         string              `json:"error,omitempty"`
	// Partial marks a "both" reminder that reached only one channel.
	Partial       bool                `json:"partial,omitempty"`
}
