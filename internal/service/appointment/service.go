package appointment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carehospital/admin-api/internal/model"
	"github.com/carehospital/admin-api/internal/repository"
	"github.com/carehospital/admin-api/internal/service/notification"
	"github.com/carehospital/admin-api/pkg/logger"
	"github.com/carehospital/admin-api/pkg/metrics"
	"github.com/carehospital/admin-api/pkg/validator"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("status must be one of confirmed, cancelled, completed, rescheduled")
	ErrValidation        = errors.New("invalid appointment")
)

// HandoffFailedNotice replaces the confirmation notice when no link could be built.
const HandoffFailedNotice = "Failed to open WhatsApp"

// transitions lists the statuses reachable from each state.
var transitions = map[model.AppointmentStatus][]model.AppointmentStatus{
	model.AppointmentStatusPending: {
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusCancelled,
		model.AppointmentStatusRescheduled,
	},
	model.AppointmentStatusConfirmed: {
		model.AppointmentStatusCompleted,
		model.AppointmentStatusRescheduled,
	},
	model.AppointmentStatusRescheduled: {
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusCancelled,
	},
}

// CanTransition reports whether an appointment in from may move to to.
// Re-applying the current status is allowed for any target status.
func CanTransition(from, to model.AppointmentStatus) bool {
	if !to.IsTarget() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusResult is what the admin UI shows after a status action.
type StatusResult struct {
	Appointment  *model.Appointment `json:"appointment"`
	Message      string             `json:"message"`
	WhatsAppURL  string             `json:"whatsappUrl,omitempty"`
	Notice       string             `json:"notice"`
	HandoffError string             `json:"handoffError,omitempty"`
}

type Service struct {
	repo      repository.AppointmentRepository
	composer  *notification.Composer
	handoff   *notification.Handoff
	validator validator.Validator
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	now       func() time.Time
}

// NewService wires the appointment workflow. m may be nil.
func NewService(repo repository.AppointmentRepository, composer *notification.Composer, handoff *notification.Handoff, m *metrics.Metrics) *Service {
	return &Service{
		repo:      repo,
		composer:  composer,
		handoff:   handoff,
		validator: validator.New(),
		metrics:   m,
		tracer:    otel.Tracer("github.com/carehospital/admin-api/internal/service/appointment"),
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ApplyStatus returns a copy of items in which the appointment id has status
// and a strictly later updatedAt. Unknown ids return (items, nil, nil).
func ApplyStatus(items []model.Appointment, id string, status model.AppointmentStatus, now time.Time) ([]model.Appointment, *model.Appointment, error) {
	idx := -1
	for i := range items {
		if items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return items, nil, nil
	}

	current := items[idx]
	if !CanTransition(current.Status, status) {
		return nil, nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, status)
	}

	next := make([]model.Appointment, len(items))
	copy(next, items)

	updated := current
	updated.Status = status
	updated.UpdatedAt = advance(current.UpdatedAt, now)
	next[idx] = updated

	return next, &updated, nil
}

// advance returns now, or prev+1ns when the clock has not moved past prev.
func advance(prev, now time.Time) time.Time {
	if !now.After(prev) {
		return prev.Add(time.Nanosecond)
	}
	return now
}

// UpdateStatus applies an admin status action. It returns (nil, nil) when no
// appointment has the id. Hand-off failures are reported in the result and do
// not undo the status change.
func (s *Service) UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) (*StatusResult, error) {
	ctx, span := s.tracer.Start(ctx, "appointment.UpdateStatus", trace.WithAttributes(
		attribute.String("appointment.id", id),
		attribute.String("appointment.status", string(status)),
	))
	defer span.End()

	if !status.IsTarget() {
		span.SetStatus(codes.Error, ErrInvalidStatus.Error())
		return nil, ErrInvalidStatus
	}

	var (
		updated *model.Appointment
		from    model.AppointmentStatus
	)
	_, err := s.repo.Mutate(ctx, func(items []model.Appointment) ([]model.Appointment, error) {
		for _, a := range items {
			if a.ID == id {
				from = a.Status
				break
			}
		}
		next, apt, err := ApplyStatus(items, id, status, s.now())
		if err != nil {
			return nil, err
		}
		if apt == nil {
			return nil, repository.ErrNoChange
		}
		updated = apt
		return next, nil
	})
	if errors.Is(err, repository.ErrNoChange) {
		logger.FromContext(ctx).Warn().Str("appointment_id", id).Msg("status update for unknown appointment ignored")
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}

	if s.metrics != nil {
		s.metrics.StatusTransitions.WithLabelValues(string(from), string(status)).Inc()
	}

	result := &StatusResult{
		Appointment: updated,
		Message:     s.composer.Compose(*updated, status),
	}

	link, err := s.handoff.BuildLink(updated.PatientPhone, result.Message)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("appointment_id", id).Msg("messaging hand-off failed")
		result.Notice = HandoffFailedNotice
		result.HandoffError = err.Error()
		return result, nil
	}

	result.WhatsAppURL = link
	result.Notice = fmt.Sprintf("Appointment %s and WhatsApp message sent to %s", status, updated.PatientPhone)

	logger.FromContext(ctx).Info().
		Str("appointment_id", id).
		Str("from", string(from)).
		Str("to", string(status)).
		Msg("appointment status updated")

	return result, nil
}

// Book stores a new pending appointment from the public booking form.
func (s *Service) Book(ctx context.Context, req model.CreateAppointmentRequest) (*model.Appointment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := s.now()
	apt := model.Appointment{
		ID:           model.NewAppointmentID(now),
		PatientID:    req.PatientID,
		PatientName:  strings.TrimSpace(req.PatientName),
		PatientEmail: strings.TrimSpace(req.PatientEmail),
		PatientPhone: strings.TrimSpace(req.PatientPhone),
		DoctorID:     req.DoctorID,
		DoctorName:   req.DoctorName,
		Department:   req.Department,
		Date:         req.Date,
		Time:         req.Time,
		Duration:     req.Duration,
		Type:         req.Type,
		Status:       model.AppointmentStatusPending,
		Symptoms:     req.Symptoms,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if apt.Duration == 0 {
		apt.Duration = model.DefaultAppointmentDuration
	}
	if apt.Type == "" {
		apt.Type = model.AppointmentTypeConsultation
	}
	if apt.PatientID == "" {
		apt.PatientID = "patient_" + strconv.FormatInt(now.UnixMilli(), 10)
	}
	apt.DoctorName = strings.TrimSpace(apt.DoctorName)
	if apt.DoctorName == "" {
		apt.DoctorName = model.UnassignedDoctor
	} else if apt.DoctorID == "" {
		apt.DoctorID = "doctor_" + strings.ToLower(strings.Join(strings.Fields(apt.DoctorName), "_"))
	}

	if _, err := s.repo.Mutate(ctx, func(items []model.Appointment) ([]model.Appointment, error) {
		return append(items, apt), nil
	}); err != nil {
		return nil, fmt.Errorf("failed to book appointment: %w", err)
	}

	logger.FromContext(ctx).Info().Str("appointment_id", apt.ID).Str("department", apt.Department).Msg("appointment booked")
	return &apt, nil
}

// Get returns the appointment or (nil, nil) when absent.
func (s *Service) Get(ctx context.Context, id string) (*model.Appointment, error) {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range snap.Items {
		if snap.Items[i].ID == id {
			return &snap.Items[i], nil
		}
	}
	return nil, nil
}

func (s *Service) List(ctx context.Context, filter model.AppointmentFilters) ([]model.Appointment, error) {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(snap.Items, filter), nil
}

// Filter returns the matching appointments in stored (booking) order.
func Filter(items []model.Appointment, filter model.AppointmentFilters) []model.Appointment {
	out := make([]model.Appointment, 0, len(items))
	for _, a := range items {
		if a.Matches(filter) {
			out = append(out, a)
		}
	}
	return out
}

func (s *Service) Stats(ctx context.Context) (*model.AppointmentStats, error) {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	stats := ComputeStats(snap.Items)
	return &stats, nil
}

func ComputeStats(items []model.Appointment) model.AppointmentStats {
	stats := model.AppointmentStats{Total: len(items)}
	for _, a := range items {
		switch a.Status {
		case model.AppointmentStatusPending:
			stats.Pending++
		case model.AppointmentStatusConfirmed:
			stats.Confirmed++
		case model.AppointmentStatusCompleted:
			stats.Completed++
		case model.AppointmentStatusCancelled:
			stats.Cancelled++
		case model.AppointmentStatusRescheduled:
			stats.Rescheduled++
		}
	}
	return stats
}

// UpdateDetails edits the clinical fields. Unknown ids return (nil, nil).
func (s *Service) UpdateDetails(ctx context.Context, id string, req model.UpdateAppointmentRequest) (*model.Appointment, error) {
	var updated *model.Appointment
	_, err := s.repo.Mutate(ctx, func(items []model.Appointment) ([]model.Appointment, error) {
		idx := -1
		for i := range items {
			if items[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, repository.ErrNoChange
		}

		next := make([]model.Appointment, len(items))
		copy(next, items)
		apt := next[idx]
		if req.Notes != nil {
			apt.Notes = *req.Notes
		}
		if req.Prescription != nil {
			apt.Prescription = *req.Prescription
		}
		if req.FollowUpDate != nil {
			apt.FollowUpDate = *req.FollowUpDate
		}
		apt.UpdatedAt = advance(apt.UpdatedAt, s.now())
		next[idx] = apt
		updated = &apt
		return next, nil
	})
	if errors.Is(err, repository.ErrNoChange) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}
	return updated, nil
}
