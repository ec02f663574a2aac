package model

import (
	"fmt"
	"strings"
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusPending     AppointmentStatus = "pending"
	AppointmentStatusConfirmed   AppointmentStatus = "confirmed"
	AppointmentStatusCompleted   AppointmentStatus = "completed"
	AppointmentStatusCancelled   AppointmentStatus = "cancelled"
	AppointmentStatusRescheduled AppointmentStatus = "rescheduled"
)

// Valid reports whether s is one of the five lifecycle states.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCompleted,
		AppointmentStatusCancelled, AppointmentStatusRescheduled:
		return true
	}
	return false
}

// IsTarget reports whether s may be requested by the admin status actions.
func (s AppointmentStatus) IsTarget() bool {
	return s.Valid() && s != AppointmentStatusPending
}

type AppointmentType string

const (
	AppointmentTypeConsultation AppointmentType = "consultation"
	AppointmentTypeFollowUp     AppointmentType = "followup"
	AppointmentTypeEmergency    AppointmentType = "emergency"
	AppointmentTypeCheckup      AppointmentType = "checkup"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case AppointmentTypeConsultation, AppointmentTypeFollowUp, AppointmentTypeEmergency, AppointmentTypeCheckup:
		return true
	}
	return false
}

const DefaultAppointmentDuration = 30

// UnassignedDoctor is shown for bookings made without choosing a doctor.
const UnassignedDoctor = "To be assigned"

type Appointment struct {
	ID           string            `json:"id"`
	PatientID    string            `json:"patientId"`
	PatientName  string            `json:"patientName"`
	PatientEmail string            `json:"patientEmail"`
	PatientPhone string            `json:"patientPhone"`
	DoctorID     string            `json:"doctorId"`
	DoctorName   string            `json:"doctorName"`
	Department   string            `json:"department"`
	Date         string            `json:"date"`
	Time         string            `json:"time"`
	Duration     int               `json:"duration"`
	Type         AppointmentType   `json:"type"`
	Status       AppointmentStatus `json:"status"`
	Symptoms     string            `json:"symptoms,omitempty"`
	Notes        string            `json:"notes,omitempty"`
	Prescription string            `json:"prescription,omitempty"`
	FollowUpDate string            `json:"followUpDate,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

var slotLayouts = []string{"15:04", "3:04 PM", "03:04 PM", "3:04PM", "03:04PM"}

// StartsAt combines Date and the Time slot label in loc.
func (a Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation("2006-01-02", a.Date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid appointment date %q: %w", a.Date, err)
	}
	label := strings.ToUpper(strings.TrimSpace(a.Time))
	for _, layout := range slotLayouts {
		if t, err := time.Parse(layout, label); err == nil {
			return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid appointment time %q", a.Time)
}

// Matches applies the admin list filter: a case-insensitive search over
// patient name, patient email, department and doctor name, plus a status
// filter where "" or "all" matches everything.
func (a Appointment) Matches(f AppointmentFilters) bool {
	if f.Status != "" && f.Status != "all" && string(a.Status) != f.Status {
		return false
	}
	return containsFold(f.SearchTerm, a.PatientName, a.PatientEmail, a.Department, a.DoctorName)
}

type CreateAppointmentRequest struct {
	PatientID    string          `json:"patientId"`
	PatientName  string          `json:"patientName" binding:"required" validate:"required"`
	PatientEmail string          `json:"patientEmail" binding:"omitempty,email" validate:"omitempty,email"`
	PatientPhone string          `json:"patientPhone" binding:"required" validate:"required"`
	DoctorID     string          `json:"doctorId"`
	DoctorName   string          `json:"doctorName"`
	Department   string          `json:"department" binding:"required" validate:"required"`
	Date         string          `json:"date" binding:"required,datetime=2006-01-02" validate:"required,datetime=2006-01-02"`
	Time         string          `json:"time" binding:"required" validate:"required"`
	Duration     int             `json:"duration" binding:"omitempty,min=5,max=480" validate:"omitempty,min=5,max=480"`
	Type         AppointmentType `json:"type" binding:"omitempty,appointment_type" validate:"omitempty,appointment_type"`
	Symptoms     string          `json:"symptoms" binding:"max=2000" validate:"max=2000"`
}

type UpdateAppointmentStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required,appointment_status"`
}

// UpdateAppointmentRequest carries the clinical fields an admin may edit.
type UpdateAppointmentRequest struct {
	Notes        *string `json:"notes"`
	Prescription *string `json:"prescription"`
	FollowUpDate *string `json:"followUpDate" binding:"omitempty,datetime=2006-01-02"`
}

type AppointmentFilters struct {
	SearchTerm string `form:"q"`
	Status     string `form:"status"`
}

type AppointmentStats struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	Confirmed   int `json:"confirmed"`
	Completed   int `json:"completed"`
	Cancelled   int `json:"cancelled"`
	Rescheduled int `json:"rescheduled"`
}
