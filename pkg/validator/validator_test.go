package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carehospital/admin-api/internal/model"
)

func TestValidate_Booking(t *testing.T) {
	v := New()

	ok := model.CreateAppointmentRequest{
		PatientName:  "Asha",
		PatientPhone: "+91 98765 43210",
		Department:   "Cardiology",
		Date:         "2024-06-01",
		Time:         "10:00",
		Type:         model.AppointmentTypeCheckup,
	}
	assert.NoError(t, v.Validate(ok))

	bad := ok
	bad.PatientName = ""
	bad.Date = "01/06/2024"
	bad.Type = "surgery"
	err := v.Validate(bad)
	assert.EqualError(t, err, "patientName is required; date must match 2006-01-02; type must be one of consultation, followup, emergency, checkup")
}

func TestValidate_StatusTag(t *testing.T) {
	type statusForm struct {
		Status model.AppointmentStatus `json:"status" validate:"required,appointment_status"`
	}
	v := New()

	assert.NoError(t, v.Validate(statusForm{Status: model.AppointmentStatusConfirmed}))
	assert.Error(t, v.Validate(statusForm{Status: model.AppointmentStatusPending}))
	assert.Error(t, v.Validate(statusForm{Status: "archived"}))
}

func TestHumanize_PassesThroughOtherErrors(t *testing.T) {
	err := errors.New("boom")
	assert.Same(t, err, Humanize(err))
}
