package notification

import (
	"fmt"

	"github.com/carehospital/admin-api/internal/model"
)

// Hospital identifies the sender in patient-facing messages.
type Hospital struct {
	Name  string
	Phone string
}

var DefaultHospital = Hospital{
	Name:  "Care Hospital",
	Phone: "+91 98765 43210",
}

// Composer builds the status-change message sent to a patient.
type Composer struct {
	hospital Hospital
}

func NewComposer(h Hospital) *Composer {
	if h.Name == "" {
		h.Name = DefaultHospital.Name
	}
	if h.Phone == "" {
		h.Phone = DefaultHospital.Phone
	}
	return &Composer{hospital: h}
}

// Compose is deterministic in (apt, status). Field values are inserted verbatim.
func (c *Composer) Compose(apt model.Appointment, status model.AppointmentStatus) string {
	base := fmt.Sprintf("Hello %s, this is %s.", apt.PatientName, c.hospital.Name)

	switch status {
	case model.AppointmentStatusConfirmed:
		return fmt.Sprintf("%s Your appointment with %s on %s at %s has been CONFIRMED. Please arrive 15 minutes early. For any queries, call us at %s.",
			base, apt.DoctorName, apt.Date, apt.Time, c.hospital.Phone)
	case model.AppointmentStatusCancelled:
		return fmt.Sprintf("%s We regret to inform you that your appointment with %s scheduled for %s at %s has been CANCELLED. Please contact us to reschedule at %s.",
			base, apt.DoctorName, apt.Date, apt.Time, c.hospital.Phone)
	case model.AppointmentStatusCompleted:
		return fmt.Sprintf("%s Thank you for visiting us today. Your appointment with %s has been completed. Take care and follow the prescribed treatment. Contact us for any follow-up needs.",
			base, apt.DoctorName)
	case model.AppointmentStatusRescheduled:
		return fmt.Sprintf("%s Your appointment with %s has been RESCHEDULED. Our team will contact you shortly with the new date and time. Sorry for any inconvenience. Contact: %s",
			base, apt.DoctorName, c.hospital.Phone)
	default:
		return fmt.Sprintf("%s Your appointment status has been updated to %s.", base, status)
	}
}

// Compose uses DefaultHospital.
func Compose(apt model.Appointment, status model.AppointmentStatus) string {
	return NewComposer(DefaultHospital).Compose(apt, status)
}
