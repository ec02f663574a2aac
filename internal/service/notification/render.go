package notification

import (
	"regexp"

	"github.com/carehospital/admin-api/internal/model"
)

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// Variables returns the placeholder values available to templates.
func Variables(apt model.Appointment, h Hospital) map[string]string {
	return map[string]string{
		"patientName":     apt.PatientName,
		"doctorName":      apt.DoctorName,
		"appointmentDate": apt.Date,
		"appointmentTime": apt.Time,
		"department":      apt.Department,
		"hospitalName":    h.Name,
		"hospitalPhone":   h.Phone,
	}
}

// Render substitutes {name} placeholders. Unknown placeholders stay as written.
func Render(text string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}

// Rendered is a template with its placeholders filled in.
type Rendered struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func RenderTemplate(tpl model.NotificationTemplate, apt model.Appointment, h Hospital) Rendered {
	vars := Variables(apt, h)
	return Rendered{
		Subject: Render(tpl.Subject, vars),
		Body:    Render(tpl.Body, vars),
	}
}
