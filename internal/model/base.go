package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Collection keys. Each key stores one JSON array of records.
const (
	KeyAppointments          = "appointments"
	KeyDoctors               = "doctors"
	KeyPatients              = "patients"
	KeyNotificationTemplates = "notificationTemplates"
	KeyChatSessions          = "chatSessions"
	KeyHealthRecords         = "healthRecords"
	KeyReminderLog           = "reminderLog"
)

// AllKeys lists every collection key owned by the service.
var AllKeys = []string{
	KeyAppointments,
	KeyDoctors,
	KeyPatients,
	KeyNotificationTemplates,
	KeyChatSessions,
	KeyHealthRecords,
	KeyReminderLog,
}

// NextTimestampID returns prefix+<unix millis>, bumping the millisecond
// until taken reports the id as free.
func NextTimestampID(prefix string, now time.Time, taken func(string) bool) string {
	ms := now.UnixMilli()
	for {
		id := prefix + strconv.FormatInt(ms, 10)
		if taken == nil || !taken(id) {
			return id
		}
		ms++
	}
}

// NewAppointmentID returns apt_<unix millis>_<9 random chars>.
func NewAppointmentID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return "apt_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix
}

// containsFold reports whether any field contains term, case-insensitively.
func containsFold(term string, fields ...string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
