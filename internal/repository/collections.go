package repository

import "github.com/carehospital/admin-api/internal/model"

// Collections bundles the typed collections of every key the service owns.
type Collections struct {
	Appointments  *Collection[model.Appointment]
	Doctors       *Collection[model.Doctor]
	Patients      *Collection[model.Patient]
	Templates     *Collection[model.NotificationTemplate]
	ChatSessions  *Collection[model.ChatSession]
	HealthRecords *Collection[model.HealthRecord]
	ReminderLog   *Collection[model.ReminderLog]
}

func NewCollections(store CollectionStore, notifier ChangeNotifier) *Collections {
	return &Collections{
		Appointments:  NewCollection[model.Appointment](store, model.KeyAppointments, notifier),
		Doctors:       NewCollection[model.Doctor](store, model.KeyDoctors, notifier),
		Patients:      NewCollection[model.Patient](store, model.KeyPatients, notifier),
		Templates:     NewCollection[model.NotificationTemplate](store, model.KeyNotificationTemplates, notifier),
		ChatSessions:  NewCollection[model.ChatSession](store, model.KeyChatSessions, notifier),
		HealthRecords: NewCollection[model.HealthRecord](store, model.KeyHealthRecords, notifier),
		ReminderLog:   NewCollection[model.ReminderLog](store, model.KeyReminderLog, notifier),
	}
}
