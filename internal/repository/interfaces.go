package repository

import (
	"context"
	"errors"

	"github.com/carehospital/admin-api/internal/model"
)

var (
	// ErrVersionConflict is returned by CompareAndSave when the stored
	// version no longer matches the expected one.
	ErrVersionConflict = errors.New("collection version conflict")

	// ErrNoChange aborts a Mutate without writing.
	ErrNoChange = errors.New("no change")
)

// All repository interfaces in one file
type (
	// CollectionStore persists one serialized collection per key together
	// with a version counter. An absent key loads as (nil, 0, nil).
	CollectionStore interface {
		Load(ctx context.Context, key string) ([]byte, int64, error)
		// Save replaces the value unconditionally. Last writer wins.
		Save(ctx context.Context, key string, value []byte) (int64, error)
		// CompareAndSave replaces the value only when the stored version
		// equals expected, returning ErrVersionConflict otherwise.
		CompareAndSave(ctx context.Context, key string, value []byte, expected int64) (int64, error)
		Keys(ctx context.Context) ([]string, error)
		Close() error
	}

	// ChangeNotifier is told about every successful write.
	ChangeNotifier interface {
		Notify(ctx context.Context, key string, version int64) error
	}

	CollectionRepository[T any] interface {
		Key() string
		Load(ctx context.Context) (Snapshot[T], error)
		Save(ctx context.Context, items []T) (int64, error)
		CompareAndSave(ctx context.Context, items []T, expected int64) (int64, error)
		Mutate(ctx context.Context, fn MutateFunc[T]) ([]T, error)
	}

	AppointmentRepository  = CollectionRepository[model.Appointment]
	DoctorRepository       = CollectionRepository[model.Doctor]
	PatientRepository      = CollectionRepository[model.Patient]
	TemplateRepository     = CollectionRepository[model.NotificationTemplate]
	ChatSessionRepository  = CollectionRepository[model.ChatSession]
	HealthRecordRepository = CollectionRepository[model.HealthRecord]
	ReminderLogRepository  = CollectionRepository[model.ReminderLog]
)
