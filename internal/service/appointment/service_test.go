package appointment

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carehospital/admin-api/internal/model"
	"github.com/carehospital/admin-api/internal/repository"
	"github.com/carehospital/admin-api/internal/repository/memory"
	"github.com/carehospital/admin-api/internal/service/notification"
	"github.com/carehospital/admin-api/pkg/metrics"
)

var baseTime = time.Date(2024, 5, 30, 9, 0, 0, 0, time.UTC)

func seedAppointments() []model.Appointment {
	return []model.Appointment{
		{
			ID:           "a1",
			PatientName:  "Asha Rao",
			PatientEmail: "asha@example.com",
			PatientPhone: "+91 98765-43210",
			DoctorName:   "Dr. Smith",
			Department:   "Cardiology",
			Date:         "2024-06-01",
			Time:         "10:00",
			Duration:     30,
			Type:         model.AppointmentTypeConsultation,
			Status:       model.AppointmentStatusPending,
			CreatedAt:    baseTime,
			UpdatedAt:    baseTime,
		},
		{
			ID:           "a2",
			PatientName:  "Ben Ortiz",
			PatientEmail: "ben@example.com",
			PatientPhone: "+1 555 0100",
			DoctorName:   "Dr. Jones",
			Department:   "Neurology",
			Date:         "2024-06-02",
			Time:         "2:30 PM",
			Duration:     30,
			Type:         model.AppointmentTypeCheckup,
			Status:       model.AppointmentStatusCompleted,
			CreatedAt:    baseTime.Add(time.Hour),
			UpdatedAt:    baseTime.Add(time.Hour),
		},
	}
}

type fixture struct {
	svc   *Service
	store *memory.Store
	repo  *repository.Collection[model.Appointment]
	reg   *prometheus.Registry
	m     *metrics.Metrics
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	store := memory.NewStore()
	repo := repository.NewCollection[model.Appointment](store, model.KeyAppointments, nil)
	_, err := repo.Save(context.Background(), seedAppointments())
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("test", reg)
	svc := NewService(repo, notification.NewComposer(notification.DefaultHospital), notification.NewHandoff("", m), m)
	svc.SetClock(func() time.Time { return now })
	return &fixture{svc: svc, store: store, repo: repo, reg: reg, m: m}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to model.AppointmentStatus
		want     bool
	}{
		{model.AppointmentStatusPending, model.AppointmentStatusConfirmed, true},
		{model.AppointmentStatusPending, model.AppointmentStatusCancelled, true},
		{model.AppointmentStatusPending, model.AppointmentStatusRescheduled, true},
		{model.AppointmentStatusPending, model.AppointmentStatusCompleted, false},
		{model.AppointmentStatusConfirmed, model.AppointmentStatusCompleted, true},
		{model.AppointmentStatusConfirmed, model.AppointmentStatusRescheduled, true},
		{model.AppointmentStatusConfirmed, model.AppointmentStatusCancelled, false},
		{model.AppointmentStatusRescheduled, model.AppointmentStatusConfirmed, true},
		{model.AppointmentStatusRescheduled, model.AppointmentStatusCancelled, true},
		{model.AppointmentStatusCompleted, model.AppointmentStatusConfirmed, false},
		{model.AppointmentStatusCancelled, model.AppointmentStatusConfirmed, false},
		{model.AppointmentStatusCompleted, model.AppointmentStatusCompleted, true},
		{model.AppointmentStatusPending, model.AppointmentStatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestApplyStatus_ChangesExactlyOneRecord(t *testing.T) {
	items := seedAppointments()
	before, err := json.Marshal(items)
	require.NoError(t, err)

	now := baseTime.Add(2 * time.Hour)
	next, updated, err := ApplyStatus(items, "a1", model.AppointmentStatusConfirmed, now)
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, model.AppointmentStatusConfirmed, next[0].Status)
	assert.Equal(t, now, next[0].UpdatedAt)

	other, err := json.Marshal(next[1])
	require.NoError(t, err)
	orig, err := json.Marshal(items[1])
	require.NoError(t, err)
	assert.Equal(t, orig, other)

	after, err := json.Marshal(items)
	require.NoError(t, err)
	assert.Equal(t, before, after, "input slice must not be modified")
}

func TestApplyStatus_UpdatedAtAlwaysAdvances(t *testing.T) {
	items := seedAppointments()

	_, updated, err := ApplyStatus(items, "a1", model.AppointmentStatusConfirmed, baseTime.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(items[0].UpdatedAt))
	assert.Equal(t, baseTime.Add(time.Nanosecond), updated.UpdatedAt)
}

func TestApplyStatus_UnknownID(t *testing.T) {
	items := seedAppointments()
	next, updated, err := ApplyStatus(items, "missing", model.AppointmentStatusConfirmed, baseTime)
	require.NoError(t, err)
	assert.Nil(t, updated)
	assert.Equal(t, items, next)
}

func TestUpdateStatus_PendingToConfirmed(t *testing.T) {
	f := newFixture(t, baseTime.Add(2*time.Hour))

	res, err := f.svc.UpdateStatus(context.Background(), "a1", model.AppointmentStatusConfirmed)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, model.AppointmentStatusConfirmed, res.Appointment.Status)
	assert.Contains(t, res.Message, "CONFIRMED")
	assert.Contains(t, res.Message, "Dr. Smith")
	assert.Contains(t, res.Message, "2024-06-01")
	assert.Contains(t, res.Message, "10:00")
	assert.Equal(t, "https://wa.me/919876543210?text="+notification.EncodeComponent(res.Message), res.WhatsAppURL)
	assert.Equal(t, "Appointment confirmed and WhatsApp message sent to +91 98765-43210", res.Notice)

	snap, err := f.repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, snap.Items[0].Status)
	assert.Equal(t, model.AppointmentStatusCompleted, snap.Items[1].Status)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.StatusTransitions.WithLabelValues("pending", "confirmed")))
}

func TestUpdateStatus_Idempotent(t *testing.T) {
	f := newFixture(t, baseTime.Add(2*time.Hour))
	ctx := context.Background()

	first, err := f.svc.UpdateStatus(ctx, "a1", model.AppointmentStatusConfirmed)
	require.NoError(t, err)
	second, err := f.svc.UpdateStatus(ctx, "a1", model.AppointmentStatusConfirmed)
	require.NoError(t, err)

	assert.Equal(t, first.Appointment.Status, second.Appointment.Status)
	assert.Equal(t, first.Message, second.Message)
	assert.True(t, second.Appointment.UpdatedAt.After(first.Appointment.UpdatedAt))
}

func TestUpdateStatus_UnknownIDWritesNothing(t *testing.T) {
	f := newFixture(t, baseTime)
	ctx := context.Background()

	_, before, err := f.store.Load(ctx, model.KeyAppointments)
	require.NoError(t, err)

	res, err := f.svc.UpdateStatus(ctx, "missing", model.AppointmentStatusConfirmed)
	require.NoError(t, err)
	assert.Nil(t, res)

	_, after, err := f.store.Load(ctx, model.KeyAppointments)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUpdateStatus_Rejections(t *testing.T) {
	f := newFixture(t, baseTime)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, "a2", model.AppointmentStatusConfirmed)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, "a1", model.AppointmentStatusPending)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.UpdateStatus(ctx, "a1", "archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateStatus_HandoffFailureKeepsStatus(t *testing.T) {
	f := newFixture(t, baseTime.Add(time.Hour))
	ctx := context.Background()

	items := seedAppointments()
	items[0].PatientPhone = "none"
	_, err := f.repo.Save(ctx, items)
	require.NoError(t, err)

	res, err := f.svc.UpdateStatus(ctx, "a1", model.AppointmentStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, HandoffFailedNotice, res.Notice)
	assert.Empty(t, res.WhatsAppURL)
	assert.NotEmpty(t, res.HandoffError)

	got, err := f.svc.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, got.Status)
}

func TestBook(t *testing.T) {
	now := baseTime.Add(3 * time.Hour)
	f := newFixture(t, now)
	ctx := context.Background()

	apt, err := f.svc.Book(ctx, model.CreateAppointmentRequest{
		PatientName:  " Chen Li ",
		PatientPhone: "+44 20 7946 0958",
		Department:   "Orthopedics",
		Date:         "2024-06-10",
		Time:         "11:30",
	})
	require.NoError(t, err)

	assert.Regexp(t, `^apt_\d+_[0-9a-f]{9}$`, apt.ID)
	assert.Equal(t, "Chen Li", apt.PatientName)
	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
	assert.Equal(t, model.DefaultAppointmentDuration, apt.Duration)
	assert.Equal(t, model.AppointmentTypeConsultation, apt.Type)
	assert.Equal(t, now, apt.CreatedAt)

	list, err := f.svc.List(ctx, model.AppointmentFilters{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, apt.ID, list[2].ID, "appended after existing bookings")
}

func TestBook_Defaults(t *testing.T) {
	now := baseTime.Add(3 * time.Hour)
	f := newFixture(t, now)
	ctx := context.Background()

	unassigned, err := f.svc.Book(ctx, model.CreateAppointmentRequest{
		PatientName:  "Jane Doe",
		PatientPhone: "+91 90000 22222",
		Department:   "Cardiology",
		Date:         "2024-06-01",
		Time:         "10:00 AM",
	})
	require.NoError(t, err)
	assert.Equal(t, model.UnassignedDoctor, unassigned.DoctorName)
	assert.Empty(t, unassigned.DoctorID)
	assert.Equal(t, fmt.Sprintf("patient_%d", now.UnixMilli()), unassigned.PatientID)

	result, err := f.svc.UpdateStatus(ctx, unassigned.ID, model.AppointmentStatusConfirmed)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Contains(t, result.Message, "with To be assigned on 2024-06-01 at 10:00 AM")

	named, err := f.svc.Book(ctx, model.CreateAppointmentRequest{
		PatientName:  "Ravi Kumar",
		PatientPhone: "+91 90000 33333",
		Department:   "Neurology",
		DoctorName:   " Dr.  Anil Mehta ",
		Date:         "2024-06-02",
		Time:         "11:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dr.  Anil Mehta", named.DoctorName)
	assert.Equal(t, "doctor_dr._anil_mehta", named.DoctorID)
}

func TestBook_ValidationBeforeWrite(t *testing.T) {
	f := newFixture(t, baseTime)
	ctx := context.Background()
	_, before, _ := f.store.Load(ctx, model.KeyAppointments)

	_, err := f.svc.Book(ctx, model.CreateAppointmentRequest{PatientName: "No Phone"})
	assert.ErrorIs(t, err, ErrValidation)

	_, after, _ := f.store.Load(ctx, model.KeyAppointments)
	assert.Equal(t, before, after)
}

func TestListAndStats(t *testing.T) {
	f := newFixture(t, baseTime)
	ctx := context.Background()

	list, err := f.svc.List(ctx, model.AppointmentFilters{SearchTerm: "NEURO"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a2", list[0].ID)

	list, err = f.svc.List(ctx, model.AppointmentFilters{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a1", list[0].ID)

	list, err = f.svc.List(ctx, model.AppointmentFilters{Status: "all", SearchTerm: "dr."})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStats{Total: 2, Pending: 1, Completed: 1}, *stats)
}

func TestList_EmptyCollection(t *testing.T) {
	repo := repository.NewCollection[model.Appointment](memory.NewStore(), model.KeyAppointments, nil)
	svc := NewService(repo, notification.NewComposer(notification.DefaultHospital), notification.NewHandoff("", nil), nil)

	list, err := svc.List(context.Background(), model.AppointmentFilters{SearchTerm: "anything"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateDetails(t *testing.T) {
	f := newFixture(t, baseTime.Add(5*time.Hour))
	ctx := context.Background()

	notes := "Bring previous ECG"
	apt, err := f.svc.UpdateDetails(ctx, "a2", model.UpdateAppointmentRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, apt.Notes)
	assert.Equal(t, baseTime.Add(5*time.Hour), apt.UpdatedAt)

	apt, err = f.svc.UpdateDetails(ctx, "missing", model.UpdateAppointmentRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Nil(t, apt)
}

func TestLastSaveWins(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	first := repository.NewCollection[model.Appointment](store, model.KeyAppointments, nil)
	second := repository.NewCollection[model.Appointment](store, model.KeyAppointments, nil)
	_, err := first.Save(ctx, seedAppointments())
	require.NoError(t, err)

	snapA, err := first.Load(ctx)
	require.NoError(t, err)
	snapB, err := second.Load(ctx)
	require.NoError(t, err)

	a, _, err := ApplyStatus(snapA.Items, "a1", model.AppointmentStatusConfirmed, baseTime.Add(time.Minute))
	require.NoError(t, err)
	b, _, err := ApplyStatus(snapB.Items, "a1", model.AppointmentStatusCancelled, baseTime.Add(time.Minute))
	require.NoError(t, err)

	_, err = first.Save(ctx, a)
	require.NoError(t, err)
	_, err = second.Save(ctx, b)
	require.NoError(t, err)

	final, err := first.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, final.Items[0].Status)

	_, err = first.CompareAndSave(ctx, a, snapA.Version)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)
}
