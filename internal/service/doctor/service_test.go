package doctor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carehospital/admin-api/internal/model"
	"github.com/carehospital/admin-api/internal/repository"
	"github.com/carehospital/admin-api/internal/repository/memory"
	apperrors "github.com/carehospital/admin-api/pkg/errors"
)

func newService() *Service {
	repo := repository.NewCollection[model.Doctor](memory.NewStore(), model.KeyDoctors, nil)
	svc := NewService(repo)
	svc.SetClock(func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) })
	return svc
}

func TestCreate_Defaults(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	first, err := svc.Create(ctx, model.DoctorRequest{Name: "Dr. Smith", Specialization: "Cardiologist", Department: "Cardiology"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, model.DoctorRequest{Name: "Dr. Jones", Specialization: "Neurologist"})
	require.NoError(t, err)

	assert.Equal(t, "doctor-1717200000000", first.ID)
	assert.Equal(t, "doctor-1717200000001", second.ID)
	assert.True(t, first.Available)
	assert.Equal(t, 0.0, first.Rating)
	assert.True(t, first.ConsultationFee.IsZero())
	assert.NotNil(t, first.Availability)
	assert.Equal(t, model.DoctorStatusActive, first.Status)
}

func TestCreate_RequiresName(t *testing.T) {
	svc := newService()
	_, err := svc.Create(context.Background(), model.DoctorRequest{Specialization: "GP"})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)

	list, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConsultationFeeRoundTrip(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	fee := decimal.RequireFromString("750.50")
	doc, err := svc.Create(ctx, model.DoctorRequest{Name: "Dr. Fee", Specialization: "GP", ConsultationFee: fee})
	require.NoError(t, err)

	got, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, fee.Equal(got.ConsultationFee))

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"consultationFee":"750.5"`)
}

func TestSearchUpdateDelete(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	doc, err := svc.Create(ctx, model.DoctorRequest{Name: "Dr. Smith", Specialization: "Cardiologist", Department: "Cardiology"})
	require.NoError(t, err)

	list, err := svc.List(ctx, "cardio")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	off := false
	updated, err := svc.Update(ctx, doc.ID, model.DoctorRequest{Name: "Dr. Smith", Specialization: "Cardiologist", Available: &off, Rating: 4.5})
	require.NoError(t, err)
	assert.False(t, updated.Available)
	assert.Equal(t, doc.CreatedAt, updated.CreatedAt)

	_, err = svc.Update(ctx, "doctor-0", model.DoctorRequest{Name: "x", Specialization: "y"})
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, svc.Delete(ctx, doc.ID))
	_, err = svc.Get(ctx, doc.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDepartments(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, model.DoctorRequest{Name: "A", Specialization: "x", Department: "Sports Medicine"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, model.DoctorRequest{Name: "B", Specialization: "x", Department: "Cardiology"})
	require.NoError(t, err)

	deps, err := svc.Departments(ctx)
	require.NoError(t, err)
	assert.Len(t, deps, len(model.DefaultDepartments)+1)
	assert.Contains(t, deps, "Sports Medicine")
	assert.IsIncreasing(t, deps)
}
