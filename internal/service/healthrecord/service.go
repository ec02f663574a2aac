package healthrecord

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/carehospital/admin-api/internal/model"
	"github.com/carehospital/admin-api/internal/repository"
	apperrors "github.com/carehospital/admin-api/pkg/errors"
	"github.com/carehospital/admin-api/pkg/validator"
)

type Service struct {
	repo      repository.HealthRecordRepository
	validator validator.Validator
	now       func() time.Time
}

func NewService(repo repository.HealthRecordRepository) *Service {
	return &Service{repo: repo, validator: validator.New(), now: time.Now}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// List returns records for patientID (all when empty), most recent date first.
func (s *Service) List(ctx context.Context, patientID string) ([]model.HealthRecord, error) {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.HealthRecord, 0, len(snap.Items))
	for _, r := range snap.Items {
		if patientID == "" || r.PatientID == patientID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	return out, nil
}

func (s *Service) Create(ctx context.Context, req model.HealthRecordRequest) (*model.HealthRecord, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	rec := model.HealthRecord{
		PatientID:   req.PatientID,
		PatientName: req.PatientName,
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		DoctorName:  req.DoctorName,
		Department:  req.Department,
		FileURL:     req.FileURL,
		Results:     req.Results,
		CreatedAt:   s.now(),
	}

	_, err := s.repo.Mutate(ctx, func(items []model.HealthRecord) ([]model.HealthRecord, error) {
		rec.ID = model.NextTimestampID("record-", rec.CreatedAt, func(id string) bool {
			for _, r := range items {
				if r.ID == id {
					return true
				}
			}
			return false
		})
		return append(items, rec), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create health record: %w", err)
	}
	return &rec, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.repo.Mutate(ctx, func(items []model.HealthRecord) ([]model.HealthRecord, error) {
		next := make([]model.HealthRecord, 0, len(items))
		for _, r := range items {
			if r.ID != id {
				next = append(next, r)
			}
		}
		if len(next) == len(items) {
			return nil, repository.ErrNoChange
		}
		return next, nil
	})
	if errors.Is(err, repository.ErrNoChange) {
		return apperrors.NotFound("health record", nil)
	}
	if err != nil {
		return fmt.Errorf("failed to delete health record: %w", err)
	}
	return nil
}
