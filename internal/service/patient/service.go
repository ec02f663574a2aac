package patient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/carehospital/admin-api/internal/model"
	"github.com/carehospital/admin-api/internal/repository"
	apperrors "github.com/carehospital/admin-api/pkg/errors"
	"github.com/carehospital/admin-api/pkg/validator"
)

type Service struct {
	repo      repository.PatientRepository
	validator validator.Validator
	now       func() time.Time
}

func NewService(repo repository.PatientRepository) *Service {
	return &Service{
		repo:      repo,
		validator: validator.New(),
		now:       time.Now,
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// List returns patients matching term on name, email or phone, newest registration first.
func (s *Service) List(ctx context.Context, term string) ([]model.Patient, error) {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Patient, 0, len(snap.Items))
	for _, p := range snap.Items {
		if p.Matches(term) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RegistrationDate.After(out[j].RegistrationDate)
	})
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Patient, error) {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range snap.Items {
		if snap.Items[i].ID == id {
			return &snap.Items[i], nil
		}
	}
	return nil, apperrors.NotFound("patient", nil)
}

func (s *Service) Create(ctx context.Context, req model.PatientRequest) (*model.Patient, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	p := fromRequest(req)
	p.RegistrationDate = s.now()

	_, err := s.repo.Mutate(ctx, func(items []model.Patient) ([]model.Patient, error) {
		p.ID = model.NextTimestampID("patient-", p.RegistrationDate, func(id string) bool {
			for _, existing := range items {
				if existing.ID == id {
					return true
				}
			}
			return false
		})
		return append(items, p), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	return &p, nil
}

// Update keeps id, registrationDate and lastVisit.
func (s *Service) Update(ctx context.Context, id string, req model.PatientRequest) (*model.Patient, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	var updated model.Patient
	_, err := s.repo.Mutate(ctx, func(items []model.Patient) ([]model.Patient, error) {
		next := make([]model.Patient, len(items))
		copy(next, items)
		for i := range next {
			if next[i].ID != id {
				continue
			}
			p := fromRequest(req)
			p.ID = next[i].ID
			p.RegistrationDate = next[i].RegistrationDate
			p.LastVisit = next[i].LastVisit
			next[i] = p
			updated = p
			return next, nil
		}
		return nil, repository.ErrNoChange
	})
	if errors.Is(err, repository.ErrNoChange) {
		return nil, apperrors.NotFound("patient", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	return &updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.repo.Mutate(ctx, func(items []model.Patient) ([]model.Patient, error) {
		next := make([]model.Patient, 0, len(items))
		for _, p := range items {
			if p.ID != id {
				next = append(next, p)
			}
		}
		if len(next) == len(items) {
			return nil, repository.ErrNoChange
		}
		return next, nil
	})
	if errors.Is(err, repository.ErrNoChange) {
		return apperrors.NotFound("patient", nil)
	}
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	return nil
}

func fromRequest(req model.PatientRequest) model.Patient {
	p := model.Patient{
		Name:               strings.TrimSpace(req.Name),
		Email:              strings.TrimSpace(req.Email),
		Phone:              strings.TrimSpace(req.Phone),
		DateOfBirth:        req.DateOfBirth,
		Gender:             req.Gender,
		Address:            req.Address,
		EmergencyContact:   req.EmergencyContact,
		MedicalHistory:     req.MedicalHistory,
		Allergies:          nonNil(req.Allergies),
		CurrentMedications: nonNil(req.CurrentMedications),
		Status:             model.PatientStatusActive,
	}
	if req.InsuranceInfo.Provider != "" {
		info := req.InsuranceInfo
		p.InsuranceInfo = &info
	}
	return p
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
