package doctor

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
	repo      repository.DoctorRepository
	validator validator.Validator
	now       func() time.Time
}

func NewService(repo repository.DoctorRepository) *Service {
	return &Service{
		repo:      repo,
		validator: validator.New(),
		now:       time.Now,
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// List returns doctors whose name, specialization or department contains term.
func (s *Service) List(ctx context.Context, term string) ([]model.Doctor, error) {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Doctor, 0, len(snap.Items))
	for _, d := range snap.Items {
		if d.Matches(term) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Doctor, error) {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range snap.Items {
		if snap.Items[i].ID == id {
			return &snap.Items[i], nil
		}
	}
	return nil, apperrors.NotFound("doctor", nil)
}

func (s *Service) Create(ctx context.Context, req model.DoctorRequest) (*model.Doctor, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	doc := fromRequest(req)
	doc.CreatedAt = s.now()

	_, err := s.repo.Mutate(ctx, func(items []model.Doctor) ([]model.Doctor, error) {
		doc.ID = model.NextTimestampID("doctor-", doc.CreatedAt, func(id string) bool {
			for _, d := range items {
				if d.ID == id {
					return true
				}
			}
			return false
		})
		return append(items, doc), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create doctor: %w", err)
	}
	return &doc, nil
}

// Update replaces the editable fields, keeping id and createdAt.
func (s *Service) Update(ctx context.Context, id string, req model.DoctorRequest) (*model.Doctor, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	var updated model.Doctor
	_, err := s.repo.Mutate(ctx, func(items []model.Doctor) ([]model.Doctor, error) {
		next := make([]model.Doctor, len(items))
		copy(next, items)
		for i := range next {
			if next[i].ID != id {
				continue
			}
			doc := fromRequest(req)
			doc.ID = next[i].ID
			doc.CreatedAt = next[i].CreatedAt
			if req.Available == nil {
				doc.Available = next[i].Available
			}
			next[i] = doc
			updated = doc
			return next, nil
		}
		return nil, repository.ErrNoChange
	})
	if errors.Is(err, repository.ErrNoChange) {
		return nil, apperrors.NotFound("doctor", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update doctor: %w", err)
	}
	return &updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.repo.Mutate(ctx, func(items []model.Doctor) ([]model.Doctor, error) {
		next := make([]model.Doctor, 0, len(items))
		for _, d := range items {
			if d.ID != id {
				next = append(next, d)
			}
		}
		if len(next) == len(items) {
			return nil, repository.ErrNoChange
		}
		return next, nil
	})
	if errors.Is(err, repository.ErrNoChange) {
		return apperrors.NotFound("doctor", nil)
	}
	if err != nil {
		return fmt.Errorf("failed to delete doctor: %w", err)
	}
	return nil
}

// Departments is the sorted union of stored doctor departments and the defaults.
func (s *Service) Departments(ctx context.Context) ([]string, error) {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(model.DefaultDepartments)+len(snap.Items))
	out := make([]string, 0, len(seen))
	add := func(dep string) {
		dep = strings.TrimSpace(dep)
		if dep == "" {
			return
		}
		if _, ok := seen[dep]; ok {
			return
		}
		seen[dep] = struct{}{}
		out = append(out, dep)
	}
	for _, d := range snap.Items {
		add(d.Department)
	}
	for _, dep := range model.DefaultDepartments {
		add(dep)
	}
	sort.Strings(out)
	return out, nil
}

func fromRequest(req model.DoctorRequest) model.Doctor {
	doc := model.Doctor{
		Name:            strings.TrimSpace(req.Name),
		Specialization:  req.Specialization,
		Qualification:   req.Qualification,
		Experience:      req.Experience,
		Email:           req.Email,
		Phone:           req.Phone,
		Bio:             req.Bio,
		Image:           req.Image,
		Languages:       req.Languages,
		ConsultationFee: req.ConsultationFee,
		Availability:    req.Availability,
		Achievements:    req.Achievements,
		Status:          req.Status,
		Department:      req.Department,
		Available:       true,
		Rating:          req.Rating,
	}
	if req.Available != nil {
		doc.Available = *req.Available
	}
	if doc.Status == "" {
		doc.Status = model.DoctorStatusActive
	}
	if doc.Availability == nil {
		doc.Availability = map[string]model.DaySchedule{}
	}
	if doc.Languages == nil {
		doc.Languages = []string{}
	}
	if doc.Achievements == nil {
		doc.Achievements = []string{}
	}
	return doc
}
