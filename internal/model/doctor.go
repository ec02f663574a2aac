package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type DoctorStatus string

const (
	DoctorStatusActive   DoctorStatus = "active"
	DoctorStatusInactive DoctorStatus = "inactive"
)

type DaySchedule struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	IsAvailable bool   `json:"isAvailable"`
}

type Doctor struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Specialization  string                 `json:"specialization"`
	Qualification   string                 `json:"qualification"`
	Experience      int                    `json:"experience"`
	Email           string                 `json:"email"`
	Phone           string                 `json:"phone"`
	Bio             string                 `json:"bio"`
	Image           string                 `json:"image,omitempty"`
	Languages       []string               `json:"languages"`
	ConsultationFee decimal.Decimal        `json:"consultationFee"`
	Availability    map[string]DaySchedule `json:"availability"`
	Achievements    []string               `json:"achievements"`
	Status          DoctorStatus           `json:"status"`
	Department      string                 `json:"department,omitempty"`
	Available       bool                   `json:"available"`
	Rating          float64                `json:"rating"`
	CreatedAt       time.Time              `json:"createdAt"`
}

func (d Doctor) Matches(term string) bool {
	return containsFold(term, d.Name, d.Specialization, d.Department)
}

type DoctorRequest struct {
	Name            string                 `json:"name" binding:"required" validate:"required"`
	Specialization  string                 `json:"specialization" binding:"required" validate:"required"`
	Qualification   string                 `json:"qualification"`
	Experience      int                    `json:"experience" binding:"min=0" validate:"min=0"`
	Email           string                 `json:"email" binding:"omitempty,email" validate:"omitempty,email"`
	Phone           string                 `json:"phone"`
	Bio             string                 `json:"bio"`
	Image           string                 `json:"image"`
	Languages       []string               `json:"languages"`
	ConsultationFee decimal.Decimal        `json:"consultationFee"`
	Availability    map[string]DaySchedule `json:"availability"`
	Achievements    []string               `json:"achievements"`
	Status          DoctorStatus           `json:"status" binding:"omitempty,oneof=active inactive" validate:"omitempty,oneof=active inactive"`
	Department      string                 `json:"department"`
	Available       *bool                  `json:"available"`
	Rating          float64                `json:"rating" binding:"min=0,max=5" validate:"min=0,max=5"`
}

// DefaultDepartments is merged with the departments found on stored doctors.
var DefaultDepartments = []string{
	"Cardiology", "Neurology", "Pediatrics", "Orthopedics", "Dermatology",
	"Ophthalmology", "Oncology", "Gastroenterology", "Pulmonology", "Nephrology",
	"Endocrinology", "Psychiatry", "Emergency Medicine", "Radiology",
	"Anesthesiology", "Pathology", "Surgery", "Internal Medicine",
	"Obstetrics & Gynecology", "Urology",
}
