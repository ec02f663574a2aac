package model

import "time"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type PatientStatus string

const (
	PatientStatusActive   PatientStatus = "active"
	PatientStatusInactive PatientStatus = "inactive"
)

type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}

type InsuranceInfo struct {
	Provider     string `json:"provider"`
	PolicyNumber string `json:"policyNumber"`
}

type Patient struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Email              string           `json:"email"`
	Phone              string           `json:"phone"`
	DateOfBirth        string           `json:"dateOfBirth"`
	Gender             Gender           `json:"gender"`
	Address            string           `json:"address"`
	EmergencyContact   EmergencyContact `json:"emergencyContact"`
	MedicalHistory     string           `json:"medicalHistory"`
	Allergies          []string         `json:"allergies"`
	CurrentMedications []string         `json:"currentMedications"`
	InsuranceInfo      *InsuranceInfo   `json:"insuranceInfo,omitempty"`
	RegistrationDate   time.Time        `json:"registrationDate"`
	LastVisit          *time.Time       `json:"lastVisit,omitempty"`
	Status             PatientStatus    `json:"status"`
}

func (p Patient) Matches(term string) bool {
	return containsFold(term, p.Name, p.Email, p.Phone)
}

type PatientRequest struct {
	Name               string           `json:"name" binding:"required" validate:"required"`
	Email              string           `json:"email" binding:"required,email" validate:"required,email"`
	Phone              string           `json:"phone" binding:"required" validate:"required"`
	DateOfBirth        string           `json:"dateOfBirth" binding:"omitempty,datetime=2006-01-02" validate:"omitempty,datetime=2006-01-02"`
	Gender             Gender           `json:"gender" binding:"omitempty,oneof=male female other" validate:"omitempty,oneof=male female other"`
	Address            string           `json:"address"`
	EmergencyContact   EmergencyContact `json:"emergencyContact"`
	MedicalHistory     string           `json:"medicalHistory"`
	Allergies          []string         `json:"allergies"`
	CurrentMedications []string         `json:"currentMedications"`
	InsuranceInfo      InsuranceInfo    `json:"insuranceInfo"`
}
