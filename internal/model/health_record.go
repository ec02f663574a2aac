package model

import "time"

type HealthRecordType string

const (
	HealthRecordLabResult     HealthRecordType = "lab_result"
	HealthRecordPrescription  HealthRecordType = "prescription"
	HealthRecordMedicalReport HealthRecordType = "medical_report"
	HealthRecordImaging       HealthRecordType = "imaging"
	HealthRecordVaccination   HealthRecordType = "vaccination"
)

type ResultValue struct {
	Value       string `json:"value"`
	Unit        string `json:"unit,omitempty"`
	NormalRange string `json:"normalRange,omitempty"`
	Status      string `json:"status"`
}

type HealthRecord struct {
	ID          string                 `json:"id"`
	PatientID   string                 `json:"patientId"`
	PatientName string                 `json:"patientName"`
	Type        HealthRecordType       `json:"type"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Date        string                 `json:"date"`
	DoctorName  string                 `json:"doctorName"`
	Department  string                 `json:"department"`
	FileURL     string                 `json:"fileUrl,omitempty"`
	Results     map[string]ResultValue `json:"results,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}

type HealthRecordRequest struct {
	PatientID   string                 `json:"patientId" binding:"required" validate:"required"`
	PatientName string                 `json:"patientName"`
	Type        HealthRecordType       `json:"type" binding:"required,oneof=lab_result prescription medical_report imaging vaccination" validate:"required,oneof=lab_result prescription medical_report imaging vaccination"`
	Title       string                 `json:"title" binding:"required" validate:"required"`
	Description string                 `json:"description"`
	Date        string                 `json:"date" binding:"required,datetime=2006-01-02" validate:"required,datetime=2006-01-02"`
	DoctorName  string                 `json:"doctorName"`
	Department  string                 `json:"department"`
	FileURL     string                 `json:"fileUrl" binding:"omitempty,url" validate:"omitempty,url"`
	Results     map[string]ResultValue `json:"results"`
}
