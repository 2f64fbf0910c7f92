// Package storage defines the persistence contracts the handlers depend on,
// decoupled from the Mongo implementations so tests can supply doubles.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/carelog/patient-records-api/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrInvalidID indicates an identifier that cannot be parsed.
var ErrInvalidID = errors.New("invalid id")

// ErrDuplicate indicates a uniqueness conflict.
var ErrDuplicate = errors.New("record already exists")

// ErrInvalidDateFormat indicates a date criterion that could not be parsed.
var ErrInvalidDateFormat = errors.New("invalid date format")

// ListParams control pagination, free-text search, and ordering of patient
// listings.
type ListParams struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string
}

// PatientPage is one page of patients plus the pagination envelope.
type PatientPage struct {
	Patients   []models.Patient `json:"patients"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int64            `json:"totalPages"`
}

// AdvancedCriteria is a structured search query. Absent fields impose no
// constraint; provided fields combine with implicit AND.
type AdvancedCriteria struct {
	Name           string   `json:"name,omitempty"`
	Email          string   `json:"email,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	Status         string   `json:"status,omitempty"`
	Gender         string   `json:"gender,omitempty"`
	AgeMin         *int     `json:"ageMin,omitempty"`
	AgeMax         *int     `json:"ageMax,omitempty"`
	MedicalHistory []string `json:"medicalHistory,omitempty"`
	CreatedFrom    string   `json:"createdFrom,omitempty"`
	CreatedTo      string   `json:"createdTo,omitempty"`
}

// NameValue is one row of an analytics report.
type NameValue struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// DashboardStats is the flat count record backing the dashboard.
type DashboardStats struct {
	TotalPatients    int64 `json:"totalPatients"`
	NewPatients      int64 `json:"newPatients"`
	ActivePatients   int64 `json:"activePatients"`
	CriticalPatients int64 `json:"criticalPatients"`
}

// UserStore persists identities.
type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	Count(ctx context.Context) (int64, error)
}

// PatientStore persists patient records.
type PatientStore interface {
	List(ctx context.Context, params ListParams) (PatientPage, error)
	Get(ctx context.Context, id string) (models.Patient, error)
	Create(ctx context.Context, patient models.Patient) (string, error)
	Update(ctx context.Context, id string, patient models.Patient) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, criteria AdvancedCriteria, limit int) ([]models.Patient, error)
	All(ctx context.Context) ([]models.Patient, error)
	Count(ctx context.Context) (int64, error)
}

// AnalyticsStore runs read-only reports over the patient collection.
type AnalyticsStore interface {
	Dashboard(ctx context.Context) (DashboardStats, error)
	GenderDistribution(ctx context.Context) ([]NameValue, error)
	AgeDistribution(ctx context.Context) ([]NameValue, error)
	DiseaseDistribution(ctx context.Context) ([]NameValue, error)
	PatientsOverTime(ctx context.Context) ([]NameValue, error)
}

// AuditStore persists append-only audit entries.
type AuditStore interface {
	Insert(ctx context.Context, entry models.AuditLog) error
	List(ctx context.Context, page, limit int) ([]models.AuditLog, int64, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// DocumentStore persists uploaded-file metadata.
type DocumentStore interface {
	Insert(ctx context.Context, doc models.PatientDocument) (models.PatientDocument, error)
	ListByPatient(ctx context.Context, patientID string) ([]models.PatientDocument, error)
	Count(ctx context.Context) (int64, error)
}

// NotificationStore persists per-user notifications.
type NotificationStore interface {
	Insert(ctx context.Context, n models.Notification) error
	ListByUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
}
