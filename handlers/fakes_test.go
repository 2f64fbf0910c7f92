package handlers

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/carelog/patient-records-api/models"
	"github.com/carelog/patient-records-api/storage"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]models.User)}
}

func (f *fakeUserStore) Create(_ context.Context, user models.User) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[user.Email]; exists {
		return models.User{}, storage.ErrDuplicate
	}
	user.ID = primitive.NewObjectID()
	f.users[user.Email] = user
	return user, nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[email]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserStore) List(_ context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, 0, len(f.users))
	for _, user := range f.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (f *fakeUserStore) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, user := range f.users {
		if user.ID.Hex() == id {
			user.LastLoginAt = &at
			f.users[email] = user
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeUserStore) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), nil
}

type fakePatientStore struct {
	mu       sync.Mutex
	patients map[string]models.Patient
}

func newFakePatientStore() *fakePatientStore {
	return &fakePatientStore{patients: make(map[string]models.Patient)}
}

func (f *fakePatientStore) List(_ context.Context, params storage.ListParams) (storage.PatientPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	all := f.sortedLocked()
	total := int64(len(all))
	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}

	return storage.PatientPage{
		Patients:   all[start:end],
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
	}, nil
}

func (f *fakePatientStore) Get(_ context.Context, id string) (models.Patient, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return models.Patient{}, storage.ErrInvalidID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	patient, ok := f.patients[id]
	if !ok {
		return models.Patient{}, storage.ErrNotFound
	}
	return patient, nil
}

func (f *fakePatientStore) Create(_ context.Context, patient models.Patient) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	patient.ID = primitive.NewObjectID()
	patient.CreatedAt = time.Now().UTC()
	patient.UpdatedAt = patient.CreatedAt
	f.patients[patient.ID.Hex()] = patient
	return patient.ID.Hex(), nil
}

func (f *fakePatientStore) Update(_ context.Context, id string, patient models.Patient) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return storage.ErrInvalidID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.patients[id]
	if !ok {
		return storage.ErrNotFound
	}
	patient.ID = oid
	patient.CreatedAt = existing.CreatedAt
	patient.UpdatedAt = time.Now().UTC()
	f.patients[id] = patient
	return nil
}

func (f *fakePatientStore) Delete(_ context.Context, id string) error {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return storage.ErrInvalidID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.patients[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.patients, id)
	return nil
}

func (f *fakePatientStore) Search(_ context.Context, criteria storage.AdvancedCriteria, limit int) ([]models.Patient, error) {
	for _, bound := range []string{criteria.CreatedFrom, criteria.CreatedTo} {
		if bound == "" {
			continue
		}
		if _, err := models.ParseDate(bound); err != nil {
			return nil, storage.ErrInvalidDateFormat
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Patient
	for _, patient := range f.sortedLocked() {
		if criteria.Status != "" && patient.Status != criteria.Status {
			continue
		}
		if criteria.Gender != "" && patient.Gender != criteria.Gender {
			continue
		}
		out = append(out, patient)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakePatientStore) All(_ context.Context) ([]models.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedLocked(), nil
}

func (f *fakePatientStore) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.patients)), nil
}

func (f *fakePatientStore) sortedLocked() []models.Patient {
	out := make([]models.Patient, 0, len(f.patients))
	for _, patient := range f.patients {
		out = append(out, patient)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (f *fakeAuditStore) Insert(_ context.Context, entry models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditStore) List(_ context.Context, page, limit int) ([]models.AuditLog, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AuditLog(nil), f.entries...), int64(len(f.entries)), nil
}

func (f *fakeAuditStore) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.AuditLog
	var purged int64
	for _, entry := range f.entries {
		if entry.CreatedAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, entry)
	}
	f.entries = kept
	return purged, nil
}

func (f *fakeAuditStore) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.entries)), nil
}

func (f *fakeAuditStore) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, entry := range f.entries {
		out = append(out, entry.Action)
	}
	return out
}

type fakeDocumentStore struct {
	mu   sync.Mutex
	docs []models.PatientDocument
}

func (f *fakeDocumentStore) Insert(_ context.Context, doc models.PatientDocument) (models.PatientDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc.ID = primitive.NewObjectID()
	f.docs = append(f.docs, doc)
	return doc, nil
}

func (f *fakeDocumentStore) ListByPatient(_ context.Context, patientID string) ([]models.PatientDocument, error) {
	oid, err := primitive.ObjectIDFromHex(patientID)
	if err != nil {
		return nil, storage.ErrInvalidID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PatientDocument
	for _, doc := range f.docs {
		if doc.PatientID == oid {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (f *fakeDocumentStore) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.docs)), nil
}

type fakeNotificationStore struct {
	mu            sync.Mutex
	notifications map[string]models.Notification
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{notifications: make(map[string]models.Notification)}
}

func (f *fakeNotificationStore) Insert(_ context.Context, n models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	f.notifications[n.ID.Hex()] = n
	return nil
}

func (f *fakeNotificationStore) ListByUser(_ context.Context, userID string) ([]models.Notification, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, storage.ErrInvalidID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for _, n := range f.notifications {
		if n.UserID == oid {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (f *fakeNotificationStore) MarkRead(_ context.Context, id string) error {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return storage.ErrInvalidID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[id]
	if !ok {
		return storage.ErrNotFound
	}
	n.IsRead = true
	f.notifications[id] = n
	return nil
}

type fakeAnalyticsStore struct {
	stats storage.DashboardStats
	rows  []storage.NameValue
	err   error
}

func (f *fakeAnalyticsStore) Dashboard(context.Context) (storage.DashboardStats, error) {
	return f.stats, f.err
}

func (f *fakeAnalyticsStore) GenderDistribution(context.Context) ([]storage.NameValue, error) {
	return f.rows, f.err
}

func (f *fakeAnalyticsStore) AgeDistribution(context.Context) ([]storage.NameValue, error) {
	return f.rows, f.err
}

func (f *fakeAnalyticsStore) DiseaseDistribution(context.Context) ([]storage.NameValue, error) {
	return f.rows, f.err
}

func (f *fakeAnalyticsStore) PatientsOverTime(context.Context) ([]storage.NameValue, error) {
	return f.rows, f.err
}

// countingAnalytics derives dashboard counts from a fake patient store so
// mutations made through the handlers show up in the report.
type countingAnalytics struct {
	patients *fakePatientStore
}

func (a *countingAnalytics) Dashboard(ctx context.Context) (storage.DashboardStats, error) {
	all, err := a.patients.All(ctx)
	if err != nil {
		return storage.DashboardStats{}, err
	}
	stats := storage.DashboardStats{TotalPatients: int64(len(all))}
	for _, patient := range all {
		switch patient.Status {
		case models.StatusActive:
			stats.ActivePatients++
		case models.StatusCritical:
			stats.CriticalPatients++
		}
	}
	return stats, nil
}

func (a *countingAnalytics) GenderDistribution(context.Context) ([]storage.NameValue, error) {
	return nil, nil
}

func (a *countingAnalytics) AgeDistribution(context.Context) ([]storage.NameValue, error) {
	return nil, nil
}

func (a *countingAnalytics) DiseaseDistribution(context.Context) ([]storage.NameValue, error) {
	return nil, nil
}

func (a *countingAnalytics) PatientsOverTime(context.Context) ([]storage.NameValue, error) {
	return nil, nil
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error {
	return f.err
}
