package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/carelog/patient-records-api/database"
	"github.com/carelog/patient-records-api/models"
	"github.com/carelog/patient-records-api/storage"
)

var _ storage.PatientStore = (*PatientStore)(nil)

// Fields a listing may be sorted by. Anything else falls back to createdAt.
var patientSortFields = map[string]bool{
	"createdAt": true,
	"updatedAt": true,
	"firstName": true,
	"lastName":  true,
	"status":    true,
}

// PatientStore persists patient records in the patients collection.
type PatientStore struct {
	col *mongo.Collection
	now func() time.Time
}

func NewPatientStore(db *mongo.Database) *PatientStore {
	return &PatientStore{
		col: db.Collection(database.CollPatients),
		now: time.Now,
	}
}

// List returns one page of patients with the pagination envelope. The search
// term applies the free-text filter across name, email, and phone.
func (s *PatientStore) List(ctx context.Context, params storage.ListParams) (storage.PatientPage, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = 10
	}
	if params.Limit > 100 {
		params.Limit = 100
	}
	sortBy := params.SortBy
	if !patientSortFields[sortBy] {
		sortBy = "createdAt"
	}
	sortDir := -1
	if params.SortOrder == "asc" {
		sortDir = 1
	}

	ctx, cancel := opCtx(ctx)
	defer cancel()

	filter := searchFilter(params.Search)
	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return storage.PatientPage{}, err
	}

	skip := int64(params.Page-1) * int64(params.Limit)
	cursor, err := s.col.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: sortBy, Value: sortDir}}).
		SetSkip(skip).
		SetLimit(int64(params.Limit)))
	if err != nil {
		return storage.PatientPage{}, err
	}
	defer cursor.Close(ctx)

	patients := []models.Patient{}
	if err := cursor.All(ctx, &patients); err != nil {
		return storage.PatientPage{}, err
	}

	limit := int64(params.Limit)
	return storage.PatientPage{
		Patients:   patients,
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

func (s *PatientStore) Get(ctx context.Context, id string) (models.Patient, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Patient{}, storage.ErrInvalidID
	}

	ctx, cancel := opCtx(ctx)
	defer cancel()

	var patient models.Patient
	err = s.col.FindOne(ctx, bson.M{"_id": objectID}).Decode(&patient)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Patient{}, storage.ErrNotFound
		}
		return models.Patient{}, err
	}
	return patient, nil
}

// Create inserts the patient and returns the generated id.
func (s *PatientStore) Create(ctx context.Context, patient models.Patient) (string, error) {
	now := s.now().UTC()
	patient.ID = primitive.NilObjectID
	patient.CreatedAt = now
	patient.UpdatedAt = now

	ctx, cancel := opCtx(ctx)
	defer cancel()

	result, err := s.col.InsertOne(ctx, patient)
	if err != nil {
		return "", err
	}
	return result.InsertedID.(primitive.ObjectID).Hex(), nil
}

// Update applies the provided fields with $set. The _id and createdAt fields
// are never touched; updatedAt is always refreshed.
func (s *PatientStore) Update(ctx context.Context, id string, patient models.Patient) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return storage.ErrInvalidID
	}

	raw, err := bson.Marshal(patient)
	if err != nil {
		return err
	}
	var set bson.M
	if err := bson.Unmarshal(raw, &set); err != nil {
		return err
	}
	delete(set, "_id")
	delete(set, "createdAt")
	set["updatedAt"] = s.now().UTC()

	ctx, cancel := opCtx(ctx)
	defer cancel()

	result, err := s.col.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PatientStore) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return storage.ErrInvalidID
	}

	ctx, cancel := opCtx(ctx)
	defer cancel()

	result, err := s.col.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Search runs the structured advanced-search filter, capped at limit results.
func (s *PatientStore) Search(ctx context.Context, criteria storage.AdvancedCriteria, limit int) ([]models.Patient, error) {
	filter, err := advancedFilter(criteria, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	ctx, cancel := opCtx(ctx)
	defer cancel()

	cursor, err := s.col.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	patients := []models.Patient{}
	if err := cursor.All(ctx, &patients); err != nil {
		return nil, err
	}
	return patients, nil
}

// All returns the full collection, oldest first. Used by admin backups.
func (s *PatientStore) All(ctx context.Context) ([]models.Patient, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	cursor, err := s.col.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	patients := []models.Patient{}
	if err := cursor.All(ctx, &patients); err != nil {
		return nil, err
	}
	return patients, nil
}

func (s *PatientStore) Count(ctx context.Context) (int64, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	return s.col.CountDocuments(ctx, bson.M{})
}
