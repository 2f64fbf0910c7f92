package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/carelog/patient-records-api/database"
	"github.com/carelog/patient-records-api/models"
	"github.com/carelog/patient-records-api/storage"
)

var _ storage.DocumentStore = (*DocumentStore)(nil)

// DocumentStore persists uploaded-file metadata.
type DocumentStore struct {
	col *mongo.Collection
}

func NewDocumentStore(db *mongo.Database) *DocumentStore {
	return &DocumentStore{col: db.Collection(database.CollDocuments)}
}

func (s *DocumentStore) Insert(ctx context.Context, doc models.PatientDocument) (models.PatientDocument, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	result, err := s.col.InsertOne(ctx, doc)
	if err != nil {
		return models.PatientDocument{}, err
	}
	doc.ID = result.InsertedID.(primitive.ObjectID)
	return doc, nil
}

func (s *DocumentStore) ListByPatient(ctx context.Context, patientID string) ([]models.PatientDocument, error) {
	objectID, err := primitive.ObjectIDFromHex(patientID)
	if err != nil {
		return nil, storage.ErrInvalidID
	}

	ctx, cancel := opCtx(ctx)
	defer cancel()

	cursor, err := s.col.Find(ctx, bson.M{"patientId": objectID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := []models.PatientDocument{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *DocumentStore) Count(ctx context.Context) (int64, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	return s.col.CountDocuments(ctx, bson.M{})
}
