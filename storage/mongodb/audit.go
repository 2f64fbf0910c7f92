package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/carelog/patient-records-api/database"
	"github.com/carelog/patient-records-api/models"
	"github.com/carelog/patient-records-api/storage"
)

var _ storage.AuditStore = (*AuditStore)(nil)

// AuditStore persists append-only audit entries.
type AuditStore struct {
	col *mongo.Collection
}

func NewAuditStore(db *mongo.Database) *AuditStore {
	return &AuditStore{col: db.Collection(database.CollAuditLogs)}
}

func (s *AuditStore) Insert(ctx context.Context, entry models.AuditLog) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	_, err := s.col.InsertOne(ctx, entry)
	return err
}

// List returns a page of entries, newest first, plus the total count.
func (s *AuditStore) List(ctx context.Context, page, limit int) ([]models.AuditLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	ctx, cancel := opCtx(ctx)
	defer cancel()

	total, err := s.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	cursor, err := s.col.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(page-1)*int64(limit)).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	entries := []models.AuditLog{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// PurgeOlderThan deletes entries created before the cutoff and reports how
// many were removed. This is the only path that ever deletes audit data.
func (s *AuditStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	result, err := s.col.DeleteMany(ctx, bson.M{"createdAt": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (s *AuditStore) Count(ctx context.Context) (int64, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	return s.col.CountDocuments(ctx, bson.M{})
}
