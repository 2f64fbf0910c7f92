package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names used across the service.
const (
	CollUsers         = "users"
	CollPatients      = "patients"
	CollAuditLogs     = "audit_logs"
	CollDocuments     = "patient_documents"
	CollNotifications = "notifications"
)

// Connect opens a Mongo client, verifies connectivity, and bootstraps the
// indexes the query paths rely on.
func Connect(ctx context.Context, uri, databaseName string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(databaseName)
	if err := ensureIndexes(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

// Health adapts the Mongo client ping for the liveness probe.
type Health struct {
	db *mongo.Database
}

func NewHealth(db *mongo.Database) *Health {
	return &Health{db: db}
}

func (h *Health) Ping(ctx context.Context) error {
	return h.db.Client().Ping(ctx, nil)
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	users := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := db.Collection(CollUsers).Indexes().CreateMany(ctx, users); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	patients := []mongo.IndexModel{
		{Keys: bson.D{{Key: "firstName", Value: 1}}},
		{Keys: bson.D{{Key: "lastName", Value: 1}}},
		{Keys: bson.D{{Key: "email", Value: 1}}},
		{Keys: bson.D{{Key: "phone", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	if _, err := db.Collection(CollPatients).Indexes().CreateMany(ctx, patients); err != nil {
		return fmt.Errorf("create patient indexes: %w", err)
	}

	misc := map[string][]mongo.IndexModel{
		CollAuditLogs:     {{Keys: bson.D{{Key: "createdAt", Value: -1}}}},
		CollDocuments:     {{Keys: bson.D{{Key: "patientId", Value: 1}}}},
		CollNotifications: {{Keys: bson.D{{Key: "userId", Value: 1}}}},
	}
	for name, models := range misc {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}
