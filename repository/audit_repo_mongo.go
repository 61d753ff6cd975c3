package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"wmsinbound/models"
)

// MongoAuditRepo writes the system-wide audit trail to MongoDB.
type MongoAuditRepo struct {
	DB       *mongo.Client
	dbName   string
	collName string
}

func NewMongoAuditRepo(db *mongo.Client, dbName string) *MongoAuditRepo {
	return &MongoAuditRepo{DB: db, dbName: dbName, collName: "audit_log"}
}

func (r *MongoAuditRepo) WriteAudit(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.DB.Database(r.dbName).Collection(r.collName).InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}
