// engine/store/audit_store.go
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/foodwars/territory-engine/shared/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AuditStore represents the MongoDB data store for the append-only audit log.
type AuditStore struct {
	collection *mongo.Collection
}

// NewAuditStore creates a new AuditStore instance.
func NewAuditStore(collection *mongo.Collection) *AuditStore {
	return &AuditStore{collection: collection}
}

// Append creates a new immutable audit entry and returns it. teamID may be
// nil for system events.
func (as *AuditStore) Append(ctx context.Context, message string, teamID *string, at time.Time) (*models.AuditLogEntry, error) {
	entry := &models.AuditLogEntry{
		ID:        uuid.New().String(),
		Message:   message,
		TeamID:    teamID,
		CreatedAt: at,
	}
	if _, err := as.collection.InsertOne(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append audit entry: %w", err)
	}
	return entry, nil
}

// List retrieves up to limit entries, newest first. limit <= 0 returns all.
func (as *AuditStore) List(ctx context.Context, limit int64) ([]models.AuditLogEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	var entries []models.AuditLogEntry
	cursor, err := as.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}
	return entries, nil
}

// DeleteAll wipes the audit log. Only a full game reset calls this.
func (as *AuditStore) DeleteAll(ctx context.Context) error {
	if _, err := as.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to delete audit entries: %w", err)
	}
	return nil
}
