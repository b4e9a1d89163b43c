// engine/store/settings_store.go
package store

import (
	"context"
	"fmt"

	"github.com/foodwars/territory-engine/shared/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SettingsStore manages the singleton game settings document. The document
// is created lazily; absence reads as "inactive". Keeping the flag as a
// durable row (rather than in-memory state) means every engine instance
// observes the same lifecycle state.
type SettingsStore struct {
	collection *mongo.Collection
}

// NewSettingsStore creates a new SettingsStore instance.
func NewSettingsStore(collection *mongo.Collection) *SettingsStore {
	return &SettingsStore{collection: collection}
}

// IsActive reports whether the game is currently active.
func (ss *SettingsStore) IsActive(ctx context.Context) (bool, error) {
	var settings models.GameSettings
	err := ss.collection.FindOne(ctx, bson.M{"_id": models.GameSettingsID}).Decode(&settings)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, fmt.Errorf("failed to read game settings: %w", err)
	}
	return settings.Active, nil
}

// SetActive flips the active flag, creating the singleton if needed.
func (ss *SettingsStore) SetActive(ctx context.Context, active bool) error {
	filter := bson.M{"_id": models.GameSettingsID}
	update := bson.M{"$set": bson.M{"active": active}}
	opts := options.Update().SetUpsert(true)

	if _, err := ss.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to set game active=%t: %w", active, err)
	}
	return nil
}

// ForceInactive replaces the singleton with a fresh inactive document.
func (ss *SettingsStore) ForceInactive(ctx context.Context) error {
	replacement := models.GameSettings{ID: models.GameSettingsID, Active: false}
	opts := options.Replace().SetUpsert(true)

	if _, err := ss.collection.ReplaceOne(ctx, bson.M{"_id": models.GameSettingsID}, replacement, opts); err != nil {
		return fmt.Errorf("failed to force game settings inactive: %w", err)
	}
	return nil
}
