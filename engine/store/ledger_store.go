// engine/store/ledger_store.go
package store

import (
	"context"
	"fmt"

	"github.com/foodwars/territory-engine/shared/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LedgerStore represents the MongoDB data store for per-(team, type)
// resource stockpiles.
type LedgerStore struct {
	collection *mongo.Collection
}

// NewLedgerStore creates a new LedgerStore instance.
func NewLedgerStore(collection *mongo.Collection) *LedgerStore {
	return &LedgerStore{collection: collection}
}

// EnsureIndexes creates the unique compound index guaranteeing at most one
// entry per (team, type) pair.
func (ls *LedgerStore) EnsureIndexes(ctx context.Context) error {
	_, err := ls.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "team_id", Value: 1}, {Key: "type", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create ledger index: %w", err)
	}
	return nil
}

// CreditResource adds amount to the (team, type) stockpile, creating the
// entry in the same operation if it does not exist yet. The upsert keeps
// create-then-add a single atomic write.
func (ls *LedgerStore) CreditResource(ctx context.Context, teamID string, resourceType models.ResourceType, amount int64) error {
	filter := bson.M{"team_id": teamID, "type": resourceType}
	update := bson.M{"$inc": bson.M{"amount": amount}}
	opts := options.Update().SetUpsert(true)

	if _, err := ls.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to credit %d %s to team %s: %w", amount, resourceType, teamID, err)
	}
	return nil
}

// ListByTeam retrieves all ledger entries for one team.
func (ls *LedgerStore) ListByTeam(ctx context.Context, teamID string) ([]models.ResourceLedgerEntry, error) {
	var entries []models.ResourceLedgerEntry
	cursor, err := ls.collection.Find(ctx, bson.M{"team_id": teamID})
	if err != nil {
		return nil, fmt.Errorf("failed to find ledger entries for team %s: %w", teamID, err)
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode ledger entries for team %s: %w", teamID, err)
	}
	return entries, nil
}

// ListAll retrieves every ledger entry.
func (ls *LedgerStore) ListAll(ctx context.Context) ([]models.ResourceLedgerEntry, error) {
	var entries []models.ResourceLedgerEntry
	cursor, err := ls.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to find ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode ledger entries: %w", err)
	}
	return entries, nil
}

// DeleteAll removes every ledger entry.
func (ls *LedgerStore) DeleteAll(ctx context.Context) error {
	if _, err := ls.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to delete ledger entries: %w", err)
	}
	return nil
}
