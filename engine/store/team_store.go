// engine/store/team_store.go
package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/foodwars/territory-engine/shared/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TeamStore represents the MongoDB data store for teams.
type TeamStore struct {
	collection *mongo.Collection
}

// NewTeamStore creates a new TeamStore instance.
func NewTeamStore(collection *mongo.Collection) *TeamStore {
	return &TeamStore{collection: collection}
}

// EnsureIndexes creates the unique index on team name.
func (ts *TeamStore) EnsureIndexes(ctx context.Context) error {
	_, err := ts.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create team name index: %w", err)
	}
	return nil
}

// EnsureTeamExists initializes a team document if it doesn't exist yet.
// Color is refreshed on every run so seed edits take effect; score is only
// set on insert.
func (ts *TeamStore) EnsureTeamExists(ctx context.Context, name, color string) error {
	filter := bson.M{"name": name}
	update := bson.M{
		"$set": bson.M{"color": color},
		"$setOnInsert": bson.M{
			"_id":        uuid.New().String(),
			"score":      int64(0),
			"created_at": time.Now(),
		},
	}
	opts := options.Update().SetUpsert(true)

	result, err := ts.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert team %s: %w", name, err)
	}
	if result.UpsertedID != nil {
		log.Printf("INFO: Initialized team '%s' in database.", name)
	}
	return nil
}

// GetTeamByName retrieves a team by its unique display name.
// Returns (nil, nil) when the team does not exist.
func (ts *TeamStore) GetTeamByName(ctx context.Context, name string) (*models.Team, error) {
	var team models.Team
	err := ts.collection.FindOne(ctx, bson.M{"name": name}).Decode(&team)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get team %s: %w", name, err)
	}
	return &team, nil
}

// GetTeamByID retrieves a team by ID. Returns (nil, nil) when absent.
func (ts *TeamStore) GetTeamByID(ctx context.Context, teamID string) (*models.Team, error) {
	var team models.Team
	err := ts.collection.FindOne(ctx, bson.M{"_id": teamID}).Decode(&team)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get team %s: %w", teamID, err)
	}
	return &team, nil
}

// ListTeams retrieves all team documents sorted by descending score.
func (ts *TeamStore) ListTeams(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	cursor, err := ts.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "score", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find all teams: %w", err)
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &teams); err != nil {
		return nil, fmt.Errorf("failed to decode all teams: %w", err)
	}
	return teams, nil
}

// IncrementScore atomically adds amount to a team's score and returns the
// new score.
func (ts *TeamStore) IncrementScore(ctx context.Context, teamID string, amount int64) (int64, error) {
	var updated models.Team
	filter := bson.M{"_id": teamID}
	update := bson.M{"$inc": bson.M{"score": amount}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	err := ts.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, fmt.Errorf("team %s not found for score increment", teamID)
		}
		return 0, fmt.Errorf("failed to increment score for team %s: %w", teamID, err)
	}
	return updated.Score, nil
}

// ResetScores zeroes every team's score.
func (ts *TeamStore) ResetScores(ctx context.Context) error {
	if _, err := ts.collection.UpdateMany(ctx, bson.M{}, bson.M{"$set": bson.M{"score": int64(0)}}); err != nil {
		return fmt.Errorf("failed to reset team scores: %w", err)
	}
	return nil
}
