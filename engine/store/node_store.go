// engine/store/node_store.go
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/foodwars/territory-engine/shared/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NodeStore represents the MongoDB data store for nodes. The node document
// is the serialization boundary for capture/harvest races: every ownership
// or timer mutation goes through a filter that pins the expected prior
// state, so a lost race surfaces as a no-match instead of a double credit.
type NodeStore struct {
	collection *mongo.Collection
}

// NewNodeStore creates a new NodeStore instance.
func NewNodeStore(collection *mongo.Collection) *NodeStore {
	return &NodeStore{collection: collection}
}

// GetNode retrieves a node by ID. Returns (nil, nil) when the node does not exist.
func (ns *NodeStore) GetNode(ctx context.Context, nodeID string) (*models.Node, error) {
	var node models.Node
	err := ns.collection.FindOne(ctx, bson.M{"_id": nodeID}).Decode(&node)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get node %s: %w", nodeID, err)
	}
	return &node, nil
}

// ListNodes retrieves all nodes sorted by name.
func (ns *NodeStore) ListNodes(ctx context.Context) ([]models.Node, error) {
	var nodes []models.Node
	cursor, err := ns.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find nodes: %w", err)
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &nodes); err != nil {
		return nil, fmt.Errorf("failed to decode nodes: %w", err)
	}
	return nodes, nil
}

// ListOwnedNodes retrieves all nodes currently controlled by some team.
func (ns *NodeStore) ListOwnedNodes(ctx context.Context) ([]models.Node, error) {
	var nodes []models.Node
	cursor, err := ns.collection.Find(ctx, bson.M{"controlled_by": bson.M{"$ne": nil}})
	if err != nil {
		return nil, fmt.Errorf("failed to find owned nodes: %w", err)
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &nodes); err != nil {
		return nil, fmt.Errorf("failed to decode owned nodes: %w", err)
	}
	return nodes, nil
}

// CreateNode inserts a new node document.
func (ns *NodeStore) CreateNode(ctx context.Context, node *models.Node) error {
	if _, err := ns.collection.InsertOne(ctx, node); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("node %s already exists", node.ID)
		}
		return fmt.Errorf("failed to create node %s: %w", node.ID, err)
	}
	return nil
}

// UpsertNode creates the node if it does not exist yet. Existing nodes are
// left untouched so a re-applied seed never clobbers live ownership state.
func (ns *NodeStore) UpsertNode(ctx context.Context, node *models.Node) (bool, error) {
	filter := bson.M{"_id": node.ID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"name":            node.Name,
			"type":            node.Type,
			"x":               node.X,
			"y":               node.Y,
			"capture_rate":    node.CaptureRate,
			"last_settled_at": node.LastSettledAt,
			"secret_key":      node.SecretKey,
		},
	}
	res, err := ns.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("failed to upsert node %s: %w", node.ID, err)
	}
	return res.UpsertedID != nil, nil
}

// DeleteNode removes a node. Returns false when no node matched.
func (ns *NodeStore) DeleteNode(ctx context.Context, nodeID string) (bool, error) {
	res, err := ns.collection.DeleteOne(ctx, bson.M{"_id": nodeID})
	if err != nil {
		return false, fmt.Errorf("failed to delete node %s: %w", nodeID, err)
	}
	return res.DeletedCount > 0, nil
}

// CaptureNode transfers ownership of a node to teamID and resets its
// settlement timer, but only if the node's owner is still prevOwner (nil
// for unowned). Returns false if the compare-and-swap lost the race.
func (ns *NodeStore) CaptureNode(ctx context.Context, nodeID, teamID string, prevOwner *string, now time.Time) (bool, error) {
	filter := bson.M{"_id": nodeID}
	if prevOwner == nil {
		filter["controlled_by"] = nil // matches a missing field too
	} else {
		filter["controlled_by"] = *prevOwner
	}
	update := bson.M{
		"$set": bson.M{
			"controlled_by":   teamID,
			"last_settled_at": now,
		},
	}
	res, err := ns.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to capture node %s for team %s: %w", nodeID, teamID, err)
	}
	return res.MatchedCount == 1, nil
}

// SettleNode advances the node's settlement timer to now, but only if the
// node is still owned by teamID and its timer still reads lastSettledAt.
// Returns false if the compare-and-swap lost the race.
func (ns *NodeStore) SettleNode(ctx context.Context, nodeID, teamID string, lastSettledAt, now time.Time) (bool, error) {
	filter := bson.M{
		"_id":             nodeID,
		"controlled_by":   teamID,
		"last_settled_at": lastSettledAt,
	}
	update := bson.M{"$set": bson.M{"last_settled_at": now}}
	res, err := ns.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to settle node %s for team %s: %w", nodeID, teamID, err)
	}
	return res.MatchedCount == 1, nil
}

// ResetAllNodes clears every node's owner and resets its settlement timer.
func (ns *NodeStore) ResetAllNodes(ctx context.Context, now time.Time) error {
	update := bson.M{
		"$unset": bson.M{"controlled_by": ""},
		"$set":   bson.M{"last_settled_at": now},
	}
	if _, err := ns.collection.UpdateMany(ctx, bson.M{}, update); err != nil {
		return fmt.Errorf("failed to reset nodes: %w", err)
	}
	return nil
}
