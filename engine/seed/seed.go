// engine/seed/seed.go
package seed

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/foodwars/territory-engine/engine/store"
	"github.com/foodwars/territory-engine/shared/models"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a seed file: the teams competing and the
// initial node placement. Node IDs and secrets may be pinned so credentials
// can be printed before the database exists.
type File struct {
	Teams []TeamSeed `yaml:"teams"`
	Nodes []NodeSeed `yaml:"nodes"`
}

type TeamSeed struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

type NodeSeed struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Type        string  `yaml:"type"`
	X           float64 `yaml:"x"`
	Y           float64 `yaml:"y"`
	CaptureRate int64   `yaml:"captureRate"`
	Secret      string  `yaml:"secret"`
}

// Load parses and validates a seed file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes seed YAML and validates it.
func Parse(data []byte) (*File, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i, team := range file.Teams {
		if team.Name == "" {
			return nil, fmt.Errorf("seed team #%d is missing a name", i+1)
		}
		if team.Color == "" {
			return nil, fmt.Errorf("seed team %q is missing a color", team.Name)
		}
	}
	for i, node := range file.Nodes {
		if node.Name == "" {
			return nil, fmt.Errorf("seed node #%d is missing a name", i+1)
		}
		if !models.ValidResourceType(models.ResourceType(node.Type)) {
			return nil, fmt.Errorf("seed node %q has unknown resource type %q", node.Name, node.Type)
		}
		if node.CaptureRate <= 0 {
			return nil, fmt.Errorf("seed node %q must have a positive capture rate", node.Name)
		}
	}
	return &file, nil
}

// Apply upserts the seed into the database. Teams are keyed by name and
// nodes by ID; existing documents keep their live state, so re-applying a
// seed during play is safe.
func Apply(ctx context.Context, file *File, teams *store.TeamStore, nodes *store.NodeStore) error {
	for _, team := range file.Teams {
		if err := teams.EnsureTeamExists(ctx, team.Name, team.Color); err != nil {
			return err
		}
	}

	now := time.Now()
	for _, seedNode := range file.Nodes {
		node := &models.Node{
			ID:            seedNode.ID,
			Name:          seedNode.Name,
			Type:          models.ResourceType(seedNode.Type),
			X:             seedNode.X,
			Y:             seedNode.Y,
			CaptureRate:   seedNode.CaptureRate,
			LastSettledAt: now,
			SecretKey:     seedNode.Secret,
		}
		if node.ID == "" {
			node.ID = uuid.New().String()
		}
		if node.SecretKey == "" {
			node.SecretKey = uuid.New().String()
		}

		created, err := nodes.UpsertNode(ctx, node)
		if err != nil {
			return err
		}
		if created {
			log.Printf("INFO: Seeded node %q (%s).", node.Name, node.ID)
		}
	}
	return nil
}
