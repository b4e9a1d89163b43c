// engine/service/game_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/foodwars/territory-engine/shared/events"
	"github.com/foodwars/territory-engine/shared/models"
	"github.com/google/uuid"
)

// GameService encapsulates the business logic of the territory engine:
// action resolution (capture/harvest), the global accrual tick, the game
// lifecycle control plane and the admin/query surface.
type GameService struct {
	nodes       NodeStore
	teams       TeamStore
	ledger      LedgerStore
	audit       AuditStore
	settings    SettingsStore
	tx          TxRunner
	broadcaster events.Broadcaster
	now         func() time.Time
}

// NewGameService creates a new GameService instance.
func NewGameService(
	nodes NodeStore,
	teams TeamStore,
	ledger LedgerStore,
	audit AuditStore,
	settings SettingsStore,
	tx TxRunner,
	broadcaster events.Broadcaster,
) *GameService {
	return &GameService{
		nodes:       nodes,
		teams:       teams,
		ledger:      ledger,
		audit:       audit,
		settings:    settings,
		tx:          tx,
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

// SetClock overrides the service clock. Intended for tests.
func (gs *GameService) SetClock(now func() time.Time) {
	gs.now = now
}

// --- Query / admin surface ---

// ListNodes returns all nodes.
func (gs *GameService) ListNodes(ctx context.Context) ([]models.Node, error) {
	return gs.nodes.ListNodes(ctx)
}

// ListTeams returns all teams sorted by score.
func (gs *GameService) ListTeams(ctx context.Context) ([]models.Team, error) {
	return gs.teams.ListTeams(ctx)
}

// ListLogs returns up to limit audit entries, newest first.
func (gs *GameService) ListLogs(ctx context.Context, limit int64) ([]models.AuditLogEntry, error) {
	return gs.audit.List(ctx, limit)
}

// Snapshot is the full game state used by clients to (re)build their local
// view, e.g. after receiving a game-reset event.
type Snapshot struct {
	Active bool                         `json:"active"`
	Nodes  []models.Node                `json:"nodes"`
	Teams  []models.Team                `json:"teams"`
	Ledger []models.ResourceLedgerEntry `json:"ledger"`
	Logs   []models.AuditLogEntry       `json:"logs"`
}

// GetSnapshot assembles the full game state.
func (gs *GameService) GetSnapshot(ctx context.Context) (*Snapshot, error) {
	active, err := gs.settings.IsActive(ctx)
	if err != nil {
		return nil, err
	}
	nodes, err := gs.nodes.ListNodes(ctx)
	if err != nil {
		return nil, err
	}
	teams, err := gs.teams.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	ledger, err := gs.ledger.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	logs, err := gs.audit.List(ctx, 50)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Active: active, Nodes: nodes, Teams: teams, Ledger: ledger, Logs: logs}, nil
}

// CreateNode places a new node. Missing ID and secret are generated; the ID
// is returned to the admin so the credential can be printed.
func (gs *GameService) CreateNode(ctx context.Context, node *models.Node) (*models.Node, error) {
	if node.Name == "" {
		return nil, fmt.Errorf("%w: node name is required", ErrInvalidAction)
	}
	if !models.ValidResourceType(node.Type) {
		return nil, fmt.Errorf("%w: unknown resource type %q", ErrInvalidAction, node.Type)
	}
	if node.CaptureRate <= 0 {
		node.CaptureRate = 10
	}
	if node.ID == "" {
		node.ID = uuid.New().String()
	}
	if node.SecretKey == "" {
		node.SecretKey = uuid.New().String()
	}
	node.ControlledBy = nil
	node.LastSettledAt = gs.now()

	if err := gs.nodes.CreateNode(ctx, node); err != nil {
		return nil, err
	}
	return node, nil
}

// DeleteNode removes a node by ID.
func (gs *GameService) DeleteNode(ctx context.Context, nodeID string) error {
	deleted, err := gs.nodes.DeleteNode(ctx, nodeID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNodeNotFound
	}
	return nil
}
