// engine/service/stores.go
package service

import (
	"context"
	"time"

	"github.com/foodwars/territory-engine/shared/models"
)

// The service layer talks to storage through these interfaces. The MongoDB
// implementations live in engine/store; tests substitute in-memory fakes.

// NodeStore is the registry of capturable nodes.
type NodeStore interface {
	GetNode(ctx context.Context, nodeID string) (*models.Node, error)
	ListNodes(ctx context.Context) ([]models.Node, error)
	ListOwnedNodes(ctx context.Context) ([]models.Node, error)
	CreateNode(ctx context.Context, node *models.Node) error
	DeleteNode(ctx context.Context, nodeID string) (bool, error)
	// CaptureNode and SettleNode are compare-and-swap mutations: they apply
	// only if the node still carries the expected prior state and report
	// whether they won.
	CaptureNode(ctx context.Context, nodeID, teamID string, prevOwner *string, now time.Time) (bool, error)
	SettleNode(ctx context.Context, nodeID, teamID string, lastSettledAt, now time.Time) (bool, error)
	ResetAllNodes(ctx context.Context, now time.Time) error
}

// TeamStore holds team identity and cumulative score.
type TeamStore interface {
	GetTeamByName(ctx context.Context, name string) (*models.Team, error)
	GetTeamByID(ctx context.Context, teamID string) (*models.Team, error)
	ListTeams(ctx context.Context) ([]models.Team, error)
	IncrementScore(ctx context.Context, teamID string, amount int64) (int64, error)
	ResetScores(ctx context.Context) error
}

// LedgerStore holds per-(team, type) resource stockpiles.
type LedgerStore interface {
	CreditResource(ctx context.Context, teamID string, resourceType models.ResourceType, amount int64) error
	ListByTeam(ctx context.Context, teamID string) ([]models.ResourceLedgerEntry, error)
	ListAll(ctx context.Context) ([]models.ResourceLedgerEntry, error)
	DeleteAll(ctx context.Context) error
}

// AuditStore is the append-only game event log.
type AuditStore interface {
	Append(ctx context.Context, message string, teamID *string, at time.Time) (*models.AuditLogEntry, error)
	List(ctx context.Context, limit int64) ([]models.AuditLogEntry, error)
	DeleteAll(ctx context.Context) error
}

// SettingsStore manages the singleton lifecycle flag.
type SettingsStore interface {
	IsActive(ctx context.Context) (bool, error)
	SetActive(ctx context.Context, active bool) error
	ForceInactive(ctx context.Context) error
}

// TxRunner executes fn atomically: either every store call made with the
// context passed to fn is committed, or none is. The MongoDB client
// satisfies this via session transactions.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
