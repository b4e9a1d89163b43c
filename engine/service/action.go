// engine/service/action.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/foodwars/territory-engine/shared/events"
	"github.com/foodwars/territory-engine/shared/models"
)

// ActionVerb identifies what a resolved scan action did.
type ActionVerb string

const (
	VerbCapture ActionVerb = "CAPTURE"
	VerbHarvest ActionVerb = "HARVEST"
)

// ParseActionVerb validates an optional pinned verb from the request. An
// empty string means "let the resolver decide".
func ParseActionVerb(s string) (ActionVerb, error) {
	switch ActionVerb(s) {
	case "", VerbCapture, VerbHarvest:
		return ActionVerb(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// ActionResult is the outcome of a scan action. Success is false only for
// the harvest cooldown no-op, which is informational rather than an error:
// the request was understood but nothing accrued yet.
type ActionResult struct {
	Action   ActionVerb
	Success  bool
	Message  string
	Amount   *int64 // Credited amount; nil for the cooldown no-op
	Node     *models.Node
	NewScore int64
}

// PerformAction resolves one credential scan: node and team are looked up,
// the secret is checked, and ownership alone decides between CAPTURE and
// HARVEST. All writes of the chosen branch commit in a single transaction;
// events are published only after the commit.
func (gs *GameService) PerformAction(ctx context.Context, nodeID, teamName, secret string, pinned ActionVerb) (*ActionResult, error) {
	active, err := gs.settings.IsActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read game state: %w", err)
	}
	if !active {
		return nil, ErrGameNotActive
	}

	node, err := gs.nodes.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	team, err := gs.teams.GetTeamByName(ctx, teamName)
	if err != nil {
		return nil, err
	}
	if node == nil || team == nil {
		return nil, firstMissing(node, team)
	}

	if node.SecretKey != secret {
		return nil, ErrInvalidSecret
	}

	verb, err := decide(node, team.ID, pinned)
	if err != nil {
		return nil, err
	}

	var result *ActionResult
	switch verb {
	case VerbCapture:
		result, err = gs.executeCapture(ctx, node, team)
	case VerbHarvest:
		result, err = gs.executeHarvest(ctx, node, team)
	}
	if errors.Is(err, errStale) {
		return gs.retryStale(ctx, node.ID, team, pinned)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// retryStale handles a lost compare-and-swap: the node is re-read and the
// decision re-evaluated against current state. A capture that raced another
// team is never blindly replayed (that would credit a second bonus for the
// same physical scan); it fails cleanly and the player must scan again. If
// the node now belongs to the acting team (e.g. its own retried request
// already won) the action degrades to the harvest path, which inside the
// cooldown is a harmless no-op.
func (gs *GameService) retryStale(ctx context.Context, nodeID string, team *models.Team, pinned ActionVerb) (*ActionResult, error) {
	node, err := gs.nodes.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, ErrNodeNotFound
	}

	verb, err := decide(node, team.ID, pinned)
	if err != nil {
		return nil, err
	}
	if verb != VerbHarvest {
		return nil, ErrConflict
	}

	result, err := gs.executeHarvest(ctx, node, team)
	if errors.Is(err, errStale) {
		return nil, ErrConflict
	}
	return result, err
}

// decide maps the (node, team) ownership state to the action to perform.
// The pinned verb, when present, turns a mismatch into a domain conflict
// instead of silently switching branches.
func decide(node *models.Node, teamID string, pinned ActionVerb) (ActionVerb, error) {
	selfOwned := node.OwnedBy(teamID)

	switch pinned {
	case VerbCapture:
		if selfOwned {
			return "", ErrAlreadySecured
		}
		return VerbCapture, nil
	case VerbHarvest:
		if !selfOwned {
			return "", ErrNotOwned
		}
		return VerbHarvest, nil
	default:
		if selfOwned {
			return VerbHarvest, nil
		}
		return VerbCapture, nil
	}
}

func firstMissing(node *models.Node, team *models.Team) error {
	if node == nil {
		return ErrNodeNotFound
	}
	return ErrTeamNotFound
}

// executeCapture transfers ownership and credits the one-time capture bonus.
func (gs *GameService) executeCapture(ctx context.Context, node *models.Node, team *models.Team) (*ActionResult, error) {
	now := gs.now()
	bonus := node.CaptureRate

	var (
		newScore int64
		logEntry *models.AuditLogEntry
	)
	logMessage := fmt.Sprintf("[CAPTURE] Team %s secured node %q! Resources %dg (%s) acquired!",
		team.Name, node.Name, bonus, node.Type)

	err := gs.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		won, err := gs.nodes.CaptureNode(txCtx, node.ID, team.ID, node.ControlledBy, now)
		if err != nil {
			return err
		}
		if !won {
			return errStale
		}
		if newScore, err = gs.teams.IncrementScore(txCtx, team.ID, bonus); err != nil {
			return err
		}
		if err = gs.ledger.CreditResource(txCtx, team.ID, node.Type, bonus); err != nil {
			return err
		}
		if logEntry, err = gs.audit.Append(txCtx, logMessage, &team.ID, now); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errStale) {
			return nil, errStale
		}
		return nil, fmt.Errorf("capture of node %s by team %s failed: %w", node.ID, team.ID, err)
	}

	node.ControlledBy = &team.ID
	node.LastSettledAt = now

	gs.publish(ctx, events.EventMapUpdate, events.OwnershipChange{
		Type:      string(VerbCapture),
		NodeID:    node.ID,
		TeamID:    team.ID,
		TeamColor: team.Color,
	})
	gs.publish(ctx, events.EventScoreUpdate, events.ScoreChange{TeamID: team.ID, NewScore: newScore})
	gs.publishLog(ctx, logEntry, team.Color)

	amount := bonus
	return &ActionResult{
		Action:   VerbCapture,
		Success:  true,
		Message:  fmt.Sprintf("Node %q captured! (+%dg bonus)", node.Name, bonus),
		Amount:   &amount,
		Node:     node,
		NewScore: newScore,
	}, nil
}

// executeHarvest settles whole elapsed minutes since the node's last
// settlement into the owning team. Fractional minutes are discarded, not
// carried forward: the timer jumps to now.
func (gs *GameService) executeHarvest(ctx context.Context, node *models.Node, team *models.Team) (*ActionResult, error) {
	now := gs.now()
	elapsedMinutes := int64(now.Sub(node.LastSettledAt) / time.Minute)
	amount := elapsedMinutes * node.CaptureRate

	if elapsedMinutes < 1 || amount <= 0 {
		return &ActionResult{
			Action:  VerbHarvest,
			Success: false,
			Message: "Nothing to collect yet. Come back in a bit.",
			Node:    node,
		}, nil
	}

	var (
		newScore int64
		logEntry *models.AuditLogEntry
	)
	logMessage := fmt.Sprintf("[HARVEST] Team %s collected %dg (%s) from node %q.",
		team.Name, amount, node.Type, node.Name)

	err := gs.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		won, err := gs.nodes.SettleNode(txCtx, node.ID, team.ID, node.LastSettledAt, now)
		if err != nil {
			return err
		}
		if !won {
			return errStale
		}
		if newScore, err = gs.teams.IncrementScore(txCtx, team.ID, amount); err != nil {
			return err
		}
		if err = gs.ledger.CreditResource(txCtx, team.ID, node.Type, amount); err != nil {
			return err
		}
		if logEntry, err = gs.audit.Append(txCtx, logMessage, &team.ID, now); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errStale) {
			return nil, errStale
		}
		return nil, fmt.Errorf("harvest of node %s by team %s failed: %w", node.ID, team.ID, err)
	}

	node.LastSettledAt = now

	gs.publish(ctx, events.EventScoreUpdate, events.ScoreChange{TeamID: team.ID, NewScore: newScore})
	gs.publishLog(ctx, logEntry, team.Color)

	return &ActionResult{
		Action:   VerbHarvest,
		Success:  true,
		Message:  fmt.Sprintf("Harvested %dg from %q.", amount, node.Name),
		Amount:   &amount,
		Node:     node,
		NewScore: newScore,
	}, nil
}

// publish broadcasts an event on the game channel. Broadcast is best-effort:
// the mutation is already durable, so a delivery failure is only logged.
func (gs *GameService) publish(ctx context.Context, event string, payload interface{}) {
	if err := gs.broadcaster.Publish(ctx, events.GameChannel, event, payload); err != nil {
		log.Printf("WARN: Failed to publish %s event: %v", event, err)
	}
}

func (gs *GameService) publishLog(ctx context.Context, entry *models.AuditLogEntry, teamColor string) {
	gs.publish(ctx, events.EventLogNew, events.LogEntryCreated{
		ID:        entry.ID,
		Message:   entry.Message,
		CreatedAt: entry.CreatedAt,
		TeamColor: teamColor,
	})
}
