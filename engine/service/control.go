// engine/service/control.go
package service

import (
	"context"
	"fmt"

	"github.com/foodwars/territory-engine/shared/events"
)

// ControlAction names a lifecycle operation.
type ControlAction string

const (
	ControlStart  ControlAction = "START"
	ControlFinish ControlAction = "FINISH"
	ControlReset  ControlAction = "RESET"
)

// Control performs a lifecycle operation and returns a human-readable
// confirmation message. START and FINISH are idempotent: repeating them
// still succeeds and logs.
func (gs *GameService) Control(ctx context.Context, action ControlAction) (string, error) {
	switch action {
	case ControlStart:
		return gs.startGame(ctx)
	case ControlFinish:
		return gs.finishGame(ctx)
	case ControlReset:
		return gs.resetGame(ctx)
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
}

func (gs *GameService) startGame(ctx context.Context) (string, error) {
	if err := gs.settings.SetActive(ctx, true); err != nil {
		return "", err
	}

	entry, err := gs.audit.Append(ctx, "[SYSTEM] Game started! Begin operations!", nil, gs.now())
	if err != nil {
		return "", err
	}
	gs.publishLog(ctx, entry, events.SystemColor)

	return "Game Started", nil
}

func (gs *GameService) finishGame(ctx context.Context) (string, error) {
	if err := gs.settings.SetActive(ctx, false); err != nil {
		return "", err
	}

	entry, err := gs.audit.Append(ctx, "[SYSTEM] Game finished! Well played, everyone.", nil, gs.now())
	if err != nil {
		return "", err
	}
	gs.publishLog(ctx, entry, events.SystemColor)

	return "Game Finished", nil
}

// resetGame wipes all mutable game state in one transaction: audit log and
// ledger entries deleted, scores zeroed, node owners cleared with timers
// reset to now, settings forced inactive. The game-reset event is the one
// broadcast clients may treat as "discard all local state and reload".
func (gs *GameService) resetGame(ctx context.Context) (string, error) {
	now := gs.now()

	err := gs.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := gs.audit.DeleteAll(txCtx); err != nil {
			return err
		}
		if err := gs.ledger.DeleteAll(txCtx); err != nil {
			return err
		}
		if err := gs.teams.ResetScores(txCtx); err != nil {
			return err
		}
		if err := gs.nodes.ResetAllNodes(txCtx, now); err != nil {
			return err
		}
		if err := gs.settings.ForceInactive(txCtx); err != nil {
			return err
		}
		// The wipe and the first entry of the fresh log commit together.
		if _, err := gs.audit.Append(txCtx, "[SYSTEM] The game has been reset.", nil, now); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("game reset failed: %w", err)
	}

	gs.publish(ctx, events.EventGameReset, events.FullResetRequired{
		Message: "Game has been reset by admin.",
	})

	return "Game Reset Complete", nil
}
