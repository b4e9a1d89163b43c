// engine/service/control_test.go
package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/foodwars/territory-engine/shared/events"
	"github.com/foodwars/territory-engine/shared/models"
)

func TestControlStartAndFinish(t *testing.T) {
	gs, state, bc := newTestService(testNow)

	msg, err := gs.Control(context.Background(), ControlStart)
	if err != nil {
		t.Fatalf("Control(START): %v", err)
	}
	if msg != "Game Started" {
		t.Errorf("start message = %q", msg)
	}
	if active, _ := state.IsActive(context.Background()); !active {
		t.Errorf("game not active after START")
	}

	// START is idempotent: repeating it succeeds and logs again.
	if _, err := gs.Control(context.Background(), ControlStart); err != nil {
		t.Fatalf("repeated START: %v", err)
	}
	if state.logCount() != 2 {
		t.Errorf("audit entries after two STARTs = %d, want 2", state.logCount())
	}

	msg, err = gs.Control(context.Background(), ControlFinish)
	if err != nil {
		t.Fatalf("Control(FINISH): %v", err)
	}
	if msg != "Game Finished" {
		t.Errorf("finish message = %q", msg)
	}
	if active, _ := state.IsActive(context.Background()); active {
		t.Errorf("game still active after FINISH")
	}

	logEvents := bc.byName(events.EventLogNew)
	if len(logEvents) != 3 {
		t.Fatalf("log-new events = %d, want 3", len(logEvents))
	}
	for _, ev := range logEvents {
		payload, ok := ev.Payload.(events.LogEntryCreated)
		if !ok {
			t.Fatalf("unexpected payload type %T", ev.Payload)
		}
		if payload.TeamColor != events.SystemColor {
			t.Errorf("system log color = %q, want %q", payload.TeamColor, events.SystemColor)
		}
	}
}

func TestControlReset(t *testing.T) {
	gs, state, bc := newTestService(testNow)
	activeGame(t, state)

	// Build up state worth wiping.
	state.addTeam("team-red", "Red", "#f00")
	owner := "team-red"
	seedNode(state, "n1", 50, &owner, testNow.Add(-time.Hour))
	if _, err := state.IncrementScore(context.Background(), "team-red", 500); err != nil {
		t.Fatalf("seed score: %v", err)
	}
	if err := state.CreditResource(context.Background(), "team-red", models.ResourceMeat, 500); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
	if _, err := state.Append(context.Background(), "old entry", &owner, testNow.Add(-time.Hour)); err != nil {
		t.Fatalf("seed audit: %v", err)
	}

	msg, err := gs.Control(context.Background(), ControlReset)
	if err != nil {
		t.Fatalf("Control(RESET): %v", err)
	}
	if msg != "Game Reset Complete" {
		t.Errorf("reset message = %q", msg)
	}

	if got := state.teamScore("team-red"); got != 0 {
		t.Errorf("score after reset = %d, want 0", got)
	}
	if got := state.ledgerAmount("team-red", models.ResourceMeat); got != 0 {
		t.Errorf("ledger after reset = %d, want 0", got)
	}
	if node := state.nodeCopy("n1"); node.ControlledBy != nil {
		t.Errorf("node still owned after reset")
	}
	if active, _ := state.IsActive(context.Background()); active {
		t.Errorf("game still active after reset")
	}

	// The wiped log carries exactly the fresh reset entry.
	logs, err := state.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(logs) != 1 || logs[0].Message != "[SYSTEM] The game has been reset." {
		t.Fatalf("unexpected logs after reset: %+v", logs)
	}

	if got := len(bc.byName(events.EventGameReset)); got != 1 {
		t.Errorf("game-reset events = %d, want 1", got)
	}
}

func TestControlInvalidAction(t *testing.T) {
	gs, _, _ := newTestService(testNow)

	_, err := gs.Control(context.Background(), ControlAction("EXPLODE"))
	if !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("err = %v, want ErrInvalidAction", err)
	}
}
