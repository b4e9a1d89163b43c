// engine/service/tick_test.go
package service

import (
	"context"
	"testing"
	"time"

	"github.com/foodwars/territory-engine/shared/events"
	"github.com/foodwars/territory-engine/shared/models"
)

func TestRunTickCreditsOwnedNodes(t *testing.T) {
	gs, state, bc := newTestService(testNow)
	activeGame(t, state)
	state.addTeam("team-red", "Red", "#f00")
	owner := "team-red"
	settled := testNow.Add(-10 * time.Minute)

	meat := state.addNode(models.Node{
		ID: "n1", Name: "Butcher", Type: models.ResourceMeat,
		CaptureRate: 50, ControlledBy: &owner, LastSettledAt: settled,
	})
	state.addNode(models.Node{
		ID: "n2", Name: "Dairy Barn", Type: models.ResourceDairy,
		CaptureRate: 30, ControlledBy: &owner, LastSettledAt: settled,
	})
	state.addNode(models.Node{
		ID: "n3", Name: "Unclaimed", Type: models.ResourceRice,
		CaptureRate: 99, ControlledBy: nil, LastSettledAt: settled,
	})

	report, err := gs.RunTick(context.Background(), nil)
	if err != nil {
		t.Fatalf("RunTick: %v", err)
	}
	if report.ProcessedTeams != 1 {
		t.Fatalf("processed teams = %d, want 1", report.ProcessedTeams)
	}
	if len(report.Details) != 1 || report.Details[0].Added != 80 || report.Details[0].NewScore != 80 {
		t.Fatalf("unexpected details: %+v", report.Details)
	}

	if got := state.teamScore("team-red"); got != 80 {
		t.Errorf("team score = %d, want 80", got)
	}
	if got := state.ledgerAmount("team-red", models.ResourceMeat); got != 50 {
		t.Errorf("ledger MEAT = %d, want 50", got)
	}
	if got := state.ledgerAmount("team-red", models.ResourceDairy); got != 30 {
		t.Errorf("ledger DAIRY = %d, want 30", got)
	}

	// The tick never advances node settlement timers; the harvest cooldown
	// runs on its own clock.
	if node := state.nodeCopy(meat.ID); !node.LastSettledAt.Equal(settled) {
		t.Errorf("tick moved node timer to %v", node.LastSettledAt)
	}

	if got := len(bc.byName(events.EventScoreUpdate)); got != 1 {
		t.Errorf("score-update events = %d, want 1", got)
	}
}

func TestRunTickInactiveGame(t *testing.T) {
	gs, state, bc := newTestService(testNow)
	owner := "team-red"
	state.addTeam("team-red", "Red", "#f00")
	seedNode(state, "n1", 50, &owner, testNow.Add(-time.Hour))

	report, err := gs.RunTick(context.Background(), nil)
	if err != nil {
		t.Fatalf("RunTick: %v", err)
	}
	if report.ProcessedTeams != 0 || report.Message != "Game is not active" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if got := state.teamScore("team-red"); got != 0 {
		t.Errorf("inactive tick credited score: %d", got)
	}
	if len(bc.events) != 0 {
		t.Errorf("inactive tick published %d events", len(bc.events))
	}
}

func TestRunTickNoOwnedNodes(t *testing.T) {
	gs, state, _ := newTestService(testNow)
	activeGame(t, state)
	state.addTeam("team-red", "Red", "#f00")
	seedNode(state, "n1", 50, nil, testNow.Add(-time.Hour))

	report, err := gs.RunTick(context.Background(), nil)
	if err != nil {
		t.Fatalf("RunTick: %v", err)
	}
	if report.ProcessedTeams != 0 || report.Message != "No controlled nodes" {
		t.Fatalf("unexpected report: %+v", report)
	}
}

// One team's settlement failing must not drop the other team's credit, and
// the failed team must not be left half-settled.
func TestRunTickPerTeamFailureIsolation(t *testing.T) {
	gs, state, bc := newTestService(testNow)
	activeGame(t, state)
	state.addTeam("team-a", "Alpha", "#aaa")
	state.addTeam("team-b", "Bravo", "#bbb")
	ownerA, ownerB := "team-a", "team-b"
	settled := testNow.Add(-time.Hour)
	state.addNode(models.Node{ID: "n1", Name: "A1", Type: models.ResourceMeat, CaptureRate: 40, ControlledBy: &ownerA, LastSettledAt: settled})
	state.addNode(models.Node{ID: "n2", Name: "B1", Type: models.ResourceRice, CaptureRate: 25, ControlledBy: &ownerB, LastSettledAt: settled})

	state.failLedgerFor["team-a"] = true

	report, err := gs.RunTick(context.Background(), nil)
	if err != nil {
		t.Fatalf("RunTick: %v", err)
	}
	if report.ProcessedTeams != 1 {
		t.Fatalf("processed teams = %d, want 1", report.ProcessedTeams)
	}

	// team-a rolled back completely: no score without ledger.
	if got := state.teamScore("team-a"); got != 0 {
		t.Errorf("failed team score = %d, want 0", got)
	}
	if got := state.ledgerAmount("team-a", models.ResourceMeat); got != 0 {
		t.Errorf("failed team ledger = %d, want 0", got)
	}

	if got := state.teamScore("team-b"); got != 25 {
		t.Errorf("healthy team score = %d, want 25", got)
	}
	if got := len(bc.byName(events.EventScoreUpdate)); got != 1 {
		t.Errorf("score-update events = %d, want 1", got)
	}
}

// The responsibility filter shards teams across instances: teams this
// instance does not own are skipped untouched.
func TestRunTickResponsibilityFilter(t *testing.T) {
	gs, state, _ := newTestService(testNow)
	activeGame(t, state)
	state.addTeam("team-a", "Alpha", "#aaa")
	state.addTeam("team-b", "Bravo", "#bbb")
	ownerA, ownerB := "team-a", "team-b"
	settled := testNow.Add(-time.Hour)
	state.addNode(models.Node{ID: "n1", Name: "A1", Type: models.ResourceMeat, CaptureRate: 40, ControlledBy: &ownerA, LastSettledAt: settled})
	state.addNode(models.Node{ID: "n2", Name: "B1", Type: models.ResourceRice, CaptureRate: 25, ControlledBy: &ownerB, LastSettledAt: settled})

	report, err := gs.RunTick(context.Background(), func(teamID string) bool {
		return teamID == "team-b"
	})
	if err != nil {
		t.Fatalf("RunTick: %v", err)
	}
	if report.ProcessedTeams != 1 || report.Details[0].TeamID != "team-b" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if got := state.teamScore("team-a"); got != 0 {
		t.Errorf("filtered-out team was settled: score %d", got)
	}
}
