// engine/service/tick.go
package service

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/foodwars/territory-engine/shared/events"
	"github.com/foodwars/territory-engine/shared/models"
)

// TickDetail is one team's settlement within a tick.
type TickDetail struct {
	TeamID   string `json:"teamId"`
	NewScore int64  `json:"newScore"`
	Added    int64  `json:"added"`
}

// TickReport summarizes one invocation of the global accrual tick.
type TickReport struct {
	ProcessedTeams int          `json:"processedTeams"`
	Details        []TickDetail `json:"details"`
	Message        string       `json:"message,omitempty"`
}

// teamAccrual collects one team's rate total and per-type breakdown.
type teamAccrual struct {
	total   int64
	perType map[models.ResourceType]int64
}

// RunTick settles all currently-owned nodes en masse: each owning team is
// credited the sum of its nodes' capture rates, split per resource type.
// responsible filters which teams this instance settles (nil means all;
// the accrual ticker passes the consistent-hash check when several engine
// instances run). Each team's settlement is its own atomic unit: one
// team's failure never drops another team's credit, but a team is never
// left with score updated and ledger not.
//
// Node settlement timestamps are deliberately NOT touched: the tick and the
// per-node harvest cooldown are independent accrual paths, so a node can be
// credited by both over the same wall-clock window. That mirrors the
// original economy; see DESIGN.md before "fixing" it.
func (gs *GameService) RunTick(ctx context.Context, responsible func(teamID string) bool) (*TickReport, error) {
	active, err := gs.settings.IsActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read game state: %w", err)
	}
	if !active {
		return &TickReport{Message: "Game is not active"}, nil
	}

	nodes, err := gs.nodes.ListOwnedNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list owned nodes: %w", err)
	}
	if len(nodes) == 0 {
		return &TickReport{Message: "No controlled nodes"}, nil
	}

	accruals := make(map[string]*teamAccrual)
	for _, node := range nodes {
		if node.ControlledBy == nil {
			continue
		}
		teamID := *node.ControlledBy
		acc, ok := accruals[teamID]
		if !ok {
			acc = &teamAccrual{perType: make(map[models.ResourceType]int64)}
			accruals[teamID] = acc
		}
		acc.total += node.CaptureRate
		acc.perType[node.Type] += node.CaptureRate
	}

	// Deterministic settlement order keeps logs and tests stable.
	teamIDs := make([]string, 0, len(accruals))
	for teamID := range accruals {
		teamIDs = append(teamIDs, teamID)
	}
	sort.Strings(teamIDs)

	report := &TickReport{}
	for _, teamID := range teamIDs {
		if responsible != nil && !responsible(teamID) {
			continue
		}
		acc := accruals[teamID]

		var newScore int64
		err := gs.tx.WithTransaction(ctx, func(txCtx context.Context) error {
			var err error
			if newScore, err = gs.teams.IncrementScore(txCtx, teamID, acc.total); err != nil {
				return err
			}
			for resourceType, amount := range acc.perType {
				if err = gs.ledger.CreditResource(txCtx, teamID, resourceType, amount); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			// Partial progress across teams is acceptable; this team's
			// transaction rolled back as a whole.
			log.Printf("ERROR: Tick settlement failed for team %s: %v", teamID, err)
			continue
		}

		report.Details = append(report.Details, TickDetail{TeamID: teamID, NewScore: newScore, Added: acc.total})
		gs.publish(ctx, events.EventScoreUpdate, events.ScoreChange{TeamID: teamID, NewScore: newScore})
	}

	report.ProcessedTeams = len(report.Details)
	return report, nil
}
