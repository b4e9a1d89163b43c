// engine/ticker/accrual_ticker.go
package ticker

import (
	"context"
	"log"
	"time"

	"github.com/foodwars/territory-engine/engine/service"
	"github.com/foodwars/territory-engine/shared/cluster"
	"github.com/foodwars/territory-engine/shared/config"
)

// AccrualTicker drives the periodic global settlement of owned nodes.
// Independent of player actions, every TickInterval it credits each owning
// team the sum of its nodes' capture rates. When several engine instances
// are registered, the assignment manager ensures only one instance settles
// any given team.
type AccrualTicker struct {
	cfg               *config.EngineServiceConfig
	gameService       *service.GameService
	assignmentManager *cluster.AssignmentManager
	ctx               context.Context
	cancel            context.CancelFunc
}

// NewAccrualTicker creates a new AccrualTicker instance.
func NewAccrualTicker(
	cfg *config.EngineServiceConfig,
	gameService *service.GameService,
	assignmentManager *cluster.AssignmentManager,
) *AccrualTicker {
	ctx, cancel := context.WithCancel(context.Background())
	return &AccrualTicker{
		cfg:               cfg,
		gameService:       gameService,
		assignmentManager: assignmentManager,
		ctx:               ctx,
		cancel:            cancel,
	}
}

// Start initiates the accrual loop. This should be run in a goroutine.
func (at *AccrualTicker) Start() {
	log.Printf("Accrual ticker starting with interval: %v", at.cfg.TickInterval)
	ticker := time.NewTicker(at.cfg.TickInterval)
	defer ticker.Stop()

	go at.assignmentManager.Start()

	for {
		select {
		case <-at.ctx.Done():
			log.Println("Accrual ticker shutting down.")
			at.assignmentManager.Stop()
			return
		case <-ticker.C:
			at.performTick()
		}
	}
}

// Stop gracefully stops the accrual loop.
func (at *AccrualTicker) Stop() {
	at.cancel()
}

// performTick executes one global settlement, restricted to the teams this
// instance is responsible for.
func (at *AccrualTicker) performTick() {
	ctx, cancel := context.WithTimeout(at.ctx, at.cfg.TickInterval)
	defer cancel()

	report, err := at.gameService.RunTick(ctx, func(teamID string) bool {
		responsible, err := at.assignmentManager.IsResponsible(teamID)
		if err != nil {
			log.Printf("WARNING: AccrualTicker: failed to check responsibility for team %s: %v", teamID, err)
			return false
		}
		return responsible
	})
	if err != nil {
		log.Printf("ERROR: Accrual tick failed: %v", err)
		return
	}

	if report.ProcessedTeams > 0 {
		log.Printf("INFO: Accrual tick settled %d team(s).", report.ProcessedTeams)
	}
}
