// shared/cluster/assignment_manager.go
package cluster

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/foodwars/territory-engine/shared/registry"
	"github.com/stathat/consistent"
)

// AssignmentManager lets an engine instance determine whether it is
// responsible for settling a given team during the global tick, based on
// consistent hashing across the active instances in the registry. Running a
// single instance degenerates to "responsible for everything".
type AssignmentManager struct {
	registryClient *registry.RegistryClient
	registrar      *registry.InstanceRegistrar
	updateInterval time.Duration
	consistentHash *consistent.Consistent
	chMux          sync.RWMutex // Protects access to consistentHash
	ctx            context.Context
	cancel         context.CancelFunc
}

// NewAssignmentManager creates and initializes a new AssignmentManager.
func NewAssignmentManager(
	registryClient *registry.RegistryClient,
	registrar *registry.InstanceRegistrar,
	updateInterval time.Duration,
) *AssignmentManager {
	ctx, cancel := context.WithCancel(context.Background())

	am := &AssignmentManager{
		registryClient: registryClient,
		registrar:      registrar,
		updateInterval: updateInterval,
		consistentHash: consistent.New(),
		ctx:            ctx,
		cancel:         cancel,
	}

	// Add this instance to the ring initially so a lone instance is
	// responsible even before the first registry refresh.
	am.chMux.Lock()
	am.consistentHash.Add(am.registrar.InstanceID())
	am.chMux.Unlock()

	return am
}

// Start begins the periodic update of the consistent hash ring.
// This method should be run in a goroutine.
func (am *AssignmentManager) Start() {
	ticker := time.NewTicker(am.updateInterval)
	defer ticker.Stop()

	log.Printf("AssignmentManager: ring updater started for service type '%s'.", am.registrar.ServiceType())

	for {
		select {
		case <-am.ctx.Done():
			log.Println("AssignmentManager: ring updater shutting down.")
			return
		case <-ticker.C:
			am.updateRing()
		}
	}
}

// Stop gracefully shuts down the AssignmentManager.
func (am *AssignmentManager) Stop() {
	am.cancel()
}

// updateRing fetches the current active instances and rebuilds the ring if
// the membership changed.
func (am *AssignmentManager) updateRing() {
	active, err := am.registryClient.GetActiveInstances(am.ctx, am.registrar.ServiceType())
	if err != nil {
		log.Printf("ERROR: AssignmentManager: failed to get active instances for type '%s': %v", am.registrar.ServiceType(), err)
		return
	}

	members := make([]string, 0, len(active))
	for id := range active {
		members = append(members, id)
	}
	slices.Sort(members)

	am.chMux.Lock()
	defer am.chMux.Unlock()

	currentMembers := am.consistentHash.Members()
	slices.Sort(currentMembers)

	if !slices.Equal(members, currentMembers) {
		newRing := consistent.New()
		for _, member := range members {
			newRing.Add(member)
		}
		am.consistentHash = newRing

		log.Printf("AssignmentManager: ring updated for '%s'. Active members: %v", am.registrar.ServiceType(), newRing.Members())
	}
}

// IsResponsible reports whether this instance owns the given entity ID on
// the consistent hash ring.
func (am *AssignmentManager) IsResponsible(entityID string) (bool, error) {
	am.chMux.RLock()
	defer am.chMux.RUnlock()

	if len(am.consistentHash.Members()) == 0 {
		// Can happen briefly during startup.
		return false, fmt.Errorf("consistent hash ring is empty for service type %s", am.registrar.ServiceType())
	}

	responsible, err := am.consistentHash.Get(entityID)
	if err != nil {
		return false, fmt.Errorf("failed to get responsible instance for entity '%s': %w", entityID, err)
	}

	return responsible == am.registrar.InstanceID(), nil
}
