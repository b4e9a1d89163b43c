// shared/registry/registrar.go
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/foodwars/territory-engine/shared/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// InstanceRegistrar handles the self-registration and heartbeating of an
// engine instance. Each running instance writes itself into a Redis hash so
// peers can build a consistent picture of who is alive.
type InstanceRegistrar struct {
	redisClient *redis.ClusterClient
	serviceType string
	cfg         *config.CommonConfig
	instanceID  string
	stopChan    chan struct{}
	doneChan    chan struct{}
}

// NewInstanceRegistrar creates a new InstanceRegistrar with a freshly
// generated instance ID.
func NewInstanceRegistrar(redisClient *redis.ClusterClient, serviceType string, cfg *config.CommonConfig) *InstanceRegistrar {
	instanceID := fmt.Sprintf("%s-%s", serviceType, uuid.New().String())

	return &InstanceRegistrar{
		redisClient: redisClient,
		serviceType: serviceType,
		cfg:         cfg,
		instanceID:  instanceID,
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}
}

// Start begins the registration and heartbeating process in a goroutine.
func (ir *InstanceRegistrar) Start() {
	log.Printf("Starting instance registrar for %s (ID: %s) at %s:%d",
		ir.serviceType, ir.instanceID, ir.cfg.ServiceIP, ir.cfg.ServicePort)

	go ir.run()
}

// Stop signals the registrar to stop and removes this instance from the registry.
func (ir *InstanceRegistrar) Stop() {
	close(ir.stopChan)
	<-ir.doneChan

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hashKey := fmt.Sprintf("%s%s", RedisRegistryHashPrefix, ir.serviceType)
	if _, err := ir.redisClient.HDel(ctx, hashKey, ir.instanceID).Result(); err != nil {
		log.Printf("ERROR: Failed to remove instance %s from Redis registry on shutdown: %v", ir.instanceID, err)
	} else {
		log.Printf("INFO: Instance %s removed from Redis registry on shutdown.", ir.instanceID)
	}
}

// run is the main loop for the registrar's background goroutine.
func (ir *InstanceRegistrar) run() {
	defer close(ir.doneChan)

	ticker := time.NewTicker(ir.cfg.HeartbeatInterval)
	defer ticker.Stop()

	ir.heartbeat()

	if ir.cfg.RegistryCleanupInterval > 0 {
		ir.startCleanupLoop()
	}

	for {
		select {
		case <-ticker.C:
			ir.heartbeat()
		case <-ir.stopChan:
			return
		}
	}
}

// heartbeat performs the actual registration/heartbeat write in Redis.
func (ir *InstanceRegistrar) heartbeat() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	info := InstanceInfo{
		InstanceID:  ir.instanceID,
		ServiceType: ir.serviceType,
		IP:          ir.cfg.ServiceIP,
		Port:        ir.cfg.ServicePort,
		LastSeen:    time.Now().Unix(),
	}

	infoJSON, err := json.Marshal(info)
	if err != nil {
		log.Printf("ERROR: Failed to marshal InstanceInfo for %s: %v", ir.instanceID, err)
		return
	}

	hashKey := fmt.Sprintf("%s%s", RedisRegistryHashPrefix, ir.serviceType)
	if _, err := ir.redisClient.HSet(ctx, hashKey, ir.instanceID, infoJSON).Result(); err != nil {
		log.Printf("ERROR: Failed to heartbeat instance %s to Redis: %v", ir.instanceID, err)
	}
}

// startCleanupLoop starts a background goroutine that removes stale entries.
func (ir *InstanceRegistrar) startCleanupLoop() {
	go func() {
		cleanupTicker := time.NewTicker(ir.cfg.RegistryCleanupInterval)
		defer cleanupTicker.Stop()
		log.Printf("Starting registry cleanup loop for %s, checking every %v", ir.serviceType, ir.cfg.RegistryCleanupInterval)

		for {
			select {
			case <-cleanupTicker.C:
				ir.performCleanup()
			case <-ir.stopChan:
				return
			}
		}
	}()
}

// performCleanup iterates through registered instances and removes stale or
// corrupt entries.
func (ir *InstanceRegistrar) performCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hashKey := fmt.Sprintf("%s%s", RedisRegistryHashPrefix, ir.serviceType)
	results, err := ir.redisClient.HGetAll(ctx, hashKey).Result()
	if err != nil {
		log.Printf("ERROR: Cleanup failed to get all instances for type %s: %v", ir.serviceType, err)
		return
	}

	now := time.Now()
	for instanceID, infoJSON := range results {
		var info InstanceInfo
		if err := json.Unmarshal([]byte(infoJSON), &info); err != nil {
			log.Printf("WARNING: Cleanup: corrupt InstanceInfo for ID %s: %v. Deleting.", instanceID, err)
			if _, delErr := ir.redisClient.HDel(ctx, hashKey, instanceID).Result(); delErr != nil {
				log.Printf("ERROR: Cleanup: failed to delete corrupt entry %s: %v", instanceID, delErr)
			}
			continue
		}

		if now.Sub(time.Unix(info.LastSeen, 0)) > ir.cfg.HeartbeatTTL {
			if _, delErr := ir.redisClient.HDel(ctx, hashKey, instanceID).Result(); delErr != nil {
				log.Printf("ERROR: Cleanup: failed to delete stale instance %s: %v", instanceID, delErr)
			} else {
				log.Printf("INFO: Cleanup: removed stale instance %s from registry.", instanceID)
			}
		}
	}
}

// InstanceID returns the unique ID assigned to this instance.
func (ir *InstanceRegistrar) InstanceID() string {
	return ir.instanceID
}

// ServiceType returns the type of this instance.
func (ir *InstanceRegistrar) ServiceType() string {
	return ir.serviceType
}
