// shared/registry/client.go
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RegistryClient reads the instance registry. It is separate from the
// InstanceRegistrar so consumers that only observe the registry do not
// carry heartbeat state.
type RegistryClient struct {
	redisClient     *redis.ClusterClient
	instanceTimeout time.Duration
}

// NewRegistryClient takes an already initialized *redis.ClusterClient.
// instanceTimeout should match the registrar's HeartbeatTTL.
func NewRegistryClient(redisClient *redis.ClusterClient, instanceTimeout time.Duration) *RegistryClient {
	return &RegistryClient{
		redisClient:     redisClient,
		instanceTimeout: instanceTimeout,
	}
}

// GetActiveInstances retrieves a map of active instances for a service type,
// keyed by instance ID. Instances whose last heartbeat is older than the
// instance timeout are filtered out.
func (rc *RegistryClient) GetActiveInstances(ctx context.Context, serviceType string) (map[string]InstanceInfo, error) {
	key := fmt.Sprintf("%s%s", RedisRegistryHashPrefix, serviceType)
	results, err := rc.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get all instances of type %s from Redis: %w", serviceType, err)
	}

	active := make(map[string]InstanceInfo)
	now := time.Now()

	for instanceID, infoJSON := range results {
		var info InstanceInfo
		if err := json.Unmarshal([]byte(infoJSON), &info); err != nil {
			log.Printf("WARNING: RegistryClient: failed to unmarshal InstanceInfo for ID %s (type %s): %v", instanceID, serviceType, err)
			continue // Skip malformed entries; the registrar's cleanup loop removes them
		}
		if now.Sub(time.Unix(info.LastSeen, 0)) <= rc.instanceTimeout {
			active[instanceID] = info
		}
	}
	return active, nil
}
