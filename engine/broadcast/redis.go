// engine/broadcast/redis.go
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Envelope wraps every published event so subscribers can dispatch on the
// event name without knowing the payload shape up front.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// RedisBroadcaster publishes game events over Redis pub/sub. Any gateway
// (the websocket hub included) can subscribe to the channel and relay to
// its clients, so events reach clients connected to other engine instances.
type RedisBroadcaster struct {
	redisClient *redis.ClusterClient
}

// NewRedisBroadcaster creates a new RedisBroadcaster instance.
func NewRedisBroadcaster(redisClient *redis.ClusterClient) *RedisBroadcaster {
	return &RedisBroadcaster{redisClient: redisClient}
}

// Publish sends one event on the given channel. Delivery is best-effort;
// callers must only invoke this after the underlying mutation committed.
func (rb *RedisBroadcaster) Publish(ctx context.Context, channel, event string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for event %s: %w", event, err)
	}
	envelope, err := json.Marshal(Envelope{Event: event, Payload: payloadJSON})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope for event %s: %w", event, err)
	}

	if err := rb.redisClient.Publish(ctx, channel, envelope).Err(); err != nil {
		return fmt.Errorf("failed to publish event %s on %s: %w", event, channel, err)
	}
	return nil
}
