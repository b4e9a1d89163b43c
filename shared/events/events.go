// shared/events/events.go
package events

import (
	"context"
	"time"
)

// GameChannel is the single broadcast channel all connected clients follow.
const GameChannel = "game-channel"

// Event names published on GameChannel.
const (
	EventMapUpdate   = "map-update"  // ownership changed
	EventScoreUpdate = "score-update"
	EventLogNew      = "log-new"
	EventGameReset   = "game-reset" // clients must discard local state and reload
)

// Broadcaster pushes state-change notifications to connected clients.
// Delivery is best-effort/at-least-once; the underlying durable mutation
// must already be committed before Publish is called. Implementations must
// be safe for concurrent use.
type Broadcaster interface {
	Publish(ctx context.Context, channel, event string, payload interface{}) error
}

// OwnershipChange is the payload for EventMapUpdate.
type OwnershipChange struct {
	Type      string `json:"type"` // always "CAPTURE"
	NodeID    string `json:"nodeId"`
	TeamID    string `json:"teamId"`
	TeamColor string `json:"teamColor"`
}

// ScoreChange is the payload for EventScoreUpdate.
type ScoreChange struct {
	TeamID   string `json:"teamId"`
	NewScore int64  `json:"newScore"`
}

// LogEntryCreated is the payload for EventLogNew. Consumers deduplicate on
// ID since delivery is at-least-once.
type LogEntryCreated struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	TeamColor string    `json:"teamColor"`
}

// FullResetRequired is the payload for EventGameReset.
type FullResetRequired struct {
	Message string `json:"message"`
}

// SystemColor is used for log entries with no team attribution.
const SystemColor = "#fff"
