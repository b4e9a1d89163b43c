// shared/models/team.go
package models

import "time"

// Team represents a faction competing for nodes.
type Team struct {
	ID        string     `bson:"_id" json:"id"`
	Name      string     `bson:"name" json:"name"` // Unique display name (e.g., "ALPHA")
	Color     string     `bson:"color" json:"color"`
	Score     int64      `bson:"score" json:"score"`
	CreatedAt *time.Time `bson:"created_at,omitempty" json:"createdAt,omitempty"`
}

// ResourceLedgerEntry is a team's accumulated stockpile of one resource
// type. At most one entry exists per (team, type) pair; entries are created
// lazily on the first credit.
type ResourceLedgerEntry struct {
	TeamID string       `bson:"team_id" json:"teamId"`
	Type   ResourceType `bson:"type" json:"type"`
	Amount int64        `bson:"amount" json:"amount"`
}
