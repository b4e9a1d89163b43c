// shared/models/audit.go
package models

import "time"

// AuditLogEntry is an immutable record of a game event. Entries are only
// ever appended during play and wiped wholesale by a reset.
type AuditLogEntry struct {
	ID        string    `bson:"_id" json:"id"`
	Message   string    `bson:"message" json:"message"`
	TeamID    *string   `bson:"team_id,omitempty" json:"teamId,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// GameSettings is the singleton control-plane state. A missing document is
// treated the same as Active == false.
type GameSettings struct {
	ID     string `bson:"_id" json:"-"`
	Active bool   `bson:"active" json:"active"`
}

// GameSettingsID is the _id of the singleton settings document.
const GameSettingsID = "game"
