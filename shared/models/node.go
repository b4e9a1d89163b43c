// shared/models/node.go
package models

import "time"

// ResourceType enumerates the kinds of resources a node can produce.
type ResourceType string

const (
	ResourceMeat      ResourceType = "MEAT"
	ResourceVegetable ResourceType = "VEGETABLE"
	ResourceRice      ResourceType = "RICE"
	ResourceNoodle    ResourceType = "NOODLE"
	ResourceBread     ResourceType = "BREAD"
	ResourceSeafood   ResourceType = "SEAFOOD"
	ResourceSpice     ResourceType = "SPICE"
	ResourceDairy     ResourceType = "DAIRY"
)

// ValidResourceType reports whether t is one of the known resource kinds.
func ValidResourceType(t ResourceType) bool {
	switch t {
	case ResourceMeat, ResourceVegetable, ResourceRice, ResourceNoodle,
		ResourceBread, ResourceSeafood, ResourceSpice, ResourceDairy:
		return true
	}
	return false
}

// Node represents a capturable resource site stored persistently in MongoDB.
// The ID is stable because it is printed on the physical credential placed
// at the site; regenerating it would orphan the printed QR codes.
type Node struct {
	ID            string       `bson:"_id" json:"id"`
	Name          string       `bson:"name" json:"name"`
	Type          ResourceType `bson:"type" json:"type"`
	X             float64      `bson:"x" json:"x"`
	Y             float64      `bson:"y" json:"y"`
	CaptureRate   int64        `bson:"capture_rate" json:"captureRate"`
	ControlledBy  *string      `bson:"controlled_by,omitempty" json:"controlledBy"`
	LastSettledAt time.Time    `bson:"last_settled_at" json:"lastSettledAt"`
	SecretKey     string       `bson:"secret_key" json:"-"`
}

// OwnedBy reports whether the node is currently controlled by the given team.
func (n *Node) OwnedBy(teamID string) bool {
	return n.ControlledBy != nil && *n.ControlledBy == teamID
}
