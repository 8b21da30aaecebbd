package model

import "time"

// Role is the capability a participant holds in the supply chain. A role is
// granted exactly once per identity and is permanent.
type Role string

const (
	RoleFarmer      Role = "farmer"
	RoleDistributor Role = "distributor"
	RoleRetailer    Role = "retailer"
	RoleConsumer    Role = "consumer"
	RoleUnassigned  Role = "unassigned" // Default for identities with no registry entry
)

// ParticipantInfo stores information about registered participants.
type ParticipantInfo struct {
	ObjectType   string    `json:"objectType"` // Set to the composite key object type (Participant)
	Identity     string    `json:"identity"`   // Full identity string of the participant
	Role         Role      `json:"role"`       // Role assigned to this identity, immutable
	MSPID        string    `json:"mspId"`      // MSP ID of the participant's organization
	RegisteredAt time.Time `json:"registeredAt"`
}
