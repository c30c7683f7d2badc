package agents

import "time"

// Agent is a human call-center agent reachable at a PBX extension.
//
// Status is owned by the pool: the only legal mutations are Claim
// (idle -> busy) and Release (busy -> idle). Offline agents are never
// scheduled.
type Agent struct {
	ID        string      `json:"id" db:"id"`
	Name      string      `json:"name" db:"name"`
	Extension string      `json:"extension" db:"extension"`
	Status    AgentStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type AgentStatus string

const (
	StatusIdle    AgentStatus = "idle"
	StatusBusy    AgentStatus = "busy"
	StatusOffline AgentStatus = "offline"
)
