package audit

import "time"

// Event is an immutable, append-only audit record of an operator action.
//
// Invariants:
// - Events are never updated or deleted.
// - Audit logging is best-effort; dialer flows never block on it.
//
// Storage recommendation (Postgres):
// - Table audit_events with an INSERT-only policy.
// - Optional: partition by time for retention.
type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates which operator action was taken.
	Type EventType `json:"type" db:"type"`

	// Operator is the self-reported operator name, best-effort.
	Operator string `json:"operator,omitempty" db:"operator"`

	// IPAddress captures the client IP when available.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	CampaignID string `json:"campaign_id,omitempty" db:"campaign_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCampaignCreated  EventType = "campaign_created"
	EventTypeContactsImported EventType = "contacts_imported"
	EventTypeDialerStarted    EventType = "dialer_started"
	EventTypeDialerPaused     EventType = "dialer_paused"
	EventTypeDialerResumed    EventType = "dialer_resumed"
	EventTypeDialerStopped    EventType = "dialer_stopped"
)
