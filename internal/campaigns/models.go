package campaigns

import "time"

// Campaign is one outbound dialing campaign over an imported contact
// set.
//
// Lifecycle invariant: IsActive is true exactly while Status is running.
// Status is mutated only through the dialer's transition operations;
// the web layer requests transitions, it never writes state directly.
type Campaign struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	ProductType string `json:"product_type,omitempty" db:"product_type"`
	DialingType string `json:"dialing_type,omitempty" db:"dialing_type"`
	CreatedBy   string `json:"created_by,omitempty" db:"created_by"`
	Notes       string `json:"notes,omitempty" db:"notes"`

	// PacingRatio scales the contact batch against idle agents. Zero
	// means "use the configured default".
	PacingRatio int `json:"pacing_ratio,omitempty" db:"pacing_ratio"`

	RetryCount int `json:"retry_count" db:"retry_count"`

	Status   Status `json:"status" db:"status"`
	IsActive bool   `json:"is_active" db:"is_active"`

	StartedAt *time.Time `json:"started_at,omitempty" db:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty" db:"stopped_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
)

// Active reports the is_active flag implied by a status.
func (s Status) Active() bool { return s == StatusRunning }
