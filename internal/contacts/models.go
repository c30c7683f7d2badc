package contacts

import "time"

// Contact is one lead record belonging to a campaign.
//
// IsCalled flips to true when the dialer claims the contact for an
// origination attempt and is only rolled back by the dialer itself when
// that attempt fails before reaching the PBX. External retry/reset flows
// live outside this core.
type Contact struct {
	ID         string `json:"id" db:"id"`
	CampaignID string `json:"campaign_id" db:"campaign_id"`

	Name  string `json:"name" db:"name"`
	Phone string `json:"phone" db:"phone"`

	IsCalled bool `json:"is_called" db:"is_called"`

	// Metadata carries the imported payload (outstanding amounts,
	// penalties, free-form fields) opaquely as JSON.
	Metadata string `json:"metadata,omitempty" db:"metadata"`
	Notes    string `json:"notes,omitempty" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
