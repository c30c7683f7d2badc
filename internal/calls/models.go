package calls

import "time"

// CallRecord is the immutable history of one dialing attempt. It is
// created in ringing state when the origination is dispatched, mutated
// exactly once at finalization, and never touched again. Reporting is
// derived from this ledger.
type CallRecord struct {
	ID         string `json:"id" db:"id"`
	CampaignID string `json:"campaign_id" db:"campaign_id"`
	ContactID  string `json:"contact_id" db:"contact_id"`
	AgentID    string `json:"agent_id" db:"agent_id"`
	CallerID   string `json:"caller_id" db:"caller_id"`

	Status CallStatus `json:"status" db:"status"`

	// Disposition mirrors Status once the call resolves.
	Disposition string `json:"disposition,omitempty" db:"disposition"`

	StartedAt time.Time  `json:"started_at" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	DurationSeconds int `json:"duration_seconds" db:"duration_seconds"`

	Notes string `json:"notes,omitempty" db:"notes"`
}

type CallStatus string

const (
	StatusRinging  CallStatus = "ringing"
	StatusAnswered CallStatus = "answered"
	StatusBusy     CallStatus = "busy"
	StatusNoAnswer CallStatus = "no_answer"
	StatusFailed   CallStatus = "failed"
)

// Terminal reports whether the status ends a call's lifecycle.
func (s CallStatus) Terminal() bool {
	switch s {
	case StatusAnswered, StatusBusy, StatusNoAnswer, StatusFailed:
		return true
	default:
		return false
	}
}

// Duration thresholds for the outcome fallback used when the PBX gives
// no explicit hangup cause. A call that survived past the answer
// threshold is assumed answered; a shorter one that outlived the busy
// threshold is assumed unanswered ringing; anything quicker is assumed
// busy/rejected.
const (
	answeredThreshold = 10 * time.Second
	busyThreshold     = 5 * time.Second
)

// ClassifyByDuration maps elapsed call time to an outcome. It is a
// heuristic stand-in for a real hangup-cause signal.
func ClassifyByDuration(elapsed time.Duration) CallStatus {
	switch {
	case elapsed > answeredThreshold:
		return StatusAnswered
	case elapsed > busyThreshold:
		return StatusNoAnswer
	default:
		return StatusBusy
	}
}
