package reporting

import (
	"dialer-platform/internal/calls"
	"dialer-platform/internal/campaigns"
)

// CampaignReport aggregates one campaign's dialing outcome: contact
// progress, call dispositions, and talk-time totals.
type CampaignReport struct {
	Campaign campaigns.Campaign `json:"campaign"`

	TotalNumbers     int `json:"total_numbers"`
	CalledNumbers    int `json:"called_numbers"`
	RemainingNumbers int `json:"remaining_numbers"`

	TotalCalls    int `json:"total_calls"`
	AnsweredCalls int `json:"answered_calls"`
	NoAnswerCalls int `json:"no_answer_calls"`
	BusyCalls     int `json:"busy_calls"`
	FailedCalls   int `json:"failed_calls"`
	RingingCalls  int `json:"ringing_calls"`

	// AnswerRate is answered over finished calls; in-flight calls are
	// excluded so the rate does not dip while calls ring.
	AnswerRate float64 `json:"answer_rate"`

	TotalTalkSeconds   int `json:"total_talk_seconds"`
	AverageTalkSeconds int `json:"average_talk_seconds"`

	// RecentCalls holds the newest call records, capped.
	RecentCalls []calls.CallRecord `json:"recent_calls"`
}
