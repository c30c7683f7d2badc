package events

import (
	"context"
	"time"
)

// Publisher fans dialer state changes out to the web layer for live UI
// updates. Publishing is best effort: the dialer never blocks or fails
// on a notification.
type Publisher interface {
	CampaignStatusChanged(ctx context.Context, e CampaignStatusEvent) error
	CallRouted(ctx context.Context, e CallRoutedEvent) error
}

// CampaignStatusEvent is fired on every campaign lifecycle transition.
type CampaignStatusEvent struct {
	CampaignID string    `json:"campaign_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// CallRoutedEvent is fired when a call is dispatched to an agent.
type CallRoutedEvent struct {
	CampaignID string    `json:"campaign_id"`
	CallID     string    `json:"call_id"`
	AgentID    string    `json:"agent_id"`
	ContactID  string    `json:"contact_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
