package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
	ListByCampaign(ctx context.Context, campaignID string) ([]Event, error)
}

var ErrInvalidEvent = errors.New("audit: invalid event")

// Service records operator actions. Callers should treat audit logging
// as best-effort: log the error and move on.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogCommand records one dialer control action against a campaign.
func (s *Service) LogCommand(ctx context.Context, typ EventType, campaignID, operator, ip, message string) error {
	return s.Append(ctx, Event{
		Type:       typ,
		Operator:   operator,
		IPAddress:  ip,
		CampaignID: campaignID,
		Message:    message,
	})
}

// Trail returns the recorded actions for a campaign, oldest first.
func (s *Service) Trail(ctx context.Context, campaignID string) ([]Event, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	return s.repo.ListByCampaign(ctx, campaignID)
}
