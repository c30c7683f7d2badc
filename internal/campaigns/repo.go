package campaigns

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("campaigns: campaign not found")

// Repository abstracts campaign storage. UpdateStatus keeps the
// is_active flag in lockstep with the status so the lifecycle invariant
// cannot be violated by a partial write.
type Repository interface {
	Create(ctx context.Context, c Campaign) error
	Get(ctx context.Context, id string) (Campaign, error)
	List(ctx context.Context) ([]Campaign, error)

	// UpdateStatus sets status plus derived is_active. Non-nil startedAt
	// or stoppedAt overwrite the respective timestamps; clearStopped
	// resets stopped_at (used when a campaign (re)starts).
	UpdateStatus(ctx context.Context, id string, status Status, startedAt, stoppedAt *time.Time, clearStopped bool) error
}
