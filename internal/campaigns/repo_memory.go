package campaigns

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory campaign store for tests and early
// development.
type MemoryRepo struct {
	mu        sync.Mutex
	campaigns map[string]*Campaign
	order     []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{campaigns: map[string]*Campaign{}}
}

func (r *MemoryRepo) Create(ctx context.Context, c Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.campaigns[c.ID]; !ok {
		r.order = append(r.order, c.ID)
	}
	cp := c
	r.campaigns[c.ID] = &cp
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return Campaign{}, ErrNotFound
	}
	return *c, nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Campaign, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.campaigns[id])
	}
	return out, nil
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, id string, status Status, startedAt, stoppedAt *time.Time, clearStopped bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	c.IsActive = status.Active()
	if startedAt != nil {
		t := *startedAt
		c.StartedAt = &t
	}
	if stoppedAt != nil {
		t := *stoppedAt
		c.StoppedAt = &t
	}
	if clearStopped {
		c.StoppedAt = nil
	}
	c.UpdatedAt = time.Now()
	return nil
}
