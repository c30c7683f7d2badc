package contacts

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory contact store for tests and early
// development. Insertion order is preserved for stable batch ordering.
type MemoryRepo struct {
	mu       sync.Mutex
	contacts map[string]*Contact
	order    []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{contacts: map[string]*Contact{}}
}

func (r *MemoryRepo) Add(c Contact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contacts[c.ID]; !ok {
		r.order = append(r.order, c.ID)
	}
	cp := c
	r.contacts[c.ID] = &cp
}

func (r *MemoryRepo) Get(id string) (Contact, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[id]
	if !ok {
		return Contact{}, false
	}
	return *c, true
}

func (r *MemoryRepo) NextBatch(ctx context.Context, campaignID string, limit int) ([]Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Contact, 0, limit)
	for _, id := range r.order {
		c := r.contacts[id]
		if c.CampaignID != campaignID || c.IsCalled {
			continue
		}
		out = append(out, *c)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryRepo) Import(ctx context.Context, batch []Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, c := range batch {
		if _, ok := r.contacts[c.ID]; !ok {
			r.order = append(r.order, c.ID)
		}
		cp := c
		cp.CreatedAt = now
		cp.UpdatedAt = now
		r.contacts[c.ID] = &cp
	}
	return nil
}

func (r *MemoryRepo) MarkCalled(ctx context.Context, id string) error {
	return r.setCalled(id, true)
}

func (r *MemoryRepo) UnmarkCalled(ctx context.Context, id string) error {
	return r.setCalled(id, false)
}

func (r *MemoryRepo) setCalled(id string, called bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[id]
	if !ok {
		return ErrNotFound
	}
	c.IsCalled = called
	return nil
}

func (r *MemoryRepo) CountTotal(ctx context.Context, campaignID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.contacts {
		if c.CampaignID == campaignID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) CountCalled(ctx context.Context, campaignID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.contacts {
		if c.CampaignID == campaignID && c.IsCalled {
			n++
		}
	}
	return n, nil
}
