package callerid

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory caller ID store for tests and early
// development.
type MemoryRepo struct {
	mu  sync.Mutex
	ids []CallerID
}

func NewMemoryRepo(ids ...CallerID) *MemoryRepo {
	return &MemoryRepo{ids: ids}
}

func (r *MemoryRepo) Add(c CallerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, c)
}

func (r *MemoryRepo) ListActive(ctx context.Context) ([]CallerID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CallerID, 0)
	for _, c := range r.ids {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}
