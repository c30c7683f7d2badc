package agents

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory agent store for tests and early development.
// Claim/Release are serialized by a single mutex, which gives the same
// at-most-one-holder guarantee as the conditional UPDATE in Postgres.
type MemoryRepo struct {
	mu     sync.Mutex
	agents map[string]*Agent
	order  []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{agents: map[string]*Agent{}}
}

// Add seeds an agent. Intended for tests and fixtures.
func (r *MemoryRepo) Add(a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[a.ID]; !ok {
		r.order = append(r.order, a.ID)
	}
	cp := a
	r.agents[a.ID] = &cp
}

func (r *MemoryRepo) ListIdle(ctx context.Context) ([]Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Agent, 0)
	for _, id := range r.order {
		if a := r.agents[id]; a.Status == StatusIdle {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return Agent{}, ErrNotFound
	}
	return *a, nil
}

func (r *MemoryRepo) Claim(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return false, ErrNotFound
	}
	if a.Status != StatusIdle {
		return false, nil
	}
	a.Status = StatusBusy
	return true, nil
}

func (r *MemoryRepo) Release(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return false, ErrNotFound
	}
	if a.Status != StatusBusy {
		return false, nil
	}
	a.Status = StatusIdle
	return true, nil
}
