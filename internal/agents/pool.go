package agents

import (
	"context"
	"errors"
	"log/slog"
)

var ErrNotFound = errors.New("agents: agent not found")

// Repository abstracts agent storage. Claim and Release must be atomic
// with respect to concurrent scheduler iterations; implementations use
// compare-and-swap semantics (mutex CAS in memory, conditional UPDATE in
// Postgres).
type Repository interface {
	ListIdle(ctx context.Context) ([]Agent, error)
	Get(ctx context.Context, id string) (Agent, error)

	// Claim transitions idle -> busy. False means the agent was already
	// claimed (or offline); that is contention, not an error.
	Claim(ctx context.Context, id string) (bool, error)

	// Release transitions busy -> idle. False means the agent was not
	// busy; releasing anyway is allowed and harmless.
	Release(ctx context.Context, id string) (bool, error)
}

// Pool is the single serialization point for agent allocation across all
// campaign loops.
type Pool struct {
	repo Repository
	log  *slog.Logger
}

func NewPool(repo Repository, log *slog.Logger) *Pool {
	if log == nil {
		log = slog.Default()
	}
	return &Pool{repo: repo, log: log}
}

// ListIdle returns a snapshot of idle agents. Callers must re-validate
// with Claim before dispatching: another loop may win the agent between
// the snapshot and the claim.
func (p *Pool) ListIdle(ctx context.Context) ([]Agent, error) {
	return p.repo.ListIdle(ctx)
}

func (p *Pool) Get(ctx context.Context, id string) (Agent, error) {
	return p.repo.Get(ctx, id)
}

// Claim atomically takes an idle agent for a call. At most one caller
// can hold an agent at a time.
func (p *Pool) Claim(ctx context.Context, id string) (bool, error) {
	return p.repo.Claim(ctx, id)
}

// Release returns an agent to the idle pool. Safe to call even if the
// agent is already idle.
func (p *Pool) Release(ctx context.Context, id string) error {
	released, err := p.repo.Release(ctx, id)
	if err != nil {
		return err
	}
	if !released {
		p.log.Warn("agent release on non-busy agent", "agent_id", id)
	}
	return nil
}
