package agents

import (
	"context"
	"sync"
	"testing"
)

func TestPool_ClaimIsExclusive(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Add(Agent{ID: "a1", Name: "Agent One", Extension: "101", Status: StatusIdle})
	pool := NewPool(repo, nil)

	ok, err := pool.Claim(context.Background(), "a1")
	if err != nil || !ok {
		t.Fatalf("expected first claim to succeed, ok=%v err=%v", ok, err)
	}
	ok, err = pool.Claim(context.Background(), "a1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ok {
		t.Fatalf("expected second claim to lose")
	}
}

func TestPool_ClaimUnderContention(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Add(Agent{ID: "a1", Status: StatusIdle})
	pool := NewPool(repo, nil)

	const claimers = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := pool.Claim(context.Background(), "a1"); ok {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	if won != 1 {
		t.Fatalf("expected exactly one winner, got %d", won)
	}
}

func TestPool_ReleaseIsIdempotent(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Add(Agent{ID: "a1", Status: StatusBusy})
	pool := NewPool(repo, nil)

	if err := pool.Release(context.Background(), "a1"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	// Already idle; must not fail.
	if err := pool.Release(context.Background(), "a1"); err != nil {
		t.Fatalf("unexpected err on repeat release: %v", err)
	}

	a, err := pool.Get(context.Background(), "a1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if a.Status != StatusIdle {
		t.Fatalf("expected idle, got %s", a.Status)
	}
}

func TestPool_ListIdleIsASnapshot(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Add(Agent{ID: "a1", Status: StatusIdle})
	repo.Add(Agent{ID: "a2", Status: StatusBusy})
	repo.Add(Agent{ID: "a3", Status: StatusOffline})
	pool := NewPool(repo, nil)

	idle, err := pool.ListIdle(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(idle) != 1 || idle[0].ID != "a1" {
		t.Fatalf("expected only a1 idle, got %+v", idle)
	}

	// Mutating after the snapshot must not affect the returned slice.
	if ok, _ := pool.Claim(context.Background(), "a1"); !ok {
		t.Fatalf("claim failed")
	}
	if idle[0].Status != StatusIdle {
		t.Fatalf("snapshot mutated by claim")
	}
}
