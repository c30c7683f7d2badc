package callerid

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
)

func TestPicker_UniformOverActiveSet(t *testing.T) {
	repo := NewMemoryRepo(
		CallerID{ID: "1", Number: "+621111", IsActive: true},
		CallerID{ID: "2", Number: "+622222", IsActive: false},
		CallerID{ID: "3", Number: "+623333", IsActive: true},
	)
	p := NewPicker(repo, rand.New(rand.NewSource(1)))

	seen := map[string]int{}
	for i := 0; i < 200; i++ {
		c, err := p.Pick(context.Background())
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if c.ID == "2" {
			t.Fatalf("picked inactive caller ID")
		}
		seen[c.ID]++
	}
	if seen["1"] == 0 || seen["3"] == 0 {
		t.Fatalf("expected both active IDs to be picked, got %v", seen)
	}
}

func TestPicker_NoActiveIDs(t *testing.T) {
	p := NewPicker(NewMemoryRepo(CallerID{ID: "1", IsActive: false}), rand.New(rand.NewSource(1)))
	_, err := p.Pick(context.Background())
	if !errors.Is(err, ErrNoneActive) {
		t.Fatalf("expected ErrNoneActive, got %v", err)
	}
}

func TestPicker_ConcurrentPicks(t *testing.T) {
	repo := NewMemoryRepo(
		CallerID{ID: "1", Number: "+621111", IsActive: true},
		CallerID{ID: "2", Number: "+622222", IsActive: true},
	)
	p := NewPicker(repo, rand.New(rand.NewSource(1)))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := p.Pick(context.Background()); err != nil {
					t.Errorf("unexpected err: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
