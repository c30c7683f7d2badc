package callerid

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

var ErrNoneActive = errors.New("callerid: no active caller ID available")

// CallerID is one outbound-displayed number. The pool is read-only to
// the dialer; activation is managed externally.
type CallerID struct {
	ID       string `json:"id" db:"id"`
	Number   string `json:"number" db:"number"`
	Label    string `json:"label,omitempty" db:"label"`
	IsActive bool   `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Repository interface {
	ListActive(ctx context.Context) ([]CallerID, error)
}

// Picker selects a uniform-random caller ID over the active set. RNG is
// injectable so selection is testable. One Picker is shared by every
// campaign loop; rand.Rand is not goroutine safe, so draws are locked.
type Picker struct {
	repo Repository

	mu  sync.Mutex
	rng *rand.Rand
}

func NewPicker(repo Repository, rng *rand.Rand) *Picker {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Picker{repo: repo, rng: rng}
}

func (p *Picker) Pick(ctx context.Context) (CallerID, error) {
	active, err := p.repo.ListActive(ctx)
	if err != nil {
		return CallerID{}, err
	}
	if len(active) == 0 {
		return CallerID{}, ErrNoneActive
	}
	p.mu.Lock()
	i := p.rng.Intn(len(active))
	p.mu.Unlock()
	return active[i], nil
}
