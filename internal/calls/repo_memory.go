package calls

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound         = errors.New("calls: record not found")
	ErrAlreadyFinalized = errors.New("calls: record already finalized")
)

// Repository abstracts call record storage. Finalize must refuse a
// second finalization so records stay immutable history.
type Repository interface {
	Create(ctx context.Context, rec CallRecord) error
	Get(ctx context.Context, id string) (CallRecord, error)
	Finalize(ctx context.Context, id string, status CallStatus, endedAt time.Time, durationSeconds int, notes string) error

	ListByCampaign(ctx context.Context, campaignID string) ([]CallRecord, error)
	CountByStatus(ctx context.Context, campaignID string, status CallStatus) (int, error)
	CountTotal(ctx context.Context, campaignID string) (int, error)
}

// MemoryRepo is an in-memory call ledger for tests and early development.
type MemoryRepo struct {
	mu      sync.Mutex
	records map[string]*CallRecord
	order   []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: map[string]*CallRecord{}}
}

func (r *MemoryRepo) Create(ctx context.Context, rec CallRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.ID]; ok {
		return errors.New("calls: duplicate record id")
	}
	cp := rec
	r.records[rec.ID] = &cp
	r.order = append(r.order, rec.ID)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (CallRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return CallRecord{}, ErrNotFound
	}
	return *rec, nil
}

func (r *MemoryRepo) Finalize(ctx context.Context, id string, status CallStatus, endedAt time.Time, durationSeconds int, notes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Status.Terminal() {
		return ErrAlreadyFinalized
	}
	rec.Status = status
	rec.Disposition = string(status)
	rec.EndedAt = &endedAt
	rec.DurationSeconds = durationSeconds
	if notes != "" {
		rec.Notes = notes
	}
	return nil
}

func (r *MemoryRepo) ListByCampaign(ctx context.Context, campaignID string) ([]CallRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CallRecord, 0)
	for _, id := range r.order {
		if rec := r.records[id]; rec.CampaignID == campaignID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (r *MemoryRepo) CountByStatus(ctx context.Context, campaignID string, status CallStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.CampaignID == campaignID && rec.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) CountTotal(ctx context.Context, campaignID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.CampaignID == campaignID {
			n++
		}
	}
	return n, nil
}
