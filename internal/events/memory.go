package events

import (
	"context"
	"sync"
)

// MemoryPublisher records events in memory for tests.
type MemoryPublisher struct {
	mu sync.Mutex

	StatusEvents []CampaignStatusEvent
	RoutedEvents []CallRoutedEvent
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) CampaignStatusChanged(ctx context.Context, e CampaignStatusEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StatusEvents = append(p.StatusEvents, e)
	return nil
}

func (p *MemoryPublisher) CallRouted(ctx context.Context, e CallRoutedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RoutedEvents = append(p.RoutedEvents, e)
	return nil
}

// Statuses returns the sequence of published campaign statuses.
func (p *MemoryPublisher) Statuses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.StatusEvents))
	for _, e := range p.StatusEvents {
		out = append(out, e.Status)
	}
	return out
}

// Routed returns a copy of the routed events.
func (p *MemoryPublisher) Routed() []CallRoutedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]CallRoutedEvent(nil), p.RoutedEvents...)
}
