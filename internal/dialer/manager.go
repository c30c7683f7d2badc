package dialer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dialer-platform/internal/agents"
	"dialer-platform/internal/calls"
	"dialer-platform/internal/campaigns"
	"dialer-platform/internal/contacts"
	"dialer-platform/internal/events"
)

// PBX is one private control-protocol session. Every campaign run dials
// its own: responses are read sequentially per socket, so sharing a
// session across campaigns would interleave correlated replies.
type PBX interface {
	calls.PBXClient
	Close() error
}

// Connector opens a fresh PBX session for a campaign run.
type Connector func(ctx context.Context) (PBX, error)

// Dispatcher originates a call for one contact/agent pairing and tracks
// it to a terminal status. *calls.Tracker is the production dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, campaignID string, contact contacts.Contact, agent agents.Agent) (string, bool, error)
}

// TrackerFactory builds the call dispatcher bound to a run's PBX session.
type TrackerFactory func(pbx calls.PBXClient) Dispatcher

// Config tunes the scheduling loop.
type Config struct {
	// PacingRatio is the default idle-agent multiplier for campaigns
	// that do not set their own.
	PacingRatio int

	// IterationSleep is the pause between loop iterations and the
	// wait applied when no agent is idle.
	IterationSleep time.Duration

	// MaxIterations is the safety ceiling guaranteeing a run terminates
	// even under stuck external state.
	MaxIterations int
}

func (c Config) withDefaults() Config {
	out := c
	if out.PacingRatio <= 0 {
		out.PacingRatio = 2
	}
	if out.IterationSleep <= 0 {
		out.IterationSleep = 5 * time.Second
	}
	if out.MaxIterations <= 0 {
		out.MaxIterations = 1000
	}
	return out
}

// Manager owns campaign lifecycle transitions and the per-campaign
// scheduling loops. The web layer requests transitions through it and
// never touches campaign state directly.
type Manager struct {
	campaigns campaigns.Repository
	queue     *contacts.Queue
	pool      *agents.Pool
	ledger    StatsProvider
	connect   Connector
	trackers  TrackerFactory
	pub       events.Publisher
	cfg       Config
	log       *slog.Logger

	// Now is injectable for tests.
	Now func() time.Time

	mu   sync.Mutex
	runs map[string]*run
}

type run struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Deps groups the manager's collaborators for injection.
type Deps struct {
	Campaigns campaigns.Repository
	Contacts  *contacts.Queue
	Agents    *agents.Pool
	Ledger    StatsProvider
	Connect   Connector
	Trackers  TrackerFactory
	Events    events.Publisher
}

func NewManager(d Deps, cfg Config, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if d.Events == nil {
		d.Events = events.NewMemoryPublisher()
	}
	return &Manager{
		campaigns: d.Campaigns,
		queue:     d.Contacts,
		pool:      d.Agents,
		ledger:    d.Ledger,
		connect:   d.Connect,
		trackers:  d.Trackers,
		pub:       d.Events,
		cfg:       cfg.withDefaults(),
		log:       log,
		Now:       time.Now,
		runs:      map[string]*run{},
	}
}

// Start moves a campaign from pending/stopped/completed into running and
// spawns its loop. It is rejected when the campaign is already running,
// has no contacts at all, or has no uncalled contacts left.
func (m *Manager) Start(ctx context.Context, campaignID string) (campaigns.Campaign, error) {
	c, err := m.campaigns.Get(ctx, campaignID)
	if err != nil {
		return campaigns.Campaign{}, err
	}

	// Reserving the run entry before the precondition checks keeps
	// concurrent Start calls from each passing the guard and spawning
	// duplicate loops over the same contact queue.
	r, ok := m.reserve(campaignID)
	if !ok {
		return c, ErrAlreadyRunning
	}
	spawned := false
	defer func() {
		if !spawned {
			m.unreserve(campaignID, r)
		}
	}()
	if c.Status == campaigns.StatusRunning {
		return c, ErrAlreadyRunning
	}

	total, err := m.queue.CountTotal(ctx, campaignID)
	if err != nil {
		return c, err
	}
	if total == 0 {
		return c, ErrNoContacts
	}
	remaining, err := m.queue.CountRemaining(ctx, campaignID)
	if err != nil {
		return c, err
	}
	if remaining == 0 {
		return c, ErrAllCalled
	}

	now := m.Now()
	if err := m.transition(ctx, campaignID, campaigns.StatusRunning, &now, nil, true); err != nil {
		return c, err
	}
	m.spawn(campaignID, r)
	spawned = true

	m.log.Info("predictive dialer started", "campaign_id", campaignID, "remaining", remaining)
	return m.campaigns.Get(ctx, campaignID)
}

// Pause suspends a running campaign. The loop observes the transition
// within one iteration; in-flight calls keep being tracked.
func (m *Manager) Pause(ctx context.Context, campaignID string) (campaigns.Campaign, error) {
	c, err := m.campaigns.Get(ctx, campaignID)
	if err != nil {
		return campaigns.Campaign{}, err
	}
	if c.Status != campaigns.StatusRunning {
		return c, ErrNotRunning
	}
	if err := m.transition(ctx, campaignID, campaigns.StatusPaused, nil, nil, false); err != nil {
		return c, err
	}
	m.stopRun(campaignID)

	m.log.Info("predictive dialer paused", "campaign_id", campaignID)
	return m.campaigns.Get(ctx, campaignID)
}

// Resume re-enters the loop for a paused campaign.
func (m *Manager) Resume(ctx context.Context, campaignID string) (campaigns.Campaign, error) {
	c, err := m.campaigns.Get(ctx, campaignID)
	if err != nil {
		return campaigns.Campaign{}, err
	}
	if c.Status != campaigns.StatusPaused {
		return c, ErrNotPaused
	}
	r, ok := m.reserve(campaignID)
	if !ok {
		return c, ErrAlreadyRunning
	}
	if err := m.transition(ctx, campaignID, campaigns.StatusRunning, nil, nil, false); err != nil {
		m.unreserve(campaignID, r)
		return c, err
	}
	m.spawn(campaignID, r)

	m.log.Info("predictive dialer resumed", "campaign_id", campaignID)
	return m.campaigns.Get(ctx, campaignID)
}

// Stop terminates a running or paused campaign. In-flight calls are not
// hung up; they finish naturally and are tracked to finalization.
func (m *Manager) Stop(ctx context.Context, campaignID string) (campaigns.Campaign, error) {
	c, err := m.campaigns.Get(ctx, campaignID)
	if err != nil {
		return campaigns.Campaign{}, err
	}
	if c.Status != campaigns.StatusRunning && c.Status != campaigns.StatusPaused {
		return c, ErrNotStoppable
	}
	now := m.Now()
	if err := m.transition(ctx, campaignID, campaigns.StatusStopped, nil, &now, false); err != nil {
		return c, err
	}
	m.stopRun(campaignID)

	m.log.Info("predictive dialer stopped", "campaign_id", campaignID)
	return m.campaigns.Get(ctx, campaignID)
}

// Stats summarizes dialing progress for a campaign.
type Stats struct {
	TotalNumbers     int `json:"total_numbers"`
	CalledNumbers    int `json:"called_numbers"`
	RemainingNumbers int `json:"remaining_numbers"`

	TotalCalls    int `json:"total_calls"`
	AnsweredCalls int `json:"answered_calls"`
	FailedCalls   int `json:"failed_calls"`
	BusyCalls     int `json:"busy_calls"`
	NoAnswerCalls int `json:"no_answer_calls"`
}

// StatsProvider lets Status aggregate the call ledger without the
// manager owning the calls repository.
type StatsProvider interface {
	CountByStatus(ctx context.Context, campaignID string, status calls.CallStatus) (int, error)
	CountTotal(ctx context.Context, campaignID string) (int, error)
}

// Status returns the campaign and its live progress counters.
func (m *Manager) Status(ctx context.Context, campaignID string) (campaigns.Campaign, Stats, error) {
	c, err := m.campaigns.Get(ctx, campaignID)
	if err != nil {
		return campaigns.Campaign{}, Stats{}, err
	}

	var s Stats
	if s.TotalNumbers, err = m.queue.CountTotal(ctx, campaignID); err != nil {
		return c, Stats{}, err
	}
	if s.CalledNumbers, err = m.queue.CountCalled(ctx, campaignID); err != nil {
		return c, Stats{}, err
	}
	s.RemainingNumbers = s.TotalNumbers - s.CalledNumbers

	if s.TotalCalls, err = m.ledger.CountTotal(ctx, campaignID); err != nil {
		return c, Stats{}, err
	}
	if s.AnsweredCalls, err = m.ledger.CountByStatus(ctx, campaignID, calls.StatusAnswered); err != nil {
		return c, Stats{}, err
	}
	if s.FailedCalls, err = m.ledger.CountByStatus(ctx, campaignID, calls.StatusFailed); err != nil {
		return c, Stats{}, err
	}
	if s.BusyCalls, err = m.ledger.CountByStatus(ctx, campaignID, calls.StatusBusy); err != nil {
		return c, Stats{}, err
	}
	if s.NoAnswerCalls, err = m.ledger.CountByStatus(ctx, campaignID, calls.StatusNoAnswer); err != nil {
		return c, Stats{}, err
	}
	return c, s, nil
}

// StopAll cancels every active loop and waits for them to wind down.
// Used at process shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	active := make([]*run, 0, len(m.runs))
	for _, r := range m.runs {
		r.cancel()
		active = append(active, r)
	}
	m.mu.Unlock()

	for _, r := range active {
		<-r.done
	}
}

// reserve claims the run slot for a campaign. It fails when another run
// (or an in-flight Start) already holds the slot. A reservation that is
// not spawned must be released via unreserve.
func (m *Manager) reserve(campaignID string) (*run, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[campaignID]; ok {
		return nil, false
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &run{ctx: ctx, cancel: cancel, done: make(chan struct{})}
	m.runs[campaignID] = r
	return r, true
}

func (m *Manager) unreserve(campaignID string, r *run) {
	m.forget(campaignID, r)
	r.cancel()
	close(r.done)
}

func (m *Manager) spawn(campaignID string, r *run) {
	go func() {
		defer close(r.done)
		defer m.forget(campaignID, r)
		m.loop(r.ctx, campaignID)
	}()
}

func (m *Manager) stopRun(campaignID string) {
	m.mu.Lock()
	r, ok := m.runs[campaignID]
	if ok {
		delete(m.runs, campaignID)
	}
	m.mu.Unlock()
	if ok {
		r.cancel()
	}
}

func (m *Manager) forget(campaignID string, r *run) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs[campaignID] == r {
		delete(m.runs, campaignID)
	}
}

// transition persists a status change and broadcasts it.
func (m *Manager) transition(ctx context.Context, campaignID string, status campaigns.Status, startedAt, stoppedAt *time.Time, clearStopped bool) error {
	if err := m.campaigns.UpdateStatus(ctx, campaignID, status, startedAt, stoppedAt, clearStopped); err != nil {
		return err
	}
	if err := m.pub.CampaignStatusChanged(ctx, events.CampaignStatusEvent{
		CampaignID: campaignID,
		Status:     string(status),
		OccurredAt: m.Now(),
	}); err != nil {
		m.log.Warn("campaign status broadcast failed", "campaign_id", campaignID, "err", err)
	}
	return nil
}
