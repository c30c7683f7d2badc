package calls

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"dialer-platform/internal/agents"
	"dialer-platform/internal/ami"
	"dialer-platform/internal/callerid"
	"dialer-platform/internal/contacts"

	"github.com/google/uuid"
)

// callIDVariable is the channel variable used to correlate PBX channels
// back to call records.
const callIDVariable = "CALL_ID"

// PBXClient is the slice of the AMI client the tracker depends on.
type PBXClient interface {
	Originate(ctx context.Context, req ami.OriginateRequest) (bool, error)
	ActiveChannels(ctx context.Context, vars ...string) ([]map[string]string, error)
}

// TrackerConfig tunes origination and call monitoring.
type TrackerConfig struct {
	TrunkPrefix      string
	Context          string
	OriginateTimeout time.Duration
	CallerIDName     string

	// PollInterval and MaxPolls bound the monitoring task. A call still
	// visible after MaxPolls polls is finalized as failed so monitoring
	// always terminates.
	PollInterval time.Duration
	MaxPolls     int
}

func (c TrackerConfig) withDefaults() TrackerConfig {
	out := c
	if out.OriginateTimeout <= 0 {
		out.OriginateTimeout = 30 * time.Second
	}
	if out.PollInterval <= 0 {
		out.PollInterval = 10 * time.Second
	}
	if out.MaxPolls <= 0 {
		out.MaxPolls = 30
	}
	return out
}

// Tracker owns a call record's journey from ringing to a terminal
// status. Whatever happens, the claimed agent is released when the call
// resolves; an agent must never be stranded busy.
type Tracker struct {
	repo    Repository
	pbx     PBXClient
	pool    *agents.Pool
	picker  *callerid.Picker
	limiter Limiter
	cfg     TrackerConfig
	log     *slog.Logger

	// Now is injectable for duration classification tests.
	Now func() time.Time

	wg sync.WaitGroup
}

func NewTracker(repo Repository, pbx PBXClient, pool *agents.Pool, picker *callerid.Picker, cfg TrackerConfig, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{
		repo:   repo,
		pbx:    pbx,
		pool:   pool,
		picker: picker,
		cfg:    cfg.withDefaults(),
		log:    log,
		Now:    time.Now,
	}
}

// SetLimiter installs an active-call cap. A nil limiter (the default)
// means unlimited concurrent calls.
func (t *Tracker) SetLimiter(l Limiter) { t.limiter = l }

// Dispatch originates a call pairing contact and agent. The agent must
// already be claimed by the caller; from here on the tracker owns its
// release. The returned bool reports whether the PBX accepted the
// origination. When it did not, the call record (if created) is already
// finalized as failed and the agent is already idle again; the caller
// only has to roll back the contact mark.
func (t *Tracker) Dispatch(ctx context.Context, campaignID string, contact contacts.Contact, agent agents.Agent) (string, bool, error) {
	if t.limiter != nil {
		ok, err := t.limiter.Acquire(ctx, campaignID)
		if err != nil {
			t.releaseAgent(agent.ID)
			return "", false, err
		}
		if !ok {
			t.log.Info("active-call cap reached, dispatch skipped", "campaign_id", campaignID)
			t.releaseAgent(agent.ID)
			return "", false, nil
		}
	}

	cid, err := t.picker.Pick(ctx)
	if err != nil {
		// No record yet; hand back the agent and the slot.
		t.releaseSlot(campaignID)
		t.releaseAgent(agent.ID)
		return "", false, err
	}

	rec := CallRecord{
		ID:         uuid.NewString(),
		CampaignID: campaignID,
		ContactID:  contact.ID,
		AgentID:    agent.ID,
		CallerID:   cid.ID,
		Status:     StatusRinging,
		StartedAt:  t.Now(),
	}
	if err := t.repo.Create(ctx, rec); err != nil {
		t.releaseSlot(campaignID)
		t.releaseAgent(agent.ID)
		return "", false, err
	}

	req := ami.OriginateRequest{
		Channel:  t.cfg.TrunkPrefix + strings.TrimPrefix(contact.Phone, "+"),
		Context:  t.cfg.Context,
		Exten:    agent.Extension,
		Priority: "1",
		Timeout:  t.cfg.OriginateTimeout,
		CallerID: t.cfg.CallerIDName + " <" + cid.Number + ">",
		Variables: map[string]string{
			callIDVariable:   rec.ID,
			"CAMPAIGN_ID":    campaignID,
			"CUSTOMER_NAME":  contact.Name,
			"CUSTOMER_PHONE": contact.Phone,
			"AGENT_ID":       agent.ID,
			"CALLERID(num)":  cid.Number,
		},
	}

	accepted, err := t.pbx.Originate(ctx, req)
	if err != nil || !accepted {
		t.finalize(campaignID, rec.ID, agent.ID, StatusFailed, 0, "origination rejected by PBX")
		return rec.ID, false, err
	}

	t.wg.Add(1)
	go t.monitor(campaignID, rec.ID, agent.ID, rec.StartedAt)

	t.log.Info("call dispatched",
		"call_id", rec.ID,
		"campaign_id", campaignID,
		"agent_id", agent.ID,
		"contact_id", contact.ID,
		"channel", req.Channel)
	return rec.ID, true, nil
}

// monitor polls the PBX until the call's channel disappears, then
// finalizes. It runs detached from the scheduling loop: a campaign stop
// does not hang up in-flight calls, they are tracked to resolution.
func (t *Tracker) monitor(campaignID, callID, agentID string, startedAt time.Time) {
	defer t.wg.Done()

	marker := callIDVariable + "=" + callID
	for i := 0; i < t.cfg.MaxPolls; i++ {
		time.Sleep(t.cfg.PollInterval)

		elapsed := t.Now().Sub(startedAt)
		channels, err := t.pbx.ActiveChannels(context.Background(), callIDVariable)
		if err != nil {
			t.log.Error("call status poll failed", "call_id", callID, "err", err)
			t.finalize(campaignID, callID, agentID, StatusFailed, int(elapsed.Seconds()), "status poll failed")
			return
		}
		if !channelPresent(channels, marker) {
			t.finalize(campaignID, callID, agentID, ClassifyByDuration(elapsed), int(elapsed.Seconds()), "")
			return
		}
	}

	t.log.Warn("call monitor ceiling reached", "call_id", callID, "polls", t.cfg.MaxPolls)
	t.finalize(campaignID, callID, agentID, StatusFailed, int(t.Now().Sub(startedAt).Seconds()), "monitor ceiling reached")
}

// finalize closes the record, returns the call slot, and releases the
// agent. The releases happen unconditionally, even when the record
// update fails.
func (t *Tracker) finalize(campaignID, callID, agentID string, status CallStatus, duration int, notes string) {
	defer t.releaseAgent(agentID)
	defer t.releaseSlot(campaignID)

	endedAt := t.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.repo.Finalize(ctx, callID, status, endedAt, duration, notes); err != nil {
		t.log.Error("call record finalize failed", "call_id", callID, "status", status, "err", err)
		return
	}
	t.log.Info("call finalized", "call_id", callID, "status", status, "duration_s", duration)
}

func (t *Tracker) releaseSlot(campaignID string) {
	if t.limiter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.limiter.Release(ctx, campaignID); err != nil {
		t.log.Error("call slot release failed", "campaign_id", campaignID, "err", err)
	}
}

func (t *Tracker) releaseAgent(agentID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.pool.Release(ctx, agentID); err != nil {
		t.log.Error("agent release failed", "agent_id", agentID, "err", err)
	}
}

// Wait blocks until every monitoring task has finished. Used by tests
// and graceful shutdown.
func (t *Tracker) Wait() { t.wg.Wait() }

func channelPresent(channels []map[string]string, marker string) bool {
	for _, ch := range channels {
		if strings.Contains(ch["Variable"], marker) {
			return true
		}
	}
	return false
}
