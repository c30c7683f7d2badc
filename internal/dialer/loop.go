package dialer

import (
	"context"
	"log/slog"
	"time"

	"dialer-platform/internal/agents"
	"dialer-platform/internal/campaigns"
	"dialer-platform/internal/events"
)

// loop is one campaign's scheduling run. It owns a private PBX session
// for its whole lifetime; a connect failure aborts the run and forces
// the campaign to stopped so an operator notices and restarts it.
func (m *Manager) loop(ctx context.Context, campaignID string) {
	log := m.log.With("campaign_id", campaignID)

	pbx, err := m.connect(ctx)
	if err != nil {
		log.Error("PBX connect failed, aborting campaign", "err", err)
		m.abort(campaignID)
		return
	}
	defer pbx.Close()

	tracker := m.trackers(pbx)

	for i := 0; i < m.cfg.MaxIterations; i++ {
		select {
		case <-ctx.Done():
			log.Info("dialing loop cancelled")
			return
		default:
		}

		// Fresh read: an external stop/pause may have flipped the flag
		// between iterations.
		c, err := m.campaigns.Get(ctx, campaignID)
		if err != nil {
			log.Error("campaign reload failed", "err", err)
			if !m.sleep(ctx) {
				return
			}
			continue
		}
		if !c.IsActive {
			log.Info("campaign no longer active, exiting loop", "status", c.Status)
			return
		}

		done, err := m.iterate(ctx, c, tracker, log)
		if err != nil {
			// Per-iteration errors are logged and retried; only connect
			// failures abort a run.
			log.Error("dialing iteration failed", "err", err)
		}
		if done {
			return
		}
		if !m.sleep(ctx) {
			return
		}
	}

	log.Warn("iteration ceiling reached, stopping campaign", "max_iterations", m.cfg.MaxIterations)
	m.abort(campaignID)
}

// iterate performs one scheduling pass. It returns done=true when the
// campaign ran out of contacts and was completed.
func (m *Manager) iterate(ctx context.Context, c campaigns.Campaign, tracker Dispatcher, log *slog.Logger) (bool, error) {
	idle, err := m.pool.ListIdle(ctx)
	if err != nil {
		return false, err
	}
	if len(idle) == 0 {
		log.Info("no idle agents available")
		return false, nil
	}

	ratio := c.PacingRatio
	if ratio <= 0 {
		ratio = m.cfg.PacingRatio
	}

	batch, err := m.queue.NextBatch(ctx, c.ID, len(idle)*ratio)
	if err != nil {
		return false, err
	}
	if len(batch) == 0 {
		log.Info("no more numbers to call, campaign completed")
		if err := m.transition(ctx, c.ID, campaigns.StatusCompleted, nil, nil, false); err != nil {
			log.Error("completion transition failed", "err", err)
		}
		return true, nil
	}

	next := 0
	for _, contact := range batch {
		agent, ok := m.claimNext(ctx, idle, &next)
		if !ok {
			// Out of agents mid-batch: the rest of the batch was never
			// marked and is picked up next iteration.
			break
		}

		// Eager mark: the contact is attempted at most once per pass;
		// a failed origination rolls it back below.
		if err := m.queue.MarkCalled(ctx, contact.ID); err != nil {
			log.Error("contact mark failed", "contact_id", contact.ID, "err", err)
			m.releaseAgent(ctx, agent.ID, log)
			continue
		}

		callID, accepted, err := tracker.Dispatch(ctx, c.ID, contact, agent)
		if err != nil || !accepted {
			// The tracker already released the agent and closed any
			// record; restoring the contact completes the rollback.
			log.Warn("origination failed, rolling back contact",
				"contact_id", contact.ID, "call_id", callID, "err", err)
			if uerr := m.queue.UnmarkCalled(ctx, contact.ID); uerr != nil {
				log.Error("contact rollback failed", "contact_id", contact.ID, "err", uerr)
			}
			continue
		}

		if perr := m.pub.CallRouted(ctx, events.CallRoutedEvent{
			CampaignID: c.ID,
			CallID:     callID,
			AgentID:    agent.ID,
			ContactID:  contact.ID,
			OccurredAt: m.Now(),
		}); perr != nil {
			log.Warn("call routed broadcast failed", "call_id", callID, "err", perr)
		}
	}
	return false, nil
}

// claimNext walks the idle snapshot from position *next and returns the
// first agent whose claim succeeds. A lost claim race is contention,
// not an error; the loop just tries the next candidate.
func (m *Manager) claimNext(ctx context.Context, idle []agents.Agent, next *int) (agents.Agent, bool) {
	for *next < len(idle) {
		candidate := idle[*next]
		*next++
		ok, err := m.pool.Claim(ctx, candidate.ID)
		if err != nil {
			m.log.Error("agent claim failed", "agent_id", candidate.ID, "err", err)
			continue
		}
		if ok {
			return candidate, true
		}
	}
	return agents.Agent{}, false
}

func (m *Manager) releaseAgent(ctx context.Context, agentID string, log *slog.Logger) {
	if err := m.pool.Release(ctx, agentID); err != nil {
		log.Error("agent release failed", "agent_id", agentID, "err", err)
	}
}

// abort forces a campaign to stopped after an unrecoverable run error.
func (m *Manager) abort(campaignID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	now := m.Now()
	if err := m.transition(ctx, campaignID, campaigns.StatusStopped, nil, &now, false); err != nil {
		m.log.Error("campaign abort transition failed", "campaign_id", campaignID, "err", err)
	}
}

// sleep pauses between iterations; false means the run was cancelled.
func (m *Manager) sleep(ctx context.Context) bool {
	t := time.NewTimer(m.cfg.IterationSleep)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
