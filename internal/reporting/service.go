package reporting

import (
	"context"
	"sort"

	"dialer-platform/internal/calls"
	"dialer-platform/internal/campaigns"
	"dialer-platform/internal/contacts"
)

// recentLimit caps the call list embedded in a report.
const recentLimit = 50

type Service struct {
	campaigns campaigns.Repository
	queue     *contacts.Queue
	ledger    calls.Repository
}

func NewService(camps campaigns.Repository, queue *contacts.Queue, ledger calls.Repository) *Service {
	return &Service{campaigns: camps, queue: queue, ledger: ledger}
}

// CampaignReport builds the full report for one campaign. Returns
// campaigns.ErrNotFound for unknown ids.
func (s *Service) CampaignReport(ctx context.Context, campaignID string) (CampaignReport, error) {
	c, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		return CampaignReport{}, err
	}

	out := CampaignReport{Campaign: c}
	if out.TotalNumbers, err = s.queue.CountTotal(ctx, campaignID); err != nil {
		return CampaignReport{}, err
	}
	if out.CalledNumbers, err = s.queue.CountCalled(ctx, campaignID); err != nil {
		return CampaignReport{}, err
	}
	out.RemainingNumbers = out.TotalNumbers - out.CalledNumbers

	records, err := s.ledger.ListByCampaign(ctx, campaignID)
	if err != nil {
		return CampaignReport{}, err
	}

	finished := 0
	talkCalls := 0
	for _, rec := range records {
		out.TotalCalls++
		switch rec.Status {
		case calls.StatusAnswered:
			out.AnsweredCalls++
			out.TotalTalkSeconds += rec.DurationSeconds
			talkCalls++
		case calls.StatusNoAnswer:
			out.NoAnswerCalls++
		case calls.StatusBusy:
			out.BusyCalls++
		case calls.StatusFailed:
			out.FailedCalls++
		case calls.StatusRinging:
			out.RingingCalls++
		}
		if rec.Status.Terminal() {
			finished++
		}
	}
	if finished > 0 {
		out.AnswerRate = float64(out.AnsweredCalls) / float64(finished)
	}
	if talkCalls > 0 {
		out.AverageTalkSeconds = out.TotalTalkSeconds / talkCalls
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	if len(records) > recentLimit {
		records = records[:recentLimit]
	}
	out.RecentCalls = records
	return out, nil
}
