package contacts

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("contacts: contact not found")
	ErrEmptyImport = errors.New("contacts: no usable rows in import")
)

// Repository abstracts contact storage.
type Repository interface {
	NextBatch(ctx context.Context, campaignID string, limit int) ([]Contact, error)
	MarkCalled(ctx context.Context, id string) error
	UnmarkCalled(ctx context.Context, id string) error

	// Import stores a prepared batch atomically: either the whole list
	// lands or none of it does.
	Import(ctx context.Context, batch []Contact) error

	CountTotal(ctx context.Context, campaignID string) (int, error)
	CountCalled(ctx context.Context, campaignID string) (int, error)
}

// Queue yields uncalled contacts for dialing.
//
// Dispatch policy: the scheduler marks a contact called right before the
// origination attempt and unmarks it when the attempt fails, so a contact
// is attempted at most once per pass. A crash between mark and originate
// loses the contact to the external retry flow; that window is accepted
// over the double-dispatch risk of marking after the fact.
type Queue struct {
	repo Repository
}

func NewQueue(repo Repository) *Queue { return &Queue{repo: repo} }

// NextBatch returns up to limit uncalled contacts in insertion order. It
// does not mark them; claiming is a separate explicit step.
func (q *Queue) NextBatch(ctx context.Context, campaignID string, limit int) ([]Contact, error) {
	if limit <= 0 {
		return nil, nil
	}
	return q.repo.NextBatch(ctx, campaignID, limit)
}

func (q *Queue) MarkCalled(ctx context.Context, id string) error {
	return q.repo.MarkCalled(ctx, id)
}

func (q *Queue) UnmarkCalled(ctx context.Context, id string) error {
	return q.repo.UnmarkCalled(ctx, id)
}

func (q *Queue) CountTotal(ctx context.Context, campaignID string) (int, error) {
	return q.repo.CountTotal(ctx, campaignID)
}

func (q *Queue) CountCalled(ctx context.Context, campaignID string) (int, error) {
	return q.repo.CountCalled(ctx, campaignID)
}

// Lead is one row of an uploaded contact list.
type Lead struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Metadata string `json:"metadata"`
	Notes    string `json:"notes"`
}

// Import normalizes and stores an uploaded lead list for a campaign.
// Rows without a usable phone number are dropped. Returns the number of
// contacts stored.
func (q *Queue) Import(ctx context.Context, campaignID, countryCode string, leads []Lead) (int, error) {
	batch := make([]Contact, 0, len(leads))
	for _, l := range leads {
		phone := NormalizePhone(l.Phone, countryCode)
		if phone == "" {
			continue
		}
		batch = append(batch, Contact{
			ID:         uuid.NewString(),
			CampaignID: campaignID,
			Name:       l.Name,
			Phone:      phone,
			Metadata:   l.Metadata,
			Notes:      l.Notes,
		})
	}
	if len(batch) == 0 {
		return 0, ErrEmptyImport
	}
	if err := q.repo.Import(ctx, batch); err != nil {
		return 0, err
	}
	return len(batch), nil
}

func (q *Queue) CountRemaining(ctx context.Context, campaignID string) (int, error) {
	total, err := q.repo.CountTotal(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	called, err := q.repo.CountCalled(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	return total - called, nil
}

// NormalizePhone reduces a phone number to a single international
// representation: separators stripped, "00" and bare local prefixes
// rewritten to "+<countryCode>...".
func NormalizePhone(phone, countryCode string) string {
	var b strings.Builder
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	p := b.String()
	switch {
	case p == "":
		return ""
	case strings.HasPrefix(p, "+"):
		return p
	case strings.HasPrefix(p, "00"):
		return "+" + p[2:]
	case strings.HasPrefix(p, "0"):
		return "+" + countryCode + p[1:]
	case strings.HasPrefix(p, countryCode):
		return "+" + p
	default:
		return "+" + countryCode + p
	}
}
