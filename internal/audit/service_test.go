package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresType(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if err := svc.Append(context.Background(), Event{CampaignID: "camp"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_LogCommandAppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogCommand(context.Background(), EventTypeDialerStarted, "camp", "ops", "1.2.3.4", "started"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("event not stamped: %+v", evs[0])
	}
	if evs[0].IPAddress != "1.2.3.4" || evs[0].Type != EventTypeDialerStarted {
		t.Fatalf("event fields: %+v", evs[0])
	}
}

func TestService_TrailFiltersByCampaign(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_ = svc.LogCommand(ctx, EventTypeDialerStarted, "a", "", "", "")
	_ = svc.LogCommand(ctx, EventTypeDialerStopped, "a", "", "", "")
	_ = svc.LogCommand(ctx, EventTypeDialerStarted, "b", "", "", "")

	trail, err := svc.Trail(ctx, "a")
	if err != nil {
		t.Fatalf("trail: %v", err)
	}
	if len(trail) != 2 || trail[0].Type != EventTypeDialerStarted || trail[1].Type != EventTypeDialerStopped {
		t.Fatalf("trail = %+v", trail)
	}
}
