package contacts

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func seedQueue(n int) (*Queue, *MemoryRepo) {
	repo := NewMemoryRepo()
	for i := 0; i < n; i++ {
		repo.Add(Contact{
			ID:         fmt.Sprintf("c%02d", i),
			CampaignID: "camp",
			Phone:      fmt.Sprintf("+62812345%04d", i),
		})
	}
	return NewQueue(repo), repo
}

func TestQueue_NextBatchStableOrderAndLimit(t *testing.T) {
	q, _ := seedQueue(10)

	batch, err := q.NextBatch(context.Background(), "camp", 4)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(batch) != 4 {
		t.Fatalf("expected 4 contacts, got %d", len(batch))
	}
	for i, c := range batch {
		if want := fmt.Sprintf("c%02d", i); c.ID != want {
			t.Fatalf("expected %s at position %d, got %s", want, i, c.ID)
		}
	}
}

func TestQueue_NextBatchSkipsCalled(t *testing.T) {
	q, _ := seedQueue(3)
	if err := q.MarkCalled(context.Background(), "c00"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	batch, err := q.NextBatch(context.Background(), "camp", 10)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(batch) != 2 || batch[0].ID != "c01" {
		t.Fatalf("expected c01,c02, got %+v", batch)
	}
}

func TestQueue_UnmarkRestoresContact(t *testing.T) {
	q, _ := seedQueue(1)
	ctx := context.Background()
	if err := q.MarkCalled(ctx, "c00"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := q.UnmarkCalled(ctx, "c00"); err != nil {
		t.Fatalf("unmark: %v", err)
	}
	batch, err := q.NextBatch(ctx, "camp", 1)
	if err != nil || len(batch) != 1 {
		t.Fatalf("expected contact back in queue, got %v err=%v", batch, err)
	}
}

func TestQueue_Counts(t *testing.T) {
	q, _ := seedQueue(5)
	ctx := context.Background()
	_ = q.MarkCalled(ctx, "c00")
	_ = q.MarkCalled(ctx, "c01")

	total, _ := q.CountTotal(ctx, "camp")
	called, _ := q.CountCalled(ctx, "camp")
	remaining, _ := q.CountRemaining(ctx, "camp")
	if total != 5 || called != 2 || remaining != 3 {
		t.Fatalf("unexpected counts total=%d called=%d remaining=%d", total, called, remaining)
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0812-3456-7890", "+6281234567890"},
		{"+62 812 3456 7890", "+6281234567890"},
		{"006281234567890", "+6281234567890"},
		{"6281234567890", "+6281234567890"},
		{"81234567890", "+6281234567890"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := NormalizePhone(tc.in, "62"); got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestQueue_ImportNormalizesAndStores(t *testing.T) {
	repo := NewMemoryRepo()
	q := NewQueue(repo)
	ctx := context.Background()

	n, err := q.Import(ctx, "camp", "62", []Lead{
		{Name: "Budi", Phone: "0812-3456-7890"},
		{Name: "Sari", Phone: "+62 813 0000 1111"},
		{Name: "blank", Phone: "---"},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported %d contacts, want 2", n)
	}

	batch, err := q.NextBatch(ctx, "camp", 10)
	if err != nil {
		t.Fatalf("next batch: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("batch size %d, want 2", len(batch))
	}
	if batch[0].Phone != "+6281234567890" || batch[1].Phone != "+6281300001111" {
		t.Fatalf("phones not normalized: %q, %q", batch[0].Phone, batch[1].Phone)
	}
	if batch[0].ID == "" || batch[0].ID == batch[1].ID {
		t.Fatalf("import assigned bad ids: %q, %q", batch[0].ID, batch[1].ID)
	}
}

func TestQueue_ImportRejectsUnusableBatch(t *testing.T) {
	q := NewQueue(NewMemoryRepo())
	if _, err := q.Import(context.Background(), "camp", "62", []Lead{{Phone: "abc"}}); !errors.Is(err, ErrEmptyImport) {
		t.Fatalf("err = %v, want ErrEmptyImport", err)
	}
}
