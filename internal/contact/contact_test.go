package contact

import (
	"context"
	"errors"
	"strings"
	"testing"

	"outreach/internal/campaign"
	"outreach/internal/ingest"
	"outreach/internal/store"
)

func newFixture(t *testing.T) (*store.Memory, *campaign.Service, *Submitter, campaign.Campaign) {
	t.Helper()
	mem := store.NewMemory()
	campaigns := campaign.NewService(mem)
	c, err := campaigns.Create(context.Background(), "fixture")
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return mem, campaigns, NewSubmitter(mem, campaigns), c
}

func TestSubmitBatch_InsertsAndOverwritesCount(t *testing.T) {
	mem, campaigns, sub, c := newFixture(t)
	ctx := context.Background()

	err := sub.SubmitBatch(ctx, c.ID, []ingest.Contact{
		{Email: "a@b.com", FirstName: "Alice", Company: "Acme"},
		{Email: "c@d.com"},
	})
	if err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}

	if mem.Len(Collection) != 2 {
		t.Errorf("stored contacts = %d, want 2", mem.Len(Collection))
	}

	got, _ := campaigns.Get(ctx, c.ID)
	if got.TotalContacts != 2 {
		t.Errorf("TotalContacts = %d, want 2", got.TotalContacts)
	}

	// Second batch overwrites rather than increments the counter.
	if err := sub.SubmitBatch(ctx, c.ID, []ingest.Contact{{Email: "e@f.com"}}); err != nil {
		t.Fatalf("second SubmitBatch() error = %v", err)
	}
	got, _ = campaigns.Get(ctx, c.ID)
	if got.TotalContacts != 1 {
		t.Errorf("TotalContacts = %d, want 1 (overwrite semantics)", got.TotalContacts)
	}
}

func TestSubmitBatch_ExplicitNulls(t *testing.T) {
	_, _, sub, c := newFixture(t)
	ctx := context.Background()

	if err := sub.SubmitBatch(ctx, c.ID, []ingest.Contact{{Email: "a@b.com"}}); err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}

	rows, err := sub.List(ctx, c.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	row := rows[0]
	for _, col := range []string{"first_name", "last_name", "company", "title"} {
		v, present := row[col]
		if !present {
			t.Errorf("column %q omitted, want explicit null", col)
		}
		if v != nil {
			t.Errorf("column %q = %v, want nil", col, v)
		}
	}
	if row["email"] != "a@b.com" {
		t.Errorf("email = %v, want a@b.com", row["email"])
	}
}

func TestSubmitBatch_DuplicateInsertFails(t *testing.T) {
	mem, campaigns, sub, c := newFixture(t)
	ctx := context.Background()

	mem.FailInsert = errors.New(`duplicate key value violates unique constraint "contacts_campaign_id_email_key"`)

	err := sub.SubmitBatch(ctx, c.ID, []ingest.Contact{{Email: "a@b.com"}})
	var se *SubmissionError
	if !errors.As(err, &se) {
		t.Fatalf("SubmitBatch() error = %v, want *SubmissionError", err)
	}
	if !strings.Contains(err.Error(), "already exist") {
		t.Errorf("error should mention possible duplicates: %v", err)
	}

	// Nothing was inserted and the count is untouched.
	if mem.Len(Collection) != 0 {
		t.Errorf("stored contacts = %d, want 0", mem.Len(Collection))
	}
	got, _ := campaigns.Get(ctx, c.ID)
	if got.TotalContacts != 0 {
		t.Errorf("TotalContacts = %d, want 0", got.TotalContacts)
	}
}

func TestSubmitBatch_CountUpdateFailureLeavesInsertedRows(t *testing.T) {
	mem, _, sub, c := newFixture(t)
	ctx := context.Background()

	mem.FailUpdate = errors.New("connection reset by peer")

	err := sub.SubmitBatch(ctx, c.ID, []ingest.Contact{{Email: "a@b.com"}})
	var se *SubmissionError
	if !errors.As(err, &se) {
		t.Fatalf("SubmitBatch() error = %v, want *SubmissionError", err)
	}

	// Known inconsistency window: the insert is not rolled back when the
	// count update fails.
	if mem.Len(Collection) != 1 {
		t.Errorf("stored contacts = %d, want 1", mem.Len(Collection))
	}
}

func TestSubmitBatch_UnknownCampaign(t *testing.T) {
	_, _, sub, _ := newFixture(t)

	err := sub.SubmitBatch(context.Background(), "missing", []ingest.Contact{{Email: "a@b.com"}})
	if !errors.Is(err, campaign.ErrNotFound) {
		t.Errorf("SubmitBatch() error = %v, want ErrNotFound", err)
	}
}

func TestSubmitBatch_EmptyBatch(t *testing.T) {
	_, _, sub, c := newFixture(t)

	err := sub.SubmitBatch(context.Background(), c.ID, nil)
	var se *SubmissionError
	if !errors.As(err, &se) {
		t.Errorf("SubmitBatch(empty) error = %v, want *SubmissionError", err)
	}
}
