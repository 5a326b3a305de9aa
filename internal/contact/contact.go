// Package contact persists parsed contacts into the data store.
//
// Submission is an explicit step separate from ingestion: the ingest package
// produces candidates, the caller reviews them, then SubmitBatch writes the
// valid ones. Callers must serialize submissions per campaign themselves; the
// store offers no idempotency or locking on this path.
package contact

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"outreach/internal/campaign"
	"outreach/internal/ingest"
	"outreach/internal/store"
)

// Collection is the data store collection contacts live in.
const Collection = "contacts"

// SubmissionError wraps a data store failure during contact submission. Its
// user-facing wording calls out the duplicate-email cause because uniqueness
// violations are the most common reason inserts fail here.
type SubmissionError struct {
	Cause error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("contact submission failed (emails may already exist in this campaign): %v", e.Cause)
}

func (e *SubmissionError) Unwrap() error {
	return e.Cause
}

// Submitter writes contact batches for a campaign.
type Submitter struct {
	store     store.Store
	campaigns *campaign.Service
}

// NewSubmitter creates a Submitter.
func NewSubmitter(st store.Store, campaigns *campaign.Service) *Submitter {
	return &Submitter{store: st, campaigns: campaigns}
}

// SubmitBatch inserts the contacts for a campaign, then overwrites the
// campaign's total_contacts with the batch size.
//
// Optional fields are written as explicit NULLs, not omitted. The insert and
// the count update are two separate store calls: if the insert succeeds and
// the update fails, the stored count is stale until the next successful
// upload. That window is deliberate; see DESIGN.md.
func (s *Submitter) SubmitBatch(ctx context.Context, campaignID string, contacts []ingest.Contact) error {
	if len(contacts) == 0 {
		return &SubmissionError{Cause: fmt.Errorf("no valid contacts to submit")}
	}

	if _, err := s.campaigns.Get(ctx, campaignID); err != nil {
		return fmt.Errorf("submit contacts: %w", err)
	}

	rows := make([]store.Row, len(contacts))
	for i, c := range contacts {
		rows[i] = store.Row{
			"id":          uuid.New().String(),
			"campaign_id": campaignID,
			"email":       c.Email,
			"first_name":  nullable(c.FirstName),
			"last_name":   nullable(c.LastName),
			"company":     nullable(c.Company),
			"title":       nullable(c.Title),
		}
	}

	if err := s.store.InsertMany(ctx, Collection, rows); err != nil {
		return &SubmissionError{Cause: err}
	}

	if err := s.campaigns.SetTotalContacts(ctx, campaignID, len(contacts)); err != nil {
		return &SubmissionError{Cause: err}
	}

	return nil
}

// List returns all contacts for a campaign in insertion order.
func (s *Submitter) List(ctx context.Context, campaignID string) ([]store.Row, error) {
	rows, err := s.store.Select(ctx, Collection, store.Query{
		Filters: []store.Filter{store.Eq("campaign_id", campaignID)},
	})
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return rows, nil
}

// nullable maps the ingest package's empty-string-means-absent convention to
// an explicit NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
