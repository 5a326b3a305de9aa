package campaign

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"outreach/internal/store"
)

// Service implements campaign operations over the data store.
type Service struct {
	store store.Store
}

// NewService creates a campaign service backed by the given store.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Create inserts a new draft campaign and returns it.
func (s *Service) Create(ctx context.Context, name string) (Campaign, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Campaign{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	c := Campaign{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    StatusDraft,
		CreatedAt: time.Now().UTC(),
	}

	err := s.store.InsertMany(ctx, Collection, []store.Row{{
		"id":             c.ID,
		"name":           c.Name,
		"status":         string(c.Status),
		"total_contacts": c.TotalContacts,
		"emails_sent":    c.EmailsSent,
		"opens":          c.Opens,
		"clicks":         c.Clicks,
		"unsubscribes":   c.Unsubscribes,
		"created_at":     c.CreatedAt,
	}})
	if err != nil {
		return Campaign{}, fmt.Errorf("create campaign: %w", err)
	}

	return c, nil
}

// List returns all campaigns ordered by creation time, newest first.
func (s *Service) List(ctx context.Context) ([]Campaign, error) {
	rows, err := s.store.Select(ctx, Collection, store.Query{
		OrderBy: []store.Order{{Column: "created_at", Desc: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}

	campaigns := make([]Campaign, 0, len(rows))
	for _, row := range rows {
		campaigns = append(campaigns, fromRow(row))
	}
	return campaigns, nil
}

// Selector returns the id/name/status projection used to populate the
// campaign picker, newest first.
func (s *Service) Selector(ctx context.Context) ([]Ref, error) {
	rows, err := s.store.Select(ctx, Collection, store.Query{
		Columns: []string{"id", "name", "status", "created_at"},
		OrderBy: []store.Order{{Column: "created_at", Desc: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}

	refs := make([]Ref, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, Ref{
			ID:     asString(row["id"]),
			Name:   asString(row["name"]),
			Status: Status(asString(row["status"])),
		})
	}
	return refs, nil
}

// Get returns one campaign by id.
func (s *Service) Get(ctx context.Context, id string) (Campaign, error) {
	rows, err := s.store.Select(ctx, Collection, store.Query{
		Filters: []store.Filter{store.Eq("id", id)},
		Limit:   1,
	})
	if err != nil {
		return Campaign{}, fmt.Errorf("get campaign: %w", err)
	}
	if len(rows) == 0 {
		return Campaign{}, ErrNotFound
	}
	return fromRow(rows[0]), nil
}

// Update changes a campaign's name and/or status. Empty fields are left
// untouched.
func (s *Service) Update(ctx context.Context, id string, name string, status Status) (Campaign, error) {
	set := store.Row{}
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		set["name"] = trimmed
	}
	if status != "" {
		if !ValidStatus(status) {
			return Campaign{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
		}
		set["status"] = string(status)
	}
	if len(set) == 0 {
		return s.Get(ctx, id)
	}

	n, err := s.store.UpdateByKey(ctx, Collection, "id", id, set)
	if err != nil {
		return Campaign{}, fmt.Errorf("update campaign: %w", err)
	}
	if n == 0 {
		return Campaign{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes a campaign and its contacts.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.store.DeleteByKey(ctx, "contacts", "campaign_id", id); err != nil {
		return fmt.Errorf("delete campaign contacts: %w", err)
	}

	n, err := s.store.DeleteByKey(ctx, Collection, "id", id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetTotalContacts overwrites the campaign's total_contacts counter with the
// size of the latest upload batch. Repeated uploads therefore replace the
// count rather than accumulate it; see DESIGN.md before changing this.
func (s *Service) SetTotalContacts(ctx context.Context, id string, total int) error {
	n, err := s.store.UpdateByKey(ctx, Collection, "id", id, store.Row{"total_contacts": total})
	if err != nil {
		return fmt.Errorf("update contact count: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Aggregate sums counters across all campaigns for the dashboard.
func (s *Service) Aggregate(ctx context.Context) (Stats, error) {
	campaigns, err := s.List(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Campaigns: len(campaigns),
		ByStatus:  make(map[Status]int),
	}
	for _, c := range campaigns {
		stats.TotalContacts += c.TotalContacts
		stats.EmailsSent += c.EmailsSent
		stats.Opens += c.Opens
		stats.Clicks += c.Clicks
		stats.Unsubscribes += c.Unsubscribes
		stats.ByStatus[c.Status]++
	}
	return stats, nil
}

// fromRow converts a store row into a Campaign, tolerating the integer and
// timestamp types different store bindings produce.
func fromRow(row store.Row) Campaign {
	return Campaign{
		ID:            asString(row["id"]),
		Name:          asString(row["name"]),
		Status:        Status(asString(row["status"])),
		TotalContacts: asInt(row["total_contacts"]),
		EmailsSent:    asInt(row["emails_sent"]),
		Opens:         asInt(row["opens"]),
		Clicks:        asInt(row["clicks"]),
		Unsubscribes:  asInt(row["unsubscribes"]),
		CreatedAt:     asTime(row["created_at"]),
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func asTime(v any) time.Time {
	if t, ok := v.(time.Time); ok {
		return t
	}
	return time.Time{}
}
