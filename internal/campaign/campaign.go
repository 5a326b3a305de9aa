// Package campaign provides campaign CRUD and dashboard aggregation over the
// generic data store.
package campaign

import (
	"fmt"
	"time"
)

// Collection is the data store collection campaigns live in.
const Collection = "campaigns"

// Status is a campaign's lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusActive, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// Campaign is a named outbound email effort with aggregate counters. Sending,
// scheduling, and delivery tracking happen outside this service; the counters
// here are what external collaborators report back.
type Campaign struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Status        Status    `json:"status"`
	TotalContacts int       `json:"total_contacts"`
	EmailsSent    int       `json:"emails_sent"`
	Opens         int       `json:"opens"`
	Clicks        int       `json:"clicks"`
	Unsubscribes  int       `json:"unsubscribes"`
	CreatedAt     time.Time `json:"created_at"`
}

// Ref is the trimmed campaign shape used by selection UIs.
type Ref struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status"`
}

// Stats aggregates counters across all campaigns for the dashboard.
type Stats struct {
	Campaigns     int            `json:"campaigns"`
	TotalContacts int            `json:"total_contacts"`
	EmailsSent    int            `json:"emails_sent"`
	Opens         int            `json:"opens"`
	Clicks        int            `json:"clicks"`
	Unsubscribes  int            `json:"unsubscribes"`
	ByStatus      map[Status]int `json:"by_status"`
}

// ErrNotFound is returned when a campaign id does not exist.
var ErrNotFound = fmt.Errorf("campaign not found")

// ErrInvalidInput is returned when a create or update carries an unusable
// field value, as opposed to a data store failure.
var ErrInvalidInput = fmt.Errorf("invalid campaign input")
