package notify

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"outreach/internal/contact"
	"outreach/internal/ingest"
)

func TestForError_PatternTable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantTitle string
		wantIn    string // substring expected in the description
	}{
		{
			name:      "duplicate key mentions duplicates",
			err:       errors.New(`ERROR: duplicate key value violates unique constraint "contacts_campaign_id_email_key"`),
			wantTitle: "Upload failed",
			wantIn:    "already exist",
		},
		{
			name:      "connection refused",
			err:       errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"),
			wantTitle: "Service unavailable",
			wantIn:    "try again",
		},
		{
			name:      "timeout",
			err:       errors.New("query: timeout waiting for connection"),
			wantTitle: "Request timed out",
			wantIn:    "too long",
		},
		{
			name:      "unknown error falls back",
			err:       errors.New("some internal pointer panic detail"),
			wantTitle: "Something went wrong",
			wantIn:    "unexpected error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ForError(tt.err)
			if got.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", got.Title, tt.wantTitle)
			}
			if !strings.Contains(got.Description, tt.wantIn) {
				t.Errorf("Description = %q, want substring %q", got.Description, tt.wantIn)
			}
			if got.Severity != SeverityError {
				t.Errorf("Severity = %q, want error", got.Severity)
			}
		})
	}
}

func TestForError_IngestSentinels(t *testing.T) {
	tests := []struct {
		err       error
		wantTitle string
	}{
		{ingest.ErrUnsupportedFormat, "Unsupported file"},
		{ingest.ErrSpreadsheetUnsupported, "Excel not yet supported"},
		{ingest.ErrMissingEmailColumn, "Missing email column"},
		{&ingest.IngestError{Cause: errors.New("read: broken pipe")}, "Could not read file"},
	}

	for _, tt := range tests {
		t.Run(tt.wantTitle, func(t *testing.T) {
			got := ForError(tt.err)
			if got.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", got.Title, tt.wantTitle)
			}
		})
	}
}

func TestForError_SubmissionFailureAlwaysMentionsDuplicates(t *testing.T) {
	// The duplicate callout holds even when the cause was not a uniqueness
	// violation, e.g. the count update failing after a successful insert.
	tests := []struct {
		name string
		err  error
	}{
		{"connection dropped", &contact.SubmissionError{Cause: errors.New("connection reset by peer")}},
		{"wrapped submission error", fmt.Errorf("submit: %w", &contact.SubmissionError{Cause: errors.New("write: broken pipe")})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ForError(tt.err)
			if got.Title != "Upload failed" {
				t.Errorf("Title = %q, want Upload failed", got.Title)
			}
			if !strings.Contains(got.Description, "already exist") {
				t.Errorf("Description = %q, should mention possible duplicates", got.Description)
			}
		})
	}
}

func TestForError_GenericNeverLeaksCause(t *testing.T) {
	cause := "pq: relation \"secret_internal_table\" does not exist"
	got := ForError(fmt.Errorf("select: %s", cause))
	if strings.Contains(got.Description, "secret_internal_table") {
		t.Errorf("notification leaked technical detail: %q", got.Description)
	}
}

func TestForError_Nil(t *testing.T) {
	if got := ForError(nil); got != (Notification{}) {
		t.Errorf("ForError(nil) = %+v, want zero", got)
	}
}
