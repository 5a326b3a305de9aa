package notify

// messages.go maps technical errors to the notification users actually see.
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so more specific patterns sit before general ones. Anything
// unmatched falls back to a generic message while the original error is
// logged server-side, never shown verbatim.

import (
	"errors"
	"strings"

	"outreach/internal/contact"
	"outreach/internal/ingest"
)

// errorPattern pairs a substring of a technical error with the notification
// to send for it.
type errorPattern struct {
	pattern string
	n       Notification
}

// submissionFailed is the notification for any failed contact submission,
// whether the insert or the follow-up count update broke. It always names
// the duplicate-email cause since that is what users can act on.
var submissionFailed = Notification{
	Title:       "Upload failed",
	Description: "Some contacts could not be saved. One or more emails may already exist in this campaign.",
	Severity:    SeverityError,
}

var errorPatterns = []errorPattern{
	// Uniqueness violations on the contacts table are the common case for
	// submission failures: the same address uploaded twice for one campaign.
	{pattern: "duplicate key", n: submissionFailed},
	{pattern: "unique constraint", n: submissionFailed},
	{pattern: "violates unique", n: submissionFailed},
	{
		pattern: "connection refused",
		n: Notification{
			Title:       "Service unavailable",
			Description: "Could not reach the data store. Please try again in a few moments.",
			Severity:    SeverityError,
		},
	},
	{
		pattern: "timeout",
		n: Notification{
			Title:       "Request timed out",
			Description: "The operation took too long. Please try again.",
			Severity:    SeverityError,
		},
	},
	{
		pattern: "context canceled",
		n: Notification{
			Title:       "Request cancelled",
			Description: "The request was cancelled before it finished.",
			Severity:    SeverityError,
		},
	},
}

var defaultNotification = Notification{
	Title:       "Something went wrong",
	Description: "An unexpected error occurred. Please try again.",
	Severity:    SeverityError,
}

// ForError converts a technical error into the notification shown to the
// user. The ingest sentinels and the contact submission wrapper carry their
// own user-safe wording; everything else goes through the pattern table.
func ForError(err error) Notification {
	if err == nil {
		return Notification{}
	}

	switch {
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		return Notification{
			Title:       "Unsupported file",
			Description: "Please upload a CSV file.",
			Severity:    SeverityError,
		}
	case errors.Is(err, ingest.ErrSpreadsheetUnsupported):
		return Notification{
			Title:       "Excel not yet supported",
			Description: "Spreadsheet uploads are coming soon. Please upload a CSV file for now.",
			Severity:    SeverityError,
		}
	case errors.Is(err, ingest.ErrMissingEmailColumn):
		return Notification{
			Title:       "Missing email column",
			Description: "The file needs a header row with an email column.",
			Severity:    SeverityError,
		}
	}

	var ie *ingest.IngestError
	if errors.As(err, &ie) {
		return Notification{
			Title:       "Could not read file",
			Description: "The file could not be processed. Check that it is a valid CSV and try again.",
			Severity:    SeverityError,
		}
	}

	// Any submission failure keeps the duplicate callout, even when the
	// underlying cause was something else (a dropped connection on the count
	// update, say); the pattern table below only catches Postgres wording.
	var se *contact.SubmissionError
	if errors.As(err, &se) {
		return submissionFailed
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.n
		}
	}

	return defaultNotification
}
