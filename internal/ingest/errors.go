package ingest

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes callers are expected to branch on.
var (
	// ErrUnsupportedFormat means the file extension is not a format this
	// pipeline knows about at all.
	ErrUnsupportedFormat = errors.New("unsupported file format: upload a .csv file")

	// ErrSpreadsheetUnsupported means the file is a spreadsheet (.xlsx),
	// which the interface names but the pipeline does not parse yet.
	ErrSpreadsheetUnsupported = errors.New("spreadsheet files are not yet supported: upload a .csv file")

	// ErrMissingEmailColumn means no header cell matched the email keyword
	// set. Ingestion aborts whole; no partial results are produced.
	ErrMissingEmailColumn = errors.New("missing required column: no email-like header found")
)

// IngestError wraps an unexpected read or parse failure. The cause is kept
// for logging; users see a generic message.
type IngestError struct {
	Cause error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("file could not be processed: %v", e.Cause)
}

func (e *IngestError) Unwrap() error {
	return e.Cause
}

// WrapIngestFailure converts an arbitrary error into an *IngestError,
// passing through nil and the typed sentinels unchanged.
func WrapIngestFailure(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrSpreadsheetUnsupported) ||
		errors.Is(err, ErrMissingEmailColumn) {
		return err
	}
	var ie *IngestError
	if errors.As(err, &ie) {
		return err
	}
	return &IngestError{Cause: err}
}
