package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"outreach/internal/ingest"
	"outreach/internal/logging"
	"outreach/internal/upload"
)

// handleStartImport accepts a contact file and starts parsing it in the
// background. Unsupported formats are rejected before the import is
// acknowledged.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, ingest.WrapIngestFailure(err), http.StatusBadRequest)
		return
	}

	importID, err := s.imports.Start(r.Context(), header.Filename, string(data))
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, upload.ErrTooManyImports) {
			status = http.StatusTooManyRequests
		}
		s.respondError(w, r, err, status)
		return
	}

	logging.FromContext(r.Context()).Info("import started",
		"import_id", importID,
		"file", header.Filename,
		"size", header.Size,
	)
	writeJSON(w, http.StatusAccepted, map[string]string{"import_id": importID})
}

// handleImportProgress streams import progress via Server-Sent Events.
// Supports resumption via the lastEventId query parameter: the event ID is
// the progress percentage, so reconnecting clients skip already-seen events.
func (s *Server) handleImportProgress(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")

	progressCh, err := s.imports.SubscribeProgress(importID)
	if err != nil {
		writeError(w, http.StatusNotFound, "import not found")
		return
	}

	lastEventIDStr := r.URL.Query().Get("lastEventId")
	var lastEventID int
	if lastEventIDStr != "" {
		lastEventID, _ = strconv.Atoi(lastEventIDStr)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				// Channel closed, the import is done
				fmt.Fprintf(w, "event: complete\ndata: {}\n\n")
				flusher.Flush()
				return
			}

			currentPercent := int(progress.Percent)
			if lastEventIDStr != "" && currentPercent <= lastEventID {
				continue
			}

			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", currentPercent, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// importResultResponse summarizes a finished import. Preview carries only
// the first few valid rows for the review table; Valid is the full list the
// client submits back once the user confirms.
type importResultResponse struct {
	ValidCount   int              `json:"valid_count"`
	InvalidCount int              `json:"invalid_count"`
	Skipped      int              `json:"skipped"`
	Preview      []ingest.Contact `json:"preview"`
	Valid        []ingest.Contact `json:"valid"`
	Invalid      []ingest.Contact `json:"invalid"`
}

// handleImportResult blocks until the import finishes and returns the
// partitioned contacts.
func (s *Server) handleImportResult(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")

	result, err := s.imports.Result(importID)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, importResultResponse{
		ValidCount:   len(result.Valid),
		InvalidCount: len(result.Invalid),
		Skipped:      result.Skipped,
		Preview:      capContacts(result.Valid, s.cfg.Upload.PreviewRows),
		Valid:        emptyIfNil(result.Valid),
		Invalid:      emptyIfNil(result.Invalid),
	})
}

// capContacts returns at most n contacts, never nil so the JSON field stays
// an array.
func capContacts(contacts []ingest.Contact, n int) []ingest.Contact {
	if len(contacts) > n {
		contacts = contacts[:n]
	}
	return emptyIfNil(contacts)
}

func emptyIfNil(contacts []ingest.Contact) []ingest.Contact {
	if contacts == nil {
		return []ingest.Contact{}
	}
	return contacts
}
