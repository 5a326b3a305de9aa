package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"outreach/internal/campaign"
	"outreach/internal/contact"
	"outreach/internal/ingest"
	"outreach/internal/logging"
	"outreach/internal/notify"
)

// handleListCampaigns returns all campaigns, newest first.
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.campaigns.List(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": campaigns})
}

type createCampaignRequest struct {
	Name string `json:"name"`
}

// handleCreateCampaign creates a new draft campaign.
func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := s.campaigns.Create(r.Context(), req.Name)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	logging.FromContext(r.Context()).Info("campaign created", "campaign_id", c.ID, "name", c.Name)
	writeJSON(w, http.StatusCreated, c)
}

// handleCampaignSelector returns the trimmed campaign list for picker UIs.
func (s *Server) handleCampaignSelector(w http.ResponseWriter, r *http.Request) {
	refs, err := s.campaigns.Selector(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": refs})
}

// handleGetCampaign returns one campaign by id.
func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := s.campaigns.Get(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type updateCampaignRequest struct {
	Name   string          `json:"name"`
	Status campaign.Status `json:"status"`
}

// handleUpdateCampaign renames a campaign and/or moves it through its
// lifecycle. Absent fields are left untouched.
func (s *Server) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var req updateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := s.campaigns.Update(r.Context(), chi.URLParam(r, "campaignID"), req.Name, req.Status)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleDeleteCampaign removes a campaign and its contacts.
func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "campaignID")
	if err := s.campaigns.Delete(r.Context(), id); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	logging.FromContext(r.Context()).Info("campaign deleted", "campaign_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type submitContactsRequest struct {
	Contacts []ingest.Contact `json:"contacts"`
}

// handleSubmitContacts persists reviewed contacts into a campaign and
// refreshes the campaign's contact count.
func (s *Server) handleSubmitContacts(w http.ResponseWriter, r *http.Request) {
	var req submitContactsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	campaignID := chi.URLParam(r, "campaignID")
	if err := s.contacts.SubmitBatch(r.Context(), campaignID, req.Contacts); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	logging.FromContext(r.Context()).Info("contacts submitted",
		"campaign_id", campaignID,
		"count", len(req.Contacts),
	)
	if s.sink != nil {
		s.sink.Notify(r.Context(), notify.Notification{
			Title:       "Contacts uploaded",
			Description: "The contact list was saved to the campaign.",
			Severity:    notify.SeveritySuccess,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"submitted":      len(req.Contacts),
		"total_contacts": len(req.Contacts),
	})
}

// handleStats returns dashboard-wide aggregates across all campaigns.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.campaigns.Aggregate(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// statusFor maps service errors to HTTP status codes. Anything that is not a
// missing campaign or a caller mistake is an infrastructure failure.
func statusFor(err error) int {
	var se *contact.SubmissionError
	switch {
	case errors.Is(err, campaign.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, campaign.ErrInvalidInput), errors.As(err, &se):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
