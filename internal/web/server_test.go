package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"outreach/internal/campaign"
	"outreach/internal/config"
	"outreach/internal/contact"
	"outreach/internal/notify"
	"outreach/internal/store"
	"outreach/internal/upload"
)

const testPassword = "correct horse"

func newTestServer(t *testing.T) (*Server, *store.Memory, *notify.Recorder) {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           0,
			RequestTimeout: 30 * time.Second,
		},
		Upload: config.UploadConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			Retention:     time.Minute,
			PreviewRows:   5,
		},
		Auth: config.AuthConfig{Password: testPassword, SessionTTL: time.Hour},
		Rate: config.RateLimitConfig{Enabled: false},
	}

	mem := store.NewMemory()
	campaigns := campaign.NewService(mem)
	contacts := contact.NewSubmitter(mem, campaigns)
	imports := upload.NewManager(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime, cfg.Upload.Retention)
	rec := &notify.Recorder{}

	return NewServer(cfg, campaigns, contacts, imports, rec), mem, rec
}

// doJSON performs an authenticated JSON request against the router.
func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Dashboard-Key", testPassword)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, w.Body.String())
	}
	return v
}

func TestLogin(t *testing.T) {
	s, _, _ := newTestServer(t)

	t.Run("correct password sets session cookie", func(t *testing.T) {
		body := strings.NewReader(`{"password":"correct horse"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/login", body)
		w := httptest.NewRecorder()
		s.Router().ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
		}

		cookies := w.Result().Cookies()
		var found *http.Cookie
		for _, c := range cookies {
			if c.Name == "dashboard_session" {
				found = c
			}
		}
		if found == nil {
			t.Fatal("no session cookie set")
		}
		if !found.HttpOnly {
			t.Error("session cookie should be HttpOnly")
		}

		// The cookie authenticates subsequent requests.
		req = httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		req.AddCookie(found)
		w = httptest.NewRecorder()
		s.Router().ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("authenticated request status = %d, want 200", w.Code)
		}
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		body := strings.NewReader(`{"password":"wrong"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/login", body)
		w := httptest.NewRecorder()
		s.Router().ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
		if len(w.Result().Cookies()) != 0 {
			t.Error("no cookie should be set on failed login")
		}
	})
}

func TestAuthGate(t *testing.T) {
	s, _, _ := newTestServer(t)

	t.Run("unauthenticated request rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/campaigns/", nil)
		w := httptest.NewRecorder()
		s.Router().ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("key header accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/campaigns/", nil)
		req.Header.Set("X-Dashboard-Key", testPassword)
		w := httptest.NewRecorder()
		s.Router().ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/campaigns/", nil)
		req.Header.Set("X-Dashboard-Key", "nope")
		w := httptest.NewRecorder()
		s.Router().ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})
}

func TestCampaignLifecycle(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/campaigns/", map[string]string{"name": "Spring Launch"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d (body: %s)", w.Code, w.Body.String())
	}
	created := decodeBody[campaign.Campaign](t, w)
	if created.Status != campaign.StatusDraft {
		t.Errorf("Status = %q, want draft", created.Status)
	}

	w = doJSON(t, s, http.MethodGet, "/api/campaigns/", nil)
	list := decodeBody[struct {
		Campaigns []campaign.Campaign `json:"campaigns"`
	}](t, w)
	if len(list.Campaigns) != 1 {
		t.Fatalf("campaigns = %d, want 1", len(list.Campaigns))
	}

	w = doJSON(t, s, http.MethodGet, "/api/campaigns/selector", nil)
	if w.Code != http.StatusOK {
		t.Errorf("selector status = %d", w.Code)
	}

	w = doJSON(t, s, http.MethodPatch, "/api/campaigns/"+created.ID, map[string]string{"status": "active"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d (body: %s)", w.Code, w.Body.String())
	}
	updated := decodeBody[campaign.Campaign](t, w)
	if updated.Status != campaign.StatusActive {
		t.Errorf("Status = %q, want active", updated.Status)
	}

	w = doJSON(t, s, http.MethodPatch, "/api/campaigns/"+created.ID, map[string]string{"status": "archived"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid status update = %d, want 400", w.Code)
	}

	w = doJSON(t, s, http.MethodDelete, "/api/campaigns/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, "/api/campaigns/"+created.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestStats(t *testing.T) {
	s, _, _ := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/campaigns/", map[string]string{"name": "one"})
	doJSON(t, s, http.MethodPost, "/api/campaigns/", map[string]string{"name": "two"})

	w := doJSON(t, s, http.MethodGet, "/api/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d", w.Code)
	}
	stats := decodeBody[campaign.Stats](t, w)
	if stats.Campaigns != 2 {
		t.Errorf("Campaigns = %d, want 2", stats.Campaigns)
	}
}

// uploadFile posts a multipart file to the imports endpoint.
func uploadFile(t *testing.T, s *Server, fileName, content string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/imports/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Dashboard-Key", testPassword)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestImportFlow(t *testing.T) {
	s, _, _ := newTestServer(t)

	csv := "Email,First Name,Company\n" +
		"a@b.com,Alice,Acme\n" +
		"bogus,Bob,Globex\n" +
		",Carol,Initech\n"

	w := uploadFile(t, s, "contacts.csv", csv)
	if w.Code != http.StatusAccepted {
		t.Fatalf("import status = %d (body: %s)", w.Code, w.Body.String())
	}
	started := decodeBody[map[string]string](t, w)
	importID := started["import_id"]
	if importID == "" {
		t.Fatal("no import_id returned")
	}

	w = doJSON(t, s, http.MethodGet, "/api/imports/"+importID+"/result", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("result status = %d (body: %s)", w.Code, w.Body.String())
	}
	result := decodeBody[importResultResponse](t, w)
	if result.ValidCount != 1 || result.InvalidCount != 1 || result.Skipped != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", result.ValidCount, result.InvalidCount, result.Skipped)
	}
	if len(result.Preview) != 1 || result.Preview[0].Email != "a@b.com" {
		t.Errorf("preview = %+v", result.Preview)
	}

	// After the result is available the progress stream replays the final
	// snapshot and closes.
	req := httptest.NewRequest(http.MethodGet, "/api/imports/"+importID+"/progress", nil)
	req.Header.Set("X-Dashboard-Key", testPassword)
	pw := httptest.NewRecorder()
	s.Router().ServeHTTP(pw, req)
	body := pw.Body.String()
	if !strings.Contains(body, "event: progress") {
		t.Errorf("progress stream missing progress event: %q", body)
	}
	if !strings.Contains(body, "event: complete") {
		t.Errorf("progress stream missing complete event: %q", body)
	}
}

func TestImport_PreviewCapped(t *testing.T) {
	s, _, _ := newTestServer(t)

	var sb strings.Builder
	sb.WriteString("email\n")
	for i := 0; i < 20; i++ {
		sb.WriteString("user")
		sb.WriteByte(byte('a' + i))
		sb.WriteString("@example.com\n")
	}

	w := uploadFile(t, s, "big.csv", sb.String())
	importID := decodeBody[map[string]string](t, w)["import_id"]

	w = doJSON(t, s, http.MethodGet, "/api/imports/"+importID+"/result", nil)
	result := decodeBody[importResultResponse](t, w)
	if result.ValidCount != 20 {
		t.Errorf("ValidCount = %d, want 20", result.ValidCount)
	}
	if len(result.Preview) != 5 {
		t.Errorf("preview rows = %d, want 5", len(result.Preview))
	}
	if len(result.Valid) != 20 {
		t.Errorf("full valid list = %d, want 20", len(result.Valid))
	}
}

func TestImport_SpreadsheetRejected(t *testing.T) {
	s, _, rec := newTestServer(t)

	w := uploadFile(t, s, "contacts.xlsx", "whatever")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	resp := decodeBody[ErrorResponse](t, w)
	if !strings.Contains(resp.Error, "not yet supported") {
		t.Errorf("error = %q, should say spreadsheets are not yet supported", resp.Error)
	}

	sent := rec.Sent()
	if len(sent) == 0 {
		t.Fatal("expected a user notification")
	}
	if sent[0].Severity != notify.SeverityError {
		t.Errorf("notification severity = %q, want error", sent[0].Severity)
	}
}

func TestSubmitContacts(t *testing.T) {
	s, mem, rec := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/campaigns/", map[string]string{"name": "submit target"})
	created := decodeBody[campaign.Campaign](t, w)

	contacts := []map[string]string{
		{"email": "a@b.com", "first_name": "Alice"},
		{"email": "c@d.com"},
	}
	w = doJSON(t, s, http.MethodPost, "/api/campaigns/"+created.ID+"/contacts", map[string]any{"contacts": contacts})
	if w.Code != http.StatusOK {
		t.Fatalf("submit status = %d (body: %s)", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodGet, "/api/campaigns/"+created.ID, nil)
	got := decodeBody[campaign.Campaign](t, w)
	if got.TotalContacts != 2 {
		t.Errorf("TotalContacts = %d, want 2", got.TotalContacts)
	}

	var success bool
	for _, n := range rec.Sent() {
		if n.Severity == notify.SeveritySuccess {
			success = true
		}
	}
	if !success {
		t.Error("expected a success notification after submission")
	}

	// Duplicate insert failure surfaces the duplicates hint.
	mem.FailInsert = &mockDuplicateErr{}
	w = doJSON(t, s, http.MethodPost, "/api/campaigns/"+created.ID+"/contacts", map[string]any{"contacts": contacts})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate submit status = %d, want 400", w.Code)
	}
	resp := decodeBody[ErrorResponse](t, w)
	if !strings.Contains(resp.Description, "already exist") {
		t.Errorf("description = %q, should mention duplicates", resp.Description)
	}
}

func TestUpdateCampaign_StoreFailureIs500(t *testing.T) {
	s, mem, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/campaigns/", map[string]string{"name": "flaky"})
	created := decodeBody[campaign.Campaign](t, w)

	// An infrastructure failure is not the caller's fault.
	mem.FailUpdate = errors.New("connection reset by peer")
	w = doJSON(t, s, http.MethodPatch, "/api/campaigns/"+created.ID, map[string]string{"name": "renamed"})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("store failure status = %d, want 500", w.Code)
	}

	// Caller mistakes stay 400.
	w = doJSON(t, s, http.MethodPatch, "/api/campaigns/"+created.ID, map[string]string{"status": "archived"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid status = %d, want 400", w.Code)
	}
}

type mockDuplicateErr struct{}

func (*mockDuplicateErr) Error() string {
	return `duplicate key value violates unique constraint "contacts_campaign_id_email_key"`
}

func TestSecurityHeaders(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/stats", nil)
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)

	if !rl.allow("1.2.3.4") || !rl.allow("1.2.3.4") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("1.2.3.4") {
		t.Error("third request should be limited")
	}
	// A different IP has its own bucket.
	if !rl.allow("5.6.7.8") {
		t.Error("other IP should pass")
	}
}
