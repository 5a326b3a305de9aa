package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"outreach/internal/notify"
	"outreach/internal/web/middleware"
)

type loginRequest struct {
	Password string `json:"password"`
}

// handleLogin checks the shared dashboard password and issues a session
// cookie. Failed attempts are logged but the response never says whether the
// password was close.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, ok := s.sessions.Login(req.Password)
	if !ok {
		slog.Warn("login rejected", "remote_addr", r.RemoteAddr)
		if s.sink != nil {
			s.sink.Notify(r.Context(), notify.Notification{
				Title:       "Login failed",
				Description: "The password is incorrect.",
				Severity:    notify.SeverityError,
			})
		}
		writeError(w, http.StatusUnauthorized, "incorrect password")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessions.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLogout revokes the current session and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookie); err == nil {
		s.sessions.Revoke(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
