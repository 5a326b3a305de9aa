package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// SessionCookie is the cookie carrying the dashboard session token.
const SessionCookie = "dashboard_session"

// KeyHeader lets non-browser clients authenticate by sending the shared
// dashboard password directly instead of holding a session.
const KeyHeader = "X-Dashboard-Key"

// Sessions implements the shared-password gate. A successful login issues an
// opaque token that is valid until its TTL expires; there are no per-user
// accounts.
type Sessions struct {
	password []byte
	ttl      time.Duration

	mu     sync.Mutex
	tokens map[string]time.Time // token -> expiry
}

// NewSessions creates a session store gated by the given shared password.
func NewSessions(password string, ttl time.Duration) *Sessions {
	return &Sessions{
		password: []byte(password),
		ttl:      ttl,
		tokens:   make(map[string]time.Time),
	}
}

// Login checks the password and issues a session token on success.
// The comparison is constant-time to avoid leaking password length prefixes.
func (s *Sessions) Login(password string) (string, bool) {
	if subtle.ConstantTimeCompare([]byte(password), s.password) != 1 {
		return "", false
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", false
	}
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	s.tokens[token] = time.Now().Add(s.ttl)
	s.mu.Unlock()

	return token, true
}

// Revoke invalidates a session token.
func (s *Sessions) Revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// TTL returns the configured session lifetime.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

// valid reports whether a token is a live session, pruning it when expired.
func (s *Sessions) valid(token string) bool {
	if token == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.tokens[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(s.tokens, token)
		return false
	}
	return true
}

// RequireAuth rejects requests that carry neither a live session cookie nor
// the shared password in the key header.
func (s *Sessions) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(SessionCookie); err == nil && s.valid(cookie.Value) {
			next.ServeHTTP(w, r)
			return
		}

		if key := r.Header.Get(KeyHeader); key != "" {
			if subtle.ConstantTimeCompare([]byte(key), s.password) == 1 {
				next.ServeHTTP(w, r)
				return
			}
		}

		slog.Warn("auth: rejected request",
			"path", r.URL.Path,
			"method", r.Method,
			"remote_addr", r.RemoteAddr,
		)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"authentication required","code":"AUTH_REQUIRED"}`))
	})
}
