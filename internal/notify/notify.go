// Package notify delivers fire-and-forget user-facing status messages.
//
// Handlers convert every failure at the request boundary into a Notification;
// nothing propagates further up and nothing is retried. The server wires a
// slog-backed sink; tests use Recorder to assert on what the user would see.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Severity classifies a notification for display.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is a single user-facing status message.
type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Sink receives notifications. Implementations must not block.
type Sink interface {
	Notify(ctx context.Context, n Notification)
}

// SlogSink logs notifications through the default structured logger.
type SlogSink struct{}

func (SlogSink) Notify(ctx context.Context, n Notification) {
	level := slog.LevelInfo
	if n.Severity == SeverityError {
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, "notification",
		"title", n.Title,
		"description", n.Description,
		"severity", string(n.Severity),
	)
}

// Recorder captures notifications for tests.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

// Sent returns a copy of all captured notifications.
func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}
