// Package upload tracks in-flight contact imports and fans progress out to
// subscribers. The parse itself lives in the ingest package; this package
// owns the asynchronous session lifecycle around it.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"outreach/internal/ingest"
)

// Phase describes where an import session is in its lifecycle.
type Phase string

const (
	PhaseStarting Phase = "starting"
	PhaseParsing  Phase = "parsing"
	PhaseComplete Phase = "complete"
	PhaseFailed   Phase = "failed"
)

// Progress is a snapshot of an import session's state, suitable for pushing
// to clients as-is.
type Progress struct {
	ImportID string  `json:"import_id"`
	FileName string  `json:"file_name"`
	Phase    Phase   `json:"phase"`
	Percent  float64 `json:"percent"`
	Error    string  `json:"error,omitempty"`
}

// activeImport is one tracked session. Progress and Listeners are guarded by
// mu; Result and Err are written once before Done closes and only read after.
type activeImport struct {
	ID       string
	FileName string
	Result   ingest.Result
	Err      error
	Done     chan struct{}

	mu        sync.Mutex
	Progress  Progress
	Listeners []chan Progress
	finished  bool
}

// Manager runs imports in the background and retains finished sessions for a
// short window so clients can still fetch results after the stream closes.
type Manager struct {
	mu        sync.RWMutex
	imports   map[string]*activeImport
	limiter   *Limiter
	retention time.Duration
}

// NewManager creates a Manager allowing maxConcurrent parallel imports.
// Finished sessions stay queryable for retention before being dropped.
func NewManager(maxConcurrent int, maxWait, retention time.Duration) *Manager {
	if retention <= 0 {
		retention = 5 * time.Minute
	}
	return &Manager{
		imports:   make(map[string]*activeImport),
		limiter:   NewLimiter(maxConcurrent, maxWait),
		retention: retention,
	}
}

// Start begins an asynchronous import and returns its id immediately.
// Unsupported file formats are rejected synchronously so callers can fail
// the request before acknowledging the upload. Use SubscribeProgress for
// updates and Result for the final outcome.
func (m *Manager) Start(ctx context.Context, fileName, content string) (string, error) {
	if err := ingest.CheckFormat(fileName); err != nil {
		return "", err
	}

	if err := m.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	importID := uuid.New().String()
	imp := &activeImport{
		ID:       importID,
		FileName: fileName,
		Done:     make(chan struct{}),
		Progress: Progress{
			ImportID: importID,
			FileName: fileName,
			Phase:    PhaseStarting,
		},
	}

	m.mu.Lock()
	m.imports[importID] = imp
	m.mu.Unlock()

	// Process in background with panic recovery to guarantee the limiter
	// slot is released and listeners are closed.
	go func() {
		defer m.limiter.Release()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in import",
					"import_id", importID,
					"file", fileName,
					"panic", r,
				)
				imp.Err = fmt.Errorf("internal error: %v", r)
				imp.setPhase(PhaseFailed, imp.Err.Error())
			}
			imp.closeListeners()
			close(imp.Done)
			m.cleanup(importID, m.retention)
		}()
		m.process(imp, content)
	}()

	return importID, nil
}

func (m *Manager) process(imp *activeImport, content string) {
	imp.setPhase(PhaseParsing, "")

	result, err := ingest.Ingest(content, imp.FileName, func(percent float64) {
		imp.setPercent(percent)
	})
	if err != nil {
		imp.Err = err
		imp.setPhase(PhaseFailed, err.Error())
		return
	}

	imp.Result = result
	imp.setPhase(PhaseComplete, "")
}

// SubscribeProgress returns a channel that receives progress updates. The
// current snapshot is delivered immediately and the channel is closed when
// the import finishes. Slow subscribers miss intermediate updates rather
// than blocking the import.
func (m *Manager) SubscribeProgress(importID string) (<-chan Progress, error) {
	imp, err := m.lookup(importID)
	if err != nil {
		return nil, err
	}

	ch := make(chan Progress, 10)

	imp.mu.Lock()
	if imp.finished {
		// The session already ended; deliver the final snapshot and close.
		ch <- imp.Progress
		close(ch)
	} else {
		imp.Listeners = append(imp.Listeners, ch)
		select {
		case ch <- imp.Progress:
		default:
		}
	}
	imp.mu.Unlock()

	return ch, nil
}

// Result blocks until the import completes and returns its outcome.
func (m *Manager) Result(importID string) (ingest.Result, error) {
	imp, err := m.lookup(importID)
	if err != nil {
		return ingest.Result{}, err
	}

	<-imp.Done
	return imp.Result, imp.Err
}

// CurrentProgress returns the latest snapshot without blocking.
func (m *Manager) CurrentProgress(importID string) (Progress, error) {
	imp, err := m.lookup(importID)
	if err != nil {
		return Progress{}, err
	}

	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.Progress, nil
}

func (m *Manager) lookup(importID string) (*activeImport, error) {
	m.mu.RLock()
	imp, ok := m.imports[importID]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("import not found: %s", importID)
	}
	return imp, nil
}

// cleanup removes the import from tracking after a delay.
func (m *Manager) cleanup(importID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		m.mu.Lock()
		delete(m.imports, importID)
		m.mu.Unlock()
	})
}

// WaitForDrain blocks until all running imports finish. Used for graceful
// shutdown.
func (m *Manager) WaitForDrain(ctx context.Context) error {
	return m.limiter.WaitForDrain(ctx)
}

func (imp *activeImport) setPercent(percent float64) {
	imp.mu.Lock()
	imp.Progress.Percent = percent
	imp.notifyLocked()
	imp.mu.Unlock()
}

func (imp *activeImport) setPhase(phase Phase, errMsg string) {
	imp.mu.Lock()
	imp.Progress.Phase = phase
	imp.Progress.Error = errMsg
	if phase == PhaseComplete {
		imp.Progress.Percent = 100
	}
	imp.notifyLocked()
	imp.mu.Unlock()
}

// notifyLocked fans the current snapshot out to listeners. Callers hold
// imp.mu.
func (imp *activeImport) notifyLocked() {
	for _, ch := range imp.Listeners {
		select {
		case ch <- imp.Progress:
		default:
			// Listener is slow, skip this update
		}
	}
}

// closeListeners closes all listener channels and marks the session done so
// late subscribers get a closed channel instead of a stuck one.
func (imp *activeImport) closeListeners() {
	imp.mu.Lock()
	defer imp.mu.Unlock()

	imp.finished = true
	for _, ch := range imp.Listeners {
		close(ch)
	}
	imp.Listeners = nil
}
