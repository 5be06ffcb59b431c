// Package journal stamps coordinator transitions with a session and writes
// them to a storage backend.
package journal

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pinmap/pinstate/internal/storage"
	"github.com/pinmap/pinstate/pkg/core"
)

// ErrEnded is returned by End when the session was already ended.
var ErrEnded = errors.New("journal session already ended")

// Recorder writes transitions of one session. It satisfies the
// coordinator's Recorder interface; write failures are logged and never
// reach the caller.
type Recorder struct {
	backend storage.Backend
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	session core.Session
	written int
	failed  int
	ended   bool
}

// New starts a session on backend. source describes what drives the
// session, e.g. a replay script path.
func New(backend storage.Backend, source string, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		backend: backend,
		logger:  logger.With("component", "journal"),
		now:     time.Now,
	}
	r.session = core.Session{
		ID:        uuid.NewString(),
		StartedAt: r.now().UTC(),
		Source:    source,
	}

	if err := backend.StartSession(&r.session); err != nil {
		return nil, fmt.Errorf("failed to start journal session: %w", err)
	}
	r.logger.Info("journal session started", "session", r.session.ID, "source", source)
	return r, nil
}

// SessionID returns the id stamped on every transition.
func (r *Recorder) SessionID() string {
	return r.session.ID
}

// Record writes t under the current session.
func (r *Recorder) Record(t core.Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ended {
		return
	}
	t.SessionID = r.session.ID
	if t.Time.IsZero() {
		t.Time = r.now()
	}
	if err := r.backend.RecordTransition(&t); err != nil {
		r.failed++
		r.logger.Error("failed to record transition", "error", err, "marker", t.MarkerIndex, "cause", t.Cause)
		return
	}
	r.written++
}

// Written returns how many transitions the backend accepted.
func (r *Recorder) Written() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Failed returns how many transitions the backend rejected.
func (r *Recorder) Failed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// End closes the session, recording how many markers it rendered. Later
// transitions are dropped.
func (r *Recorder) End(markers int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ended {
		return ErrEnded
	}
	r.ended = true
	r.session.EndedAt = r.now().UTC()
	r.session.Markers = markers

	if err := r.backend.EndSession(&r.session); err != nil {
		return fmt.Errorf("failed to end journal session: %w", err)
	}

	attrs := []any{"session", r.session.ID, "written", r.written, "failed", r.failed}
	if exp, ok := r.backend.(storage.Exporter); ok && exp.ExportedFilePath() != "" {
		attrs = append(attrs, "file", exp.ExportedFilePath())
	}
	r.logger.Info("journal session ended", attrs...)
	return nil
}
