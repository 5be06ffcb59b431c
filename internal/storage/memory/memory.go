// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"sync"

	"github.com/pinmap/pinstate/internal/config"
	"github.com/pinmap/pinstate/pkg/core"
)

// ErrNoSession is returned when a transition arrives outside a session.
var ErrNoSession = errors.New("no session started")

// Backend keeps the session's transitions in memory and exports them to JSON
// when the session ends.
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session

	transitions []core.Transition
	idCounter   uint

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close exports a session that was never ended.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	return b.endSession(b.session)
}

// StartSession begins a new session, dropping anything recorded before.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = s
	b.transitions = nil
	b.idCounter = 0
	b.lastExportPath = ""
	return nil
}

// EndSession exports the session.
func (b *Backend) EndSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	return b.endSession(s)
}

func (b *Backend) endSession(s *core.Session) error {
	err := b.exportJSON(s)
	b.session = nil
	return err
}

// RecordTransition stores t and assigns its ID.
func (b *Backend) RecordTransition(t *core.Transition) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.idCounter++
	t.ID = b.idCounter
	if t.SessionID == "" {
		t.SessionID = b.session.ID
	}
	b.transitions = append(b.transitions, *t)
	return nil
}

// Transitions returns a copy of the recorded transitions.
func (b *Backend) Transitions() []core.Transition {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.Transition(nil), b.transitions...)
}

// ExportedFilePath returns the path of the last export, or "" if none.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
