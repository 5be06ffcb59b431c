// Package gormstorage implements the storage.Backend interface on GORM.
// Transitions are buffered and written in batches by a background writer;
// Flush, EndSession and Close write whatever is still pending.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pinmap/pinstate/internal/database"
	"github.com/pinmap/pinstate/internal/model"
	"github.com/pinmap/pinstate/internal/model/convert"
	"github.com/pinmap/pinstate/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ErrNoSession is returned when a transition arrives outside a session.
var ErrNoSession = errors.New("no session started")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger zerolog.Logger

	// FlushInterval is how often the background writer runs. Zero disables
	// it; pending rows are then written only by Flush, EndSession and Close.
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM with batched writes.
type Backend struct {
	deps Dependencies

	mu        sync.Mutex
	pending   []model.Transition
	sessionID string

	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the background writer.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend: no database")
	}
	if err := database.Migrate(b.deps.DB, b.deps.Logger); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	if b.deps.FlushInterval > 0 {
		b.stopChan = make(chan struct{})
		b.done = make(chan struct{})
		go b.writeLoop()
	}
	return nil
}

// Close stops the background writer and writes anything pending.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	return b.Flush()
}

// StartSession inserts the session row.
func (b *Backend) StartSession(s *core.Session) error {
	if s.ID == "" {
		return fmt.Errorf("session has no id")
	}
	row := convert.CoreToSession(*s)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	b.mu.Lock()
	b.sessionID = s.ID
	b.mu.Unlock()

	b.deps.Logger.Info().Str("session", s.ID).Msg("Session started")
	return nil
}

// EndSession writes pending transitions and stores the session's end time
// and marker count.
func (b *Backend) EndSession(s *core.Session) error {
	if err := b.Flush(); err != nil {
		return err
	}

	row := convert.CoreToSession(*s)
	err := b.deps.DB.Model(&model.Session{}).Where("id = ?", s.ID).
		Updates(map[string]any{"ended_at": row.EndedAt, "markers": row.Markers}).Error
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	b.mu.Lock()
	b.sessionID = ""
	b.mu.Unlock()
	return nil
}

// RecordTransition queues t for the next batch write.
func (b *Backend) RecordTransition(t *core.Transition) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sessionID == "" {
		return ErrNoSession
	}
	row := convert.CoreToTransition(*t)
	if row.SessionID == "" {
		row.SessionID = b.sessionID
	}
	b.pending = append(b.pending, row)
	return nil
}

// Pending returns the number of transitions waiting to be written.
func (b *Backend) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Flush writes every pending transition in one batch.
func (b *Backend) Flush() error {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	b.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := b.deps.DB.Create(&batch).Error; err != nil {
		// put them back so a later flush can retry
		b.mu.Lock()
		b.pending = append(batch, b.pending...)
		b.mu.Unlock()
		return fmt.Errorf("failed to write %d transitions: %w", len(batch), err)
	}
	return nil
}

// Transitions loads the stored transitions of a session in insertion order.
func (b *Backend) Transitions(sessionID string) ([]core.Transition, error) {
	var rows []model.Transition
	if err := b.deps.DB.Where("session_id = ?", sessionID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load transitions: %w", err)
	}
	out := make([]core.Transition, len(rows))
	for i, r := range rows {
		out[i] = convert.TransitionToCore(r)
	}
	return out, nil
}

func (b *Backend) writeLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			n := b.Pending()
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error().Err(err).Msg("Error writing transitions")
				continue
			}
			if n > 0 {
				b.deps.Logger.Debug().Int("count", n).Dur("duration", time.Since(start)).Msg("Wrote transitions")
			}
		}
	}
}
