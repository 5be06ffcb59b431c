// internal/storage/storage.go
package storage

import "github.com/pinmap/pinstate/pkg/core"

// Backend is the interface all transition journal implementations satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.Session) error
	EndSession(s *core.Session) error

	// RecordTransition stores one transition of the current session.
	RecordTransition(t *core.Transition) error
}

// Exporter is an optional interface for backends that write the session to
// a file when it ends.
type Exporter interface {
	ExportedFilePath() string
}
