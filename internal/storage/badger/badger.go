// Package badgerstorage keeps the transition journal in an embedded Badger
// key-value store. Sessions live under "sessions/<id>" and transitions under
// "transitions/<session>/<seq>", both as JSON.
package badgerstorage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/pinmap/pinstate/internal/config"
	"github.com/pinmap/pinstate/pkg/core"
	"github.com/rs/zerolog"
)

const (
	sessionPrefix    = "sessions/"
	transitionPrefix = "transitions/"
)

// ErrNoSession is returned when a transition arrives outside a session.
var ErrNoSession = errors.New("no session started")

// Backend implements storage.Backend on Badger.
type Backend struct {
	cfg config.BadgerConfig
	log zerolog.Logger
	db  *badger.DB

	mu      sync.Mutex
	session string
	seq     uint64
}

// New creates a Badger backend. The store is opened by Init.
func New(cfg config.BadgerConfig, log zerolog.Logger) *Backend {
	return &Backend{cfg: cfg, log: log}
}

// Init opens the store.
func (b *Backend) Init() error {
	var opts badger.Options
	if b.cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(b.cfg.Dir)
		opts.NumVersionsToKeep = 1
		opts.CompactL0OnClose = true
	}
	opts = opts.WithLogger(badgerLogger{b.log})

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open badger store: %w", err)
	}
	b.db = db
	return nil
}

// Close closes the store.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

func sessionKey(id string) []byte {
	return []byte(sessionPrefix + id)
}

func transitionKey(session string, seq uint64) []byte {
	// zero padded so keys iterate in insertion order
	return []byte(fmt.Sprintf("%s%s/%020d", transitionPrefix, session, seq))
}

func (b *Backend) put(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// StartSession stores the session and makes it current.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.put(sessionKey(s.ID), s); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	b.session = s.ID
	b.seq = 0
	return nil
}

// EndSession overwrites the stored session with its final values.
func (b *Backend) EndSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == "" {
		return ErrNoSession
	}
	if err := b.put(sessionKey(s.ID), s); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	b.session = ""
	return nil
}

// RecordTransition appends t to the current session.
func (b *Backend) RecordTransition(t *core.Transition) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == "" {
		return ErrNoSession
	}
	if t.SessionID == "" {
		t.SessionID = b.session
	}
	b.seq++
	t.ID = uint(b.seq)
	if err := b.put(transitionKey(b.session, b.seq), t); err != nil {
		return fmt.Errorf("failed to store transition: %w", err)
	}
	return nil
}

// Session loads a stored session.
func (b *Backend) Session(id string) (*core.Session, error) {
	out := new(core.Session)
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(id))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(val, out)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return out, nil
}

// Transitions loads the transitions of a session in insertion order.
func (b *Backend) Transitions(sessionID string) ([]core.Transition, error) {
	var out []core.Transition
	prefix := []byte(transitionPrefix + sessionID + "/")

	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var t core.Transition
			if err := json.Unmarshal(val, &t); err != nil {
				return err
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transitions: %w", err)
	}
	return out, nil
}

// badgerLogger routes Badger's internal logging through zerolog.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error().Str("component", "badger").Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn().Str("component", "badger").Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.Debug().Str("component", "badger").Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.Trace().Str("component", "badger").Msgf(format, args...)
}
