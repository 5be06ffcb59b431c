package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Event is one UI event delivered to listeners.
type Event struct {
	Name      string
	Source    any // object the listener was registered on
	Target    any // element the event originated from, may be nil
	Timestamp time.Time
}

// HandlerFunc handles an event. Handlers run synchronously and to completion.
type HandlerFunc func(Event)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures listener registration.
type Option func(*config)

type config struct {
	logged bool
}

// Logged adds debug logging around the listener.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Listener is a subscription handle returned by AddListener.
type Listener struct {
	bus     *Bus
	id      uint64
	source  any
	name    string
	handler HandlerFunc
	removed bool
}

// Name returns the event name the listener was registered for.
func (l *Listener) Name() string { return l.name }

// Source returns the object the listener was registered on.
func (l *Listener) Source() any { return l.source }

// Removed reports whether the listener has been deregistered.
func (l *Listener) Removed() bool {
	l.bus.mu.RLock()
	defer l.bus.mu.RUnlock()
	return l.removed
}

// Remove deregisters the listener. Removing twice is a no-op.
func (l *Listener) Remove() {
	l.bus.RemoveListener(l)
}

type key struct {
	source any
	name   string
}

// Bus routes events from a source object to the listeners registered on it.
// Dispatch snapshots the listener list: listeners removed during a dispatch do
// not fire, listeners added during a dispatch fire from the next one.
type Bus struct {
	logger Logger

	mu        sync.RWMutex
	nextID    uint64
	listeners map[key][]*Listener
	active    int64

	// OTEL metrics
	activeGauge metric.Int64ObservableGauge
	dispatched  metric.Int64Counter
}

// New creates a new Bus with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Bus, error) {
	b := &Bus{
		logger:    logger,
		listeners: make(map[key][]*Listener),
	}

	m := meter()

	var err error

	b.activeGauge, err = m.Int64ObservableGauge(
		"events.listeners.active",
		metric.WithDescription("Current number of registered listeners"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active listener gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(b.activeGauge, int64(b.Count()))
			return nil
		},
		b.activeGauge,
	)
	if err != nil {
		return nil, fmt.Errorf("registering listener callback: %w", err)
	}

	b.dispatched, err = m.Int64Counter(
		"events.dispatched",
		metric.WithDescription("Total events dispatched"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dispatched counter: %w", err)
	}

	return b, nil
}

// AddListener registers h for events named name on source.
func (b *Bus) AddListener(source any, name string, h HandlerFunc, opts ...Option) *Listener {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	l := &Listener{bus: b, source: source, name: name}

	handler := h
	if cfg.logged {
		handler = b.withLogging(name, handler)
	}
	l.handler = handler

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	l.id = b.nextID
	k := key{source: source, name: name}
	b.listeners[k] = append(b.listeners[k], l)
	b.active++
	return l
}

// RemoveListener deregisters l. Unknown or already removed listeners are ignored.
func (b *Bus) RemoveListener(l *Listener) {
	if l == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if l.removed {
		return
	}
	l.removed = true
	k := key{source: l.source, name: l.name}
	list := b.listeners[k]
	for i, cur := range list {
		if cur == l {
			b.listeners[k] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(b.listeners[k]) == 0 {
		delete(b.listeners, k)
	}
	b.active--
}

// Trigger dispatches an event named name on source, in registration order.
func (b *Bus) Trigger(source any, name string, target any) {
	b.mu.RLock()
	snapshot := append([]*Listener(nil), b.listeners[key{source: source, name: name}]...)
	b.mu.RUnlock()

	if len(snapshot) == 0 {
		return
	}

	e := Event{Name: name, Source: source, Target: target, Timestamp: time.Now()}
	for _, l := range snapshot {
		if l.Removed() {
			continue
		}
		l.handler(e)
	}
	b.dispatched.Add(context.Background(), 1, metric.WithAttributes(attribute.String("event", name)))
}

// Count returns the number of registered listeners across all sources.
func (b *Bus) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int(b.active)
}

// CountFor returns the number of listeners registered for name on source.
func (b *Bus) CountFor(source any, name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[key{source: source, name: name}])
}

func (b *Bus) withLogging(name string, h HandlerFunc) HandlerFunc {
	return func(e Event) {
		if b.logger == nil {
			h(e)
			return
		}
		start := time.Now()
		b.logger.Debug("handling event", "event", name)
		h(e)
		b.logger.Debug("event complete", "event", name, "duration", time.Since(start))
	}
}
