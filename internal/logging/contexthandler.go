package logging

import (
	"context"
	"log/slog"
	"sync"
)

// ContextProvider returns attributes describing the current state of the
// process, evaluated once per record.
type ContextProvider func() []slog.Attr

// providerSlot is shared by a ContextHandler and every handler derived from
// it, so a provider installed late reaches loggers created early.
type providerSlot struct {
	mu       sync.RWMutex
	provider ContextProvider
}

func (s *providerSlot) set(p ContextProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provider = p
}

func (s *providerSlot) attrs() []slog.Attr {
	s.mu.RLock()
	p := s.provider
	s.mu.RUnlock()
	if p == nil {
		return nil
	}
	return p()
}

// ContextHandler wraps another handler and injects dynamic context attributes.
type ContextHandler struct {
	inner slog.Handler
	slot  *providerSlot
}

// NewContextHandler creates a handler that adds provider's attributes to
// each record.
func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{inner: inner, slot: &providerSlot{provider: provider}}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := h.slot.attrs(); len(attrs) > 0 {
		r.AddAttrs(attrs...)
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), slot: h.slot}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{inner: h.inner.WithGroup(name), slot: h.slot}
}
