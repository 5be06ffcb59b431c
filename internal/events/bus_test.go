package events

import (
	"fmt"
	"sync"
	"testing"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

type source struct{ name string }

func newTestBus(t *testing.T) (*Bus, *testLogger) {
	logger := &testLogger{}

	b, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create bus: %v", err)
	}

	return b, logger
}

func TestBus_TriggerCallsListener(t *testing.T) {
	b, _ := newTestBus(t)
	src := &source{"a"}

	var got Event
	b.AddListener(src, "click", func(e Event) { got = e })

	b.Trigger(src, "click", "target")

	if got.Name != "click" {
		t.Errorf("expected click, got %q", got.Name)
	}
	if got.Source != src {
		t.Error("expected source to be passed through")
	}
	if got.Target != "target" {
		t.Errorf("expected target, got %v", got.Target)
	}
}

func TestBus_TriggerOtherSourceIgnored(t *testing.T) {
	b, _ := newTestBus(t)
	a, other := &source{"a"}, &source{"b"}

	called := false
	b.AddListener(a, "click", func(e Event) { called = true })

	b.Trigger(other, "click", nil)
	b.Trigger(a, "mouseover", nil)

	if called {
		t.Error("listener fired for another source or event")
	}
}

func TestBus_RegistrationOrder(t *testing.T) {
	b, _ := newTestBus(t)
	src := &source{"a"}

	var order []int
	for i := 0; i < 3; i++ {
		b.AddListener(src, "click", func(e Event) { order = append(order, i) })
	}

	b.Trigger(src, "click", nil)

	if fmt.Sprint(order) != "[0 1 2]" {
		t.Errorf("expected [0 1 2], got %v", order)
	}
}

func TestBus_RemoveListener(t *testing.T) {
	b, _ := newTestBus(t)
	src := &source{"a"}

	called := 0
	l := b.AddListener(src, "click", func(e Event) { called++ })
	if b.Count() != 1 {
		t.Fatalf("expected 1 listener, got %d", b.Count())
	}

	l.Remove()
	l.Remove()
	b.Trigger(src, "click", nil)

	if called != 0 {
		t.Errorf("removed listener fired %d times", called)
	}
	if b.Count() != 0 {
		t.Errorf("expected 0 listeners, got %d", b.Count())
	}
	if !l.Removed() {
		t.Error("expected listener to report removed")
	}
}

func TestBus_RemoveDuringDispatchSkipsListener(t *testing.T) {
	b, _ := newTestBus(t)
	src := &source{"a"}

	var second *Listener
	secondCalled := false
	b.AddListener(src, "click", func(e Event) { second.Remove() })
	second = b.AddListener(src, "click", func(e Event) { secondCalled = true })

	b.Trigger(src, "click", nil)

	if secondCalled {
		t.Error("listener removed mid-dispatch should not fire")
	}
}

func TestBus_AddDuringDispatchFiresNextTime(t *testing.T) {
	b, _ := newTestBus(t)
	src := &source{"a"}

	added := 0
	registered := false
	b.AddListener(src, "click", func(e Event) {
		if registered {
			return
		}
		registered = true
		b.AddListener(src, "click", func(e Event) { added++ })
	})

	b.Trigger(src, "click", nil)
	if added != 0 {
		t.Errorf("listener added mid-dispatch fired in the same dispatch")
	}

	b.Trigger(src, "click", nil)
	if added != 1 {
		t.Errorf("expected added listener to fire once, got %d", added)
	}
}

func TestBus_LoggedListener(t *testing.T) {
	b, logger := newTestBus(t)
	src := &source{"a"}

	b.AddListener(src, "click", func(e Event) {}, Logged())
	b.Trigger(src, "click", nil)

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) < 2 {
		t.Errorf("expected at least 2 log messages, got %d", len(logger.messages))
	}
}

func TestBus_RemoveNil(t *testing.T) {
	b, _ := newTestBus(t)

	// Should not panic
	b.RemoveListener(nil)
}
