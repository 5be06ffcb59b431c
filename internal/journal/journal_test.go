package journal

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pinmap/pinstate/internal/config"
	"github.com/pinmap/pinstate/internal/storage/memory"
	"github.com/pinmap/pinstate/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	started     []*core.Session
	ended       []*core.Session
	transitions []core.Transition
	startErr    error
	recordErr   error
}

func (f *fakeBackend) Init() error  { return nil }
func (f *fakeBackend) Close() error { return nil }

func (f *fakeBackend) StartSession(s *core.Session) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, s)
	return nil
}

func (f *fakeBackend) EndSession(s *core.Session) error {
	f.ended = append(f.ended, s)
	return nil
}

func (f *fakeBackend) RecordTransition(t *core.Transition) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.transitions = append(f.transitions, *t)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestNew_StartsSession(t *testing.T) {
	fb := &fakeBackend{}
	r, err := New(fb, "script.json", quietLogger())
	require.NoError(t, err)

	require.Len(t, fb.started, 1)
	assert.Equal(t, r.SessionID(), fb.started[0].ID)
	assert.Equal(t, "script.json", fb.started[0].Source)
	assert.False(t, fb.started[0].StartedAt.IsZero())

	_, err = uuid.Parse(r.SessionID())
	assert.NoError(t, err)
}

func TestNew_StartError(t *testing.T) {
	_, err := New(&fakeBackend{startErr: errors.New("boom")}, "", quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRecord_StampsSessionAndTime(t *testing.T) {
	fb := &fakeBackend{}
	r, err := New(fb, "", quietLogger())
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.Record(core.Transition{MarkerIndex: 1, Cause: core.CauseMouseOver, Time: at})
	r.Record(core.Transition{MarkerIndex: 2, Cause: core.CauseMouseOut})

	require.Len(t, fb.transitions, 2)
	assert.Equal(t, r.SessionID(), fb.transitions[0].SessionID)
	assert.Equal(t, at, fb.transitions[0].Time)
	assert.False(t, fb.transitions[1].Time.IsZero())
	assert.Equal(t, 2, r.Written())
	assert.Equal(t, 0, r.Failed())
}

func TestRecord_ErrorIsLoggedNotReturned(t *testing.T) {
	var buf bytes.Buffer
	fb := &fakeBackend{recordErr: errors.New("disk full")}
	r, err := New(fb, "", slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, err)

	r.Record(core.Transition{MarkerIndex: 3, Cause: core.CauseClick})

	assert.Equal(t, 0, r.Written())
	assert.Equal(t, 1, r.Failed())
	assert.Contains(t, buf.String(), "failed to record transition")
	assert.Contains(t, buf.String(), "disk full")
}

func TestEnd(t *testing.T) {
	fb := &fakeBackend{}
	r, err := New(fb, "", quietLogger())
	require.NoError(t, err)

	require.NoError(t, r.End(5))
	require.Len(t, fb.ended, 1)
	assert.Equal(t, 5, fb.ended[0].Markers)
	assert.False(t, fb.ended[0].EndedAt.IsZero())

	r.Record(core.Transition{})
	assert.Empty(t, fb.transitions)
	assert.ErrorIs(t, r.End(5), ErrEnded)
}

func TestEnd_ExportsWithMemoryBackend(t *testing.T) {
	b := memory.New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.Init())

	r, err := New(b, "replay", quietLogger())
	require.NoError(t, err)
	r.Record(core.Transition{MarkerIndex: 0, Cause: core.CauseRender})
	require.NoError(t, r.End(1))

	path := b.ExportedFilePath()
	require.NotEmpty(t, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), r.SessionID())
}
