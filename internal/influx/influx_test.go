package influx

import (
	"bufio"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pinmap/pinstate/internal/config"
	"github.com/pinmap/pinstate/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachable(t *testing.T) config.InfluxConfig {
	return config.InfluxConfig{
		Host:       "127.0.0.1",
		Port:       "1",
		Protocol:   "http",
		Token:      "token",
		Org:        "pinstate",
		Bucket:     "transitions",
		BackupPath: filepath.Join(t.TempDir(), "backup.gz"),
	}
}

func readBackup(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var lines []string
	sc := bufio.NewScanner(gz)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestURL(t *testing.T) {
	m := NewManager(config.InfluxConfig{Protocol: "https", Host: "db", Port: "8086"}, zerolog.Nop())
	assert.Equal(t, "https://db:8086", m.URL())
}

func TestTransitionPoint(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := TransitionPoint(&core.Transition{
		SessionID:   "s1",
		Time:        at,
		MarkerIndex: 4,
		Cause:       core.CauseSpiderfy,
		State:       "spiderfied",
		GroupState:  "spiderfied",
		ZIndex:      20000,
		LabelClass:  "marker-point spiderfied",
		Flags:       []string{"spiderfied"},
	})

	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
	assert.True(t, strings.HasPrefix(line, MeasurementTransition+","))
	assert.Contains(t, line, "cause=spiderfy")
	assert.Contains(t, line, "session=s1")
	assert.Contains(t, line, "marker_index=4i")
	assert.Contains(t, line, "z_index=20000i")
	assert.Contains(t, line, `flags="spiderfied"`)
}

func TestConnect_FallsBackToBackup(t *testing.T) {
	cfg := unreachable(t)
	m := NewManager(cfg, zerolog.Nop())

	require.NoError(t, m.Init())
	assert.False(t, m.IsValid)
	assert.NotNil(t, m.BackupWriter)

	s := &core.Session{ID: "s1", StartedAt: time.Now(), Source: "test"}
	require.NoError(t, m.StartSession(s))
	require.NoError(t, m.RecordTransition(&core.Transition{Time: time.Now(), MarkerIndex: 1, Cause: core.CauseClick}))
	s.EndedAt = time.Now()
	s.Markers = 2
	require.NoError(t, m.EndSession(s))
	require.NoError(t, m.Close())

	lines := readBackup(t, cfg.BackupPath)
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], MeasurementSession))
	assert.Contains(t, lines[0], "event=start")
	assert.True(t, strings.HasPrefix(lines[1], MeasurementTransition))
	assert.Contains(t, lines[1], "session=s1")
	assert.Contains(t, lines[2], "event=end")
	assert.Contains(t, lines[2], "markers=2i")
}

func TestConnect_NoBackupPath(t *testing.T) {
	cfg := unreachable(t)
	cfg.BackupPath = ""
	m := NewManager(cfg, zerolog.Nop())
	assert.Error(t, m.Init())
}

func TestRecordTransition_RequiresSession(t *testing.T) {
	m := NewManager(unreachable(t), zerolog.Nop())
	require.NoError(t, m.Init())
	t.Cleanup(func() { m.Close() })

	assert.ErrorIs(t, m.RecordTransition(&core.Transition{}), ErrNoSession)
	assert.ErrorIs(t, m.EndSession(&core.Session{}), ErrNoSession)
}

func TestWritePoint_Uninitialized(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop())
	assert.Error(t, m.WritePoint(SessionPoint(&core.Session{ID: "x"}, "start", time.Now())))
}
