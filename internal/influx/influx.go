// Package influx writes transitions to InfluxDB as time series points. When
// the server cannot be reached the points go to a gzipped line protocol
// backup file instead.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/pinmap/pinstate/internal/config"
	"github.com/pinmap/pinstate/pkg/core"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const (
	// MeasurementTransition holds one point per applied marker transition.
	MeasurementTransition = "marker_transition"
	// MeasurementSession holds one point per session start and end.
	MeasurementSession = "marker_session"

	pingTimeout   = 2 * time.Second
	retentionDays = 90
)

// ErrNoSession is returned when a transition arrives outside a session.
var ErrNoSession = errors.New("no session started")

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Logger       zerolog.Logger

	cfg        config.InfluxConfig
	backupFile *os.File
	session    *core.Session
	mu         sync.Mutex
}

// NewManager creates a new InfluxDB manager. Nothing is contacted until Init.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		Logger: log,
	}
}

// URL returns the server address built from the config.
func (m *Manager) URL() string {
	return fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port)
}

// Init connects to the server, falling back to the backup file.
func (m *Manager) Init() error {
	return m.Connect(context.Background())
}

// Connect establishes a connection to InfluxDB. An unreachable server is not
// an error as long as the backup file can be opened.
func (m *Manager) Connect(ctx context.Context) error {
	m.Client = influxdb2.NewClientWithOptions(
		m.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	running, err := m.Client.Ping(pingCtx)
	cancel()

	if err != nil || !running {
		m.IsValid = false
		if err := m.openBackup(); err != nil {
			return err
		}
		m.Logger.Warn().Err(err).Str("backupPath", m.cfg.BackupPath).
			Msg("InfluxDB client failed to initialize, using backup writer")
		return nil
	}

	m.IsValid = true
	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	m.createWriter()
	m.Logger.Info().Str("url", m.URL()).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.BackupWriter != nil {
		return nil
	}
	if m.cfg.BackupPath == "" {
		return fmt.Errorf("influxdb unreachable and no backup path configured")
	}
	file, err := os.OpenFile(m.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgName := m.cfg.Org

	// ensure org exists
	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			return fmt.Errorf("error creating organization %s: %w", orgName, err)
		}
	}

	if _, err = m.Client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err == nil {
		return nil
	}

	m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")
	rule := domain.RetentionRuleTypeExpire
	_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, m.cfg.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: 60 * 60 * 24 * retentionDays,
	})
	if err != nil {
		return fmt.Errorf("error creating bucket %s: %w", m.cfg.Bucket, err)
	}
	return nil
}

func (m *Manager) createWriter() {
	m.Writer = m.Client.WriteAPI(m.cfg.Org, m.cfg.Bucket)

	errorsCh := m.Writer.Errors()
	go func() {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}()
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	if m.IsValid {
		if m.Writer == nil {
			return fmt.Errorf("influxDB writer not created")
		}
		m.Writer.WritePoint(point)
		return nil
	}

	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}
	lineProtocol := strings.TrimSuffix(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := m.BackupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// StartSession writes the session start point.
func (m *Manager) StartSession(s *core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = s
	return m.WritePoint(SessionPoint(s, "start", s.StartedAt))
}

// EndSession writes the session end point and flushes.
func (m *Manager) EndSession(s *core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return ErrNoSession
	}
	m.session = nil
	if err := m.WritePoint(SessionPoint(s, "end", s.EndedAt)); err != nil {
		return err
	}
	m.flush()
	return nil
}

// RecordTransition writes t, stamped with the current session.
func (m *Manager) RecordTransition(t *core.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return ErrNoSession
	}
	if t.SessionID == "" {
		t.SessionID = m.session.ID
	}
	return m.WritePoint(TransitionPoint(t))
}

func (m *Manager) flush() {
	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.BackupWriter != nil {
		if err := m.BackupWriter.Flush(); err != nil {
			m.Logger.Error().Err(err).Msg("Error flushing InfluxDB backup file")
		}
	}
}

// Close flushes pending points and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flush()
	if m.Client != nil {
		m.Client.Close()
		m.Client = nil
	}

	var errs []error
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}

// TransitionPoint converts t to a point. Low-cardinality values are tags,
// everything per-marker is a field.
func TransitionPoint(t *core.Transition) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		MeasurementTransition,
		tags(map[string]string{
			"session": t.SessionID,
			"cause":   string(t.Cause),
			"state":   t.State,
			"group":   t.GroupState,
		}),
		map[string]any{
			"marker_index": t.MarkerIndex,
			"z_index":      t.ZIndex,
			"label_class":  t.LabelClass,
			"flags":        strings.Join(t.Flags, ","),
			"lat":          t.Position.Lat,
			"lng":          t.Position.Lng,
		},
		t.Time,
	)
}

// SessionPoint converts a session boundary to a point.
func SessionPoint(s *core.Session, event string, at time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		MeasurementSession,
		tags(map[string]string{
			"session": s.ID,
			"event":   event,
		}),
		map[string]any{
			"source":  s.Source,
			"markers": s.Markers,
		},
		at,
	)
}

// line protocol has no empty tag values
func tags(m map[string]string) map[string]string {
	return lo.OmitByValues(m, []string{""})
}
