package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pinmap/pinstate/pkg/core"
)

// SessionExport is the root JSON structure of an exported session.
type SessionExport struct {
	SessionID   string           `json:"sessionId"`
	Source      string           `json:"source,omitempty"`
	StartedAt   time.Time        `json:"startedAt"`
	EndedAt     time.Time        `json:"endedAt"`
	Markers     int              `json:"markers"`
	Causes      map[string]int   `json:"causes"`
	Transitions []TransitionJSON `json:"transitions"`
}

// TransitionJSON is one exported transition.
type TransitionJSON struct {
	ID          uint      `json:"id"`
	Time        time.Time `json:"time"`
	MarkerIndex int       `json:"markerIndex"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Cause       string    `json:"cause"`
	State       string    `json:"state"`
	GroupState  string    `json:"groupState"`
	ZIndex      int       `json:"zIndex"`
	LabelClass  string    `json:"labelClass"`
}

// exportJSON writes the session to a JSON file, gzipped when configured.
func (b *Backend) exportJSON(s *core.Session) error {
	export := b.buildExport(s)

	timestamp := s.StartedAt.UTC().Format("20060102_150405")
	filename := fmt.Sprintf("transitions_%s_%s.json", timestamp, s.ID)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := writeJSON(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport(s *core.Session) SessionExport {
	export := SessionExport{
		SessionID:   s.ID,
		Source:      s.Source,
		StartedAt:   s.StartedAt,
		EndedAt:     s.EndedAt,
		Markers:     s.Markers,
		Causes:      make(map[string]int),
		Transitions: make([]TransitionJSON, 0, len(b.transitions)),
	}

	for _, t := range b.transitions {
		export.Causes[string(t.Cause)]++
		export.Transitions = append(export.Transitions, TransitionJSON{
			ID:          t.ID,
			Time:        t.Time,
			MarkerIndex: t.MarkerIndex,
			Lat:         t.Position.Lat,
			Lng:         t.Position.Lng,
			Cause:       string(t.Cause),
			State:       t.State,
			GroupState:  t.GroupState,
			ZIndex:      t.ZIndex,
			LabelClass:  t.LabelClass,
		})
	}

	return export
}

func writeJSON(path string, data SessionExport, compress bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	if !compress {
		return json.NewEncoder(f).Encode(data)
	}

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}
