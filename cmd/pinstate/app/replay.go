package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/pinmap/pinstate/internal/api"
	"github.com/pinmap/pinstate/internal/config"
	"github.com/pinmap/pinstate/internal/journal"
	"github.com/pinmap/pinstate/internal/logging"
	intOtel "github.com/pinmap/pinstate/internal/otel"
	"github.com/pinmap/pinstate/internal/storage"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const logName = "pinstate"

type replayOptions struct {
	configDir string
	points    string
	script    string
	page      string
	htmlOut   string
	format    string
	noJournal bool
	metrics   bool
}

func newReplayCmd() *cobra.Command {
	opts := &replayOptions{}
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay scripted interactions against a set of points",
		Long: `replay renders the points, applies each scripted interaction in order and
prints the resulting document and per-marker state. Every visual transition
is written to the configured journal backend.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := cmd.Flags().GetString("config-dir")
			if err != nil {
				return err
			}
			opts.configDir = dir
			return runReplay(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.points, "points", "", "JSON file with the point records")
	cmd.Flags().StringVar(&opts.script, "script", "", "JSON file with the interaction script")
	cmd.Flags().StringVar(&opts.page, "page", "", "HTML page hosting the hover proxies (optional)")
	cmd.Flags().StringVar(&opts.htmlOut, "html-out", "", "Write the final document here instead of stdout")
	cmd.Flags().StringVar(&opts.format, "format", "table", "Marker state output format (table, json)")
	cmd.Flags().BoolVar(&opts.noJournal, "no-journal", false, "Do not record transitions")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "Print instrument totals after the replay")
	_ = cmd.MarkFlagRequired("points")
	_ = cmd.MarkFlagRequired("script")

	return cmd
}

// runtime holds the ambient services a replay runs with.
type runtime struct {
	slog     *logging.SlogManager
	logger   *slog.Logger
	zlog     zerolog.Logger
	otel     *intOtel.Provider
	metrics  *intOtel.Metrics
	closers  []io.Closer
	backend  storage.Backend
	recorder *journal.Recorder
}

func (rt *runtime) close(ctx context.Context) {
	if rt.backend != nil {
		if err := rt.backend.Close(); err != nil {
			rt.logger.Error("Failed to close storage backend", "error", err)
		}
	}
	if rt.metrics != nil {
		if err := rt.metrics.Shutdown(ctx); err != nil {
			rt.logger.Error("Failed to shut down meter provider", "error", err)
		}
	}
	if rt.otel != nil {
		if err := rt.otel.Shutdown(ctx); err != nil {
			rt.logger.Error("Failed to shut down OTel provider", "error", err)
		}
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		_ = rt.closers[i].Close()
	}
}

func setupRuntime(opts *replayOptions, start time.Time) (*runtime, error) {
	rt := &runtime{slog: logging.NewSlogManager()}
	rt.slog.Setup(os.Stderr, "info", nil)
	rt.logger = rt.slog.Logger()

	// load config
	if err := config.Load(opts.configDir); err != nil {
		rt.logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		rt.logger.Info("Loaded config", "dir", opts.configDir)
	}

	lc := config.GetLoggingConfig()
	if err := os.MkdirAll(lc.Dir, 0755); err != nil {
		return nil, fmt.Errorf("creating logs dir: %w", err)
	}
	logPath := logging.LogFilePath(lc.Dir, logName, start)
	logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	rt.closers = append(rt.closers, logFile)

	// Initialize OTel provider if enabled
	var provider *sdklog.LoggerProvider
	oc := config.GetOTelConfig()
	if oc.Enabled {
		rt.otel, err = intOtel.New(intOtel.Config{
			Enabled:      oc.Enabled,
			ServiceName:  oc.ServiceName,
			BatchTimeout: oc.BatchTimeout,
			LogWriter:    logFile,
			Endpoint:     oc.Endpoint,
			Insecure:     oc.Insecure,
		})
		if err != nil {
			rt.logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			provider = rt.otel.LoggerProvider()
		}
	}

	if opts.metrics {
		rt.metrics, err = intOtel.NewMetrics(oc.ServiceName)
		if err != nil {
			return nil, err
		}
	}

	rt.slog.Setup(logFile, lc.Level, provider)
	rt.logger = rt.slog.Logger()
	rt.logger.Info("Logging to file", "path", logPath)

	zcfg := logging.ZerologConfig{Level: lc.Level, File: logFile}
	if lc.GraylogEnabled {
		zcfg.GraylogAddress = lc.GraylogAddress
	}
	zlog, gelfCloser, err := logging.NewZerolog(zcfg)
	if err != nil {
		rt.logger.Error("Failed to set up Graylog output", "error", err)
		zcfg.GraylogAddress = ""
		zlog, gelfCloser, _ = logging.NewZerolog(zcfg)
	}
	rt.zlog = zlog.With().Str("service", logName).Logger()
	rt.closers = append(rt.closers, gelfCloser)

	return rt, nil
}

func (rt *runtime) startJournal(source string) error {
	sc := config.GetStorageConfig()
	backend, err := storage.NewBackend(sc, rt.zlog)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("initializing %s backend: %w", sc.Type, err)
	}
	rt.backend = backend
	rt.logger.Info("Storage backend initialized", "type", sc.Type)

	rt.recorder, err = journal.New(backend, source, rt.logger)
	return err
}

func runReplay(ctx context.Context, out io.Writer, opts *replayOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	rt, err := setupRuntime(opts, start)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	points, err := LoadPoints(opts.points)
	if err != nil {
		return err
	}
	script, err := LoadScript(opts.script)
	if err != nil {
		return err
	}

	if !opts.noJournal {
		if err := rt.startJournal(opts.script); err != nil {
			return err
		}
	}

	sceneOpts := SceneOptions{
		BusLogger:   logging.NewBusLogger(rt.zlog),
		Logger:      rt.logger,
		Spider:      spiderConfig(config.GetSpiderConfig()),
		Coordinator: coordinatorConfig(config.GetLayerConfig(), config.GetCoordinatorConfig()),
	}
	if rt.recorder != nil {
		sceneOpts.Recorder = rt.recorder
	}
	if opts.page != "" {
		f, err := os.Open(opts.page)
		if err != nil {
			return fmt.Errorf("opening page: %w", err)
		}
		defer f.Close()
		sceneOpts.Page = f
	}

	scene, err := NewScene(sceneOpts)
	if err != nil {
		return err
	}
	rt.slog.SetContextProvider(scene.Coordinator.LogAttrs)

	markers := scene.Render(points)
	rt.logger.Info("Rendered points", "count", len(markers))

	if err := scene.Run(script); err != nil {
		return err
	}
	rt.logger.Info("Script replayed", "steps", len(script.Steps), "duration", time.Since(start))

	if err := writeDocument(scene, out, opts.htmlOut); err != nil {
		return err
	}
	if err := writeReport(out, scene.Report(), opts.format); err != nil {
		return err
	}
	if legs := scene.Legs(sceneOpts.Spider.Zoom); len(legs) > 0 && opts.format != "json" {
		if err := writeLegs(out, legs); err != nil {
			return err
		}
	}
	if rt.metrics != nil {
		totals, err := rt.metrics.Totals(ctx)
		if err != nil {
			return err
		}
		if err := writeMetrics(out, totals); err != nil {
			return err
		}
	}

	scene.Close()
	if rt.recorder != nil {
		if err := rt.recorder.End(len(markers)); err != nil {
			return err
		}
		rt.upload(ctx, api.Session{
			ID:       rt.recorder.SessionID(),
			Source:   opts.script,
			Markers:  len(markers),
			Duration: time.Since(start),
		})
	}
	return rt.slog.Flush(ctx)
}

// upload sends the exported session to the collector when configured.
// Failures are logged; the local export is already on disk.
func (rt *runtime) upload(ctx context.Context, session api.Session) {
	ac := config.GetAPIConfig()
	if !ac.Upload {
		return
	}
	exp, ok := rt.backend.(storage.Exporter)
	if !ok || exp.ExportedFilePath() == "" {
		rt.logger.Warn("Upload enabled but the storage backend exports no file")
		return
	}
	session.Export = exp.ExportedFilePath()

	client := api.New(ac.ServerURL, ac.APIKey)
	if err := client.Healthcheck(ctx); err != nil {
		rt.logger.Error("Skipping upload", "error", err)
		return
	}
	if err := client.UploadSession(ctx, session); err != nil {
		var rejected *api.RejectedError
		if errors.As(err, &rejected) {
			rt.logger.Error("Collector rejected session", "session", rejected.SessionID, "status", rejected.StatusCode, "body", rejected.Body)
			return
		}
		rt.logger.Error("Failed to upload session", "error", err, "file", session.Export)
		return
	}
	rt.logger.Info("Uploaded session", "session", session.ID, "server", ac.ServerURL)
}

func writeDocument(scene *Scene, out io.Writer, path string) error {
	if path == "" {
		if err := scene.Doc.Render(out); err != nil {
			return fmt.Errorf("rendering document: %w", err)
		}
		_, err := fmt.Fprintln(out)
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := scene.Doc.Render(f); err != nil {
		return fmt.Errorf("rendering document: %w", err)
	}
	return nil
}

func writeReport(out io.Writer, report []MarkerReport, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "table", "":
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "INDEX\tSTATE\tZ\tLABEL\tLAT\tLNG")
		for _, r := range report {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%.6f\t%.6f\n",
				r.Index, r.State, r.ZIndex, r.LabelClass, r.Position.Lat, r.Position.Lng)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeLegs(out io.Writer, legs []LegReport) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LEG\tPIXELS")
	for _, l := range legs {
		fmt.Fprintf(tw, "%d\t%.1f\n", l.Index, l.Pixels)
	}
	return tw.Flush()
}

func writeMetrics(out io.Writer, totals map[string]int64) error {
	names := lo.Keys(totals)
	sort.Strings(names)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tVALUE")
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%d\n", name, totals[name])
	}
	return tw.Flush()
}
