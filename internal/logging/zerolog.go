package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
)

// ZerologConfig configures the zerolog logger used by the storage layer.
type ZerologConfig struct {
	Level   string
	Console io.Writer // colored console output, optional
	File    io.Writer // plain console format, optional

	// GraylogAddress enables GELF output over UDP when set.
	GraylogAddress string

	// Fields, if set, adds fields to every event.
	Fields func(e *zerolog.Event)
}

// ParseZerologLevel converts a config log level to a zerolog.Level.
func ParseZerologLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewZerolog builds a zerolog.Logger writing to every configured output. The
// returned closer releases the Graylog connection and is never nil.
func NewZerolog(cfg ZerologConfig) (zerolog.Logger, io.Closer, error) {
	var writers []io.Writer
	if cfg.Console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: cfg.Console, TimeFormat: time.RFC3339})
	}
	if cfg.File != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: cfg.File, TimeFormat: time.RFC3339, NoColor: true})
	}

	var closer io.Closer = nopCloser{}
	if cfg.GraylogAddress != "" {
		gw, err := gelf.NewWriter(cfg.GraylogAddress)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("connecting to graylog at %s: %w", cfg.GraylogAddress, err)
		}
		writers = append(writers, gw)
		closer = gw
	}
	if len(writers) == 0 {
		return zerolog.Nop(), closer, nil
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseZerologLevel(cfg.Level)).
		With().Timestamp().Logger()
	if cfg.Fields != nil {
		logger = logger.Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			cfg.Fields(e)
		}))
	}
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
