// Package logging builds the per-run audit log.
//
// Every run writes one append-only text file named after its start time. Each
// line reads "<timestamp> - <LEVEL> - <message>" followed by any structured
// fields as key=value pairs.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// FilePrefix and FileTimeLayout name the run log file.
	FilePrefix     = "image_processor_"
	FileTimeLayout = "20060102_150405"

	// TimeLayout is the timestamp layout written on every line.
	TimeLayout = "2006-01-02 15:04:05"
)

// RunLog is an open run log file and the logger writing to it.
type RunLog struct {
	Path   string
	Logger zerolog.Logger
	file   *os.File
}

// FileName returns the run log file name for a run started at now.
func FileName(now time.Time) string {
	return FilePrefix + now.Format(FileTimeLayout) + ".log"
}

// NewRunLog creates the run log file inside dir and returns a logger bound to it.
func NewRunLog(dir, level string, now time.Time) (*RunLog, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, FileName(now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log %s: %w", path, err)
	}

	return &RunLog{
		Path:   path,
		Logger: New(f, lvl),
		file:   f,
	}, nil
}

// Close flushes and closes the underlying file.
func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	if err := r.file.Sync(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// New returns a logger writing audit-formatted lines to out.
func New(out io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(NewWriter(out)).Level(level).With().Timestamp().Logger()
}

// NewWriter returns a console writer producing "<ts> - <LEVEL> - <msg>" lines.
func NewWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    true,
		TimeFormat: TimeLayout,
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			zerolog.MessageFieldName,
		},
		FormatLevel: func(i interface{}) string {
			lvl, _ := i.(string)
			if lvl == "" {
				lvl = "???"
			}
			return "- " + strings.ToUpper(lvl) + " -"
		},
	}
}

// ParseLevel maps a config level string to a zerolog level. Empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}
