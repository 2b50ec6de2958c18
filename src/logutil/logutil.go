package logutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	debugLogName = "sefip_robot_debug.log"
	maxSizeBytes = 10 * 1024 * 1024 // 10 MB
	maxArchives  = 3

	fileTimeFormat = "2006-01-02 15:04:05"
	viewTimeFormat = "15:04:05"
)

// Setup returns the application diagnostics logger. With file logging on it
// writes to a size-rotated file in dir (10MB, max 3 archives); otherwise
// output is discarded to keep stdout clean.
func Setup(enableFileLogging bool, dir string) zerolog.Logger {
	if !enableFileLogging {
		return zerolog.New(io.Discard)
	}
	name := filepath.Join(dir, debugLogName)
	rotateIfNeeded(name)
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return zerolog.New(&rotatingWriter{name: name, f: f}).With().Timestamp().Caller().Logger()
}

type rotatingWriter struct {
	mu   sync.Mutex
	name string
	f    *os.File
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	// naive rotation check per write
	if st, err := w.f.Stat(); err == nil && st.Size()+int64(len(p)) > maxSizeBytes {
		_ = w.f.Close()
		rotate(w.name)
		nf, err := os.OpenFile(w.name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return 0, err
		}
		w.f = nf
	}
	return w.f.Write(p)
}

func rotateIfNeeded(name string) {
	if st, err := os.Stat(name); err == nil && st.Size() > maxSizeBytes {
		rotate(name)
	}
}

// rotate shifts name to .1, .2, .3; the oldest is discarded.
func rotate(name string) {
	_ = os.Remove(archiveName(name, maxArchives))
	for i := maxArchives - 1; i >= 1; i-- {
		_ = os.Rename(archiveName(name, i), archiveName(name, i+1))
	}
	_ = os.Rename(name, archiveName(name, 1))
}

func archiveName(name string, n int) string { return fmt.Sprintf("%s.%d", name, n) }

// EventLogName returns the per-run event log file name for a run started at t.
func EventLogName(t time.Time) string {
	return "execucao_" + t.Format("20060102_150405") + ".log"
}

// Events is the per-run event log. Every entry goes to the zerolog file
// logger and, when a sink is attached, to the live view as "HH:MM:SS - msg".
type Events struct {
	log  zerolog.Logger
	file *os.File
	path string
	now  func() time.Time

	mu   sync.Mutex
	sink func(line string)
}

// Open creates dir/execucao_<start>.log. With verbose set, entries are
// mirrored to stderr.
func Open(dir string, start time.Time, runID string, verbose bool) (*Events, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("erro ao criar pasta de logs: %w", err)
	}
	path := filepath.Join(dir, EventLogName(start))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar log de execução: %w", err)
	}

	var w io.Writer = zerolog.ConsoleWriter{Out: f, NoColor: true, TimeFormat: fileTimeFormat}
	if verbose {
		w = zerolog.MultiLevelWriter(w, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: viewTimeFormat})
	}
	logger := zerolog.New(w).With().Timestamp().Str("run", shortID(runID)).Logger()

	e := New(logger)
	e.file, e.path = f, path
	return e, nil
}

// New wraps an existing logger, e.g. zerolog.Nop() in tests.
func New(logger zerolog.Logger) *Events {
	return &Events{log: logger, now: time.Now}
}

// SetSink attaches the live view. Pass nil to detach.
func (e *Events) SetSink(fn func(line string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = fn
}

func (e *Events) Infof(format string, args ...any) {
	msg := Sanitize(fmt.Sprintf(format, args...))
	e.log.Info().Msg(msg)
	e.emit(e.stamp(msg))
}

func (e *Events) Warnf(format string, args ...any) {
	msg := Sanitize(fmt.Sprintf(format, args...))
	e.log.Warn().Msg(msg)
	e.emit(e.stamp(msg))
}

func (e *Events) Errorf(format string, args ...any) {
	msg := Sanitize(fmt.Sprintf(format, args...))
	e.log.Error().Msg(msg)
	e.emit(e.stamp(msg))
}

// Line writes text as-is, for banners and separators.
func (e *Events) Line(text string) {
	text = Sanitize(text)
	e.log.Info().Msg(text)
	e.emit(text)
}

func (e *Events) stamp(msg string) string {
	return e.now().Format(viewTimeFormat) + " - " + msg
}

func (e *Events) emit(line string) {
	e.mu.Lock()
	sink := e.sink
	e.mu.Unlock()
	if sink != nil {
		sink(line)
	}
}

// Path returns the log file, empty for loggers built with New.
func (e *Events) Path() string { return e.path }

func (e *Events) Close() error {
	if e.file == nil {
		return nil
	}
	return e.file.Close()
}

// Sanitize replaces control characters so one event stays on one line.
func Sanitize(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r == '\n' || r == '\r':
			b.WriteString("\\n")
		case r == '\t':
			b.WriteString("\\t")
		case r < 32 || r == 127:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
