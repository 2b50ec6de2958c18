// Package audit keeps the per-run CSV trail: one row per batch item that was
// started, written as soon as the item's outcome is known.
package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"
)

// TimeLayout is the timestamp format of the inicio/fim columns.
const TimeLayout = "2006-01-02 15:04:05"

// Status values written to the status column.
const (
	StatusSuccess   = "sucesso"
	StatusPartial   = "parcial - pulou etapa"
	StatusCancelled = "cancelado"
	statusErrPrefix = "erro: "
)

// ParseTime parses an inicio/fim column in local time.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, time.Local)
}

// ErrorStatus renders a failure status.
func ErrorStatus(msg string) string { return statusErrPrefix + msg }

// Header is the first row of every audit file.
var Header = []string{"inicio", "competencia", "valor", "fim", "status"}

// Record is one audit row.
type Record struct {
	Start  time.Time
	Period string
	Amount string
	End    time.Time
	Status string
}

func (r Record) row() []string {
	return []string{
		r.Start.Format(TimeLayout),
		r.Period,
		r.Amount,
		r.End.Format(TimeLayout),
		r.Status,
	}
}

// Sink accepts audit records in processing order.
type Sink interface {
	Append(rec Record) error
}

// FileName returns the audit file name for a run started at t.
func FileName(t time.Time) string {
	return "processamento_" + t.Format("20060102_150405") + ".csv"
}

// Writer appends records to a CSV file, flushing and syncing each row so a
// crash mid-batch keeps every finished item. Rows end in CRLF for Excel.
type Writer struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *csv.Writer
}

// Create truncates path and writes the header row.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar log CSV: %w", err)
	}
	cw := csv.NewWriter(f)
	cw.UseCRLF = true
	w := &Writer{path: path, f: f, w: cw}
	if err := w.write(Header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("erro ao criar log CSV: %w", err)
	}
	return w, nil
}

// Path returns the file being written.
func (w *Writer) Path() string { return w.path }

func (w *Writer) Append(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.write(rec.row()); err != nil {
		return fmt.Errorf("erro ao registrar no log CSV: %w", err)
	}
	return nil
}

func (w *Writer) write(row []string) error {
	if err := w.w.Write(row); err != nil {
		return err
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return err
	}
	return w.f.Sync()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// Tee appends each record to every sink, in order. All sinks are attempted;
// the first error is returned.
type Tee []Sink

func (t Tee) Append(rec Record) error {
	var first error
	for _, s := range t {
		if s == nil {
			continue
		}
		if err := s.Append(rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}
