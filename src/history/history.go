// Package history keeps every audit row of every run in a local SQLite
// database so operators can see which competências were already sent.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"sefip-robot/src/audit"
)

// Store appends audit records for one run and answers lookups across runs.
type Store struct {
	db     *sql.DB
	dbPath string
	runID  string
	mu     sync.Mutex
}

// Open creates or opens the history database. Records appended through the
// returned store are tagged with runID.
func Open(dbPath, runID string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; the GUI and the worker never race on the file
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: dbPath, runID: runID}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS processamento (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		inicio TEXT NOT NULL,
		competencia TEXT NOT NULL,
		valor TEXT NOT NULL,
		fim TEXT NOT NULL,
		status TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_processamento_competencia ON processamento(competencia);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *Store) Path() string { return s.dbPath }

func (s *Store) Close() error { return s.db.Close() }

// Append implements audit.Sink.
func (s *Store) Append(rec audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO processamento (run_id, inicio, competencia, valor, fim, status) VALUES (?, ?, ?, ?, ?, ?)`,
		s.runID,
		rec.Start.Format(audit.TimeLayout),
		rec.Period,
		rec.Amount,
		rec.End.Format(audit.TimeLayout),
		rec.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", rec.Period, err)
	}
	return nil
}

// LastSuccess returns the end time of the latest successful run of period,
// excluding the current run.
func (s *Store) LastSuccess(period string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var end string
	err := s.db.QueryRow(
		`SELECT fim FROM processamento WHERE competencia = ? AND status = ? AND run_id <> ? ORDER BY id DESC LIMIT 1`,
		period, audit.StatusSuccess, s.runID,
	).Scan(&end)
	switch {
	case err == sql.ErrNoRows:
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("failed to query history: %w", err)
	}
	return end, true, nil
}

// Entry is one stored row.
type Entry struct {
	RunID string
	audit.Record
}

// Recent returns up to limit rows, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(
		`SELECT run_id, inicio, competencia, valor, fim, status FROM processamento ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var start, end string
		if err := rows.Scan(&e.RunID, &start, &e.Period, &e.Amount, &end, &e.Status); err != nil {
			return nil, err
		}
		e.Start, _ = audit.ParseTime(start)
		e.End, _ = audit.ParseTime(end)
		out = append(out, e)
	}
	return out, rows.Err()
}
