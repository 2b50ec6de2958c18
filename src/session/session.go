// Package session runs one batch end to end: it opens the run's event log
// and audit trail, loads the batch file and drives the runner with the real
// screen, input and operator wired in.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"sefip-robot/src/audit"
	"sefip-robot/src/batch"
	"sefip-robot/src/clipboard"
	"sefip-robot/src/config"
	"sefip-robot/src/history"
	"sefip-robot/src/input"
	"sefip-robot/src/locator"
	"sefip-robot/src/logutil"
	"sefip-robot/src/robot"
	"sefip-robot/src/runner"
	"sefip-robot/src/sefip"
)

var ErrBatchRequired = errors.New("selecione um arquivo CSV")

type Options struct {
	Config    *config.Config
	BatchPath string
	Verbose   bool

	Decider  robot.Decider
	Confirm  runner.Confirmer
	Progress runner.ProgressFunc
	// OnLine receives every live log line.
	OnLine func(line string)

	// Seams; nil uses the real implementation.
	Locator   robot.Locator
	Input     robot.Input
	Plan      runner.Plan
	Now       func() time.Time
	Sleep     func(ctx context.Context, d time.Duration) error
	Clipboard func(text string) error
}

type Result struct {
	RunID     string
	AuditPath string
	LogPath   string
	Summary   runner.Summary
}

// Execute runs the batch at opts.BatchPath. Critical failures (images
// directory, log or audit file, unreadable batch) are returned before any
// item starts; per-item problems end up in the audit trail.
func Execute(ctx context.Context, opts Options) (Result, error) {
	if opts.Config == nil {
		return Result{}, errors.New("Config is required")
	}
	if opts.BatchPath == "" {
		return Result{}, ErrBatchRequired
	}
	if opts.Decider == nil {
		return Result{}, errors.New("Decider is required")
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	start := now()
	res := Result{RunID: uuid.NewString()}

	events, err := logutil.Open(cfg.LogDir, start, res.RunID, opts.Verbose)
	if err != nil {
		return res, err
	}
	defer events.Close()
	events.SetSink(opts.OnLine)
	res.LogPath = events.Path()

	aw, err := audit.Create(filepath.Join(cfg.LogDir, audit.FileName(start)))
	if err != nil {
		events.Errorf("ERRO CRÍTICO: %v", err)
		return res, err
	}
	defer aw.Close()
	res.AuditPath = aw.Path()

	var sink audit.Sink = aw
	var hist runner.History
	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB, res.RunID)
		if err != nil {
			events.Warnf("Histórico desativado: %v", err)
		} else {
			defer store.Close()
			events.Infof("Histórico: %s", store.Path())
			sink = audit.Tee{aw, store}
			hist = store
		}
	}

	items, err := batch.Load(opts.BatchPath)
	if err != nil {
		events.Errorf("ERRO CRÍTICO: %v", err)
		return res, err
	}

	loc := opts.Locator
	if loc == nil {
		m := locator.New(events)
		m.DebugDir = cfg.DebugDir()
		watchCtx, stop := context.WithCancel(ctx)
		defer stop()
		go func() {
			if err := m.Watch(watchCtx, cfg.ImagesDir); err != nil {
				events.Warnf("Monitor de imagens desativado: %v", err)
			}
		}()
		loc = m
	}
	in := opts.Input
	if in == nil {
		in = input.New(cfg.ActionPause)
	}
	plan := opts.Plan
	if plan == nil {
		plan = sefip.Plan(sefip.Config{BaseDir: cfg.TargetBaseDir, FileName: cfg.TargetFileName})
	}

	r := &runner.Runner{
		Plan: plan,
		NewSession: func() *robot.Session {
			return robot.NewSession(&robot.Executor{
				ImagesDir:    cfg.ImagesDir,
				Locator:      loc,
				Input:        in,
				Decider:      opts.Decider,
				Log:          events,
				PollInterval: cfg.PollInterval,
				Now:          opts.Now,
				Sleep:        opts.Sleep,
			})
		},
		Audit:     sink,
		Confirm:   opts.Confirm,
		Progress:  opts.Progress,
		Log:       events,
		History:   hist,
		AuditPath: res.AuditPath,
		Now:       now,
	}

	res.Summary, err = r.Run(ctx, items)
	if err != nil {
		return res, fmt.Errorf("processamento interrompido: %w", err)
	}

	copyPath := opts.Clipboard
	if copyPath == nil {
		copyPath = clipboard.Write
	}
	if err := copyPath(res.AuditPath); err != nil {
		events.Warnf("Não foi possível copiar o caminho do log: %v", err)
	}
	return res, nil
}
