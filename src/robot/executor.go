package robot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sefip-robot/src/screenshot"
)

// Locator finds a template image on the current screen. ok=false with a nil
// error means "not on screen right now".
type Locator interface {
	Locate(ctx context.Context, templatePath string, confidence float64) (p screenshot.Point, ok bool, err error)
}

// Input synthesizes pointer and keyboard events on the focused application.
type Input interface {
	Click(p screenshot.Point) error
	DoubleClick(p screenshot.Point) error
	Type(text string) error
	// Press taps each key in order.
	Press(keys ...string) error
	// Hotkey holds the leading keys as modifiers and taps the last one.
	Hotkey(keys ...string) error
}

// Decider asks the operator what to do about an anchor that was not found.
// It blocks until the operator answers.
type Decider interface {
	Decide(ctx context.Context, anchor string) (RecoveryChoice, error)
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(ctx context.Context, anchor string) (RecoveryChoice, error)

func (f DeciderFunc) Decide(ctx context.Context, anchor string) (RecoveryChoice, error) {
	return f(ctx, anchor)
}

// Logger receives one line per executor event.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Executor resolves anchors: it polls the Locator until the anchor shows up
// or the timeout window closes, then acts on it or escalates to the Decider.
type Executor struct {
	ImagesDir    string
	Locator      Locator
	Input        Input
	Decider      Decider
	Log          Logger
	PollInterval time.Duration

	// Clock seams; nil means wall clock.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// TemplatePath returns the image file backing an anchor.
func (e *Executor) TemplatePath(name string) string {
	return filepath.Join(e.ImagesDir, name)
}

// Resolve waits for the anchor and performs its action. The outcome is
// Found, Skipped, or Cancelled (paired with ErrCancelled). A missing template
// yields a *ConfigError regardless of Recoverable; a non-recoverable timeout
// yields a *NotFoundError without consulting the Decider.
func (e *Executor) Resolve(ctx context.Context, a AnchorSpec) (StepOutcome, error) {
	if err := a.Validate(); err != nil {
		return StepOutcome{}, &ConfigError{Err: err}
	}

	path := e.TemplatePath(a.Name)
	if _, err := os.Stat(path); err != nil {
		e.Log.Errorf("ERRO: Arquivo não encontrado: %s", path)
		return StepOutcome{}, &ConfigError{Path: path, Err: err}
	}

	for {
		p, ok, err := e.poll(ctx, path, a)
		if err != nil {
			return StepOutcome{}, err
		}
		if ok {
			if err := e.act(a, p); err != nil {
				return StepOutcome{}, fmt.Errorf("acionar %s: %w", a.Name, err)
			}
			e.Log.Infof("Sucesso: %s", a.Name)
			return Found(a.Name, p), nil
		}

		e.Log.Warnf("⚠ Não encontrou %s na tela após %s", a.Name, a.Timeout)
		if !a.Recoverable {
			return StepOutcome{}, &NotFoundError{Anchor: a.Name, Timeout: a.Timeout}
		}

		choice, err := e.Decider.Decide(ctx, a.Name)
		if err != nil {
			return StepOutcome{}, fmt.Errorf("aguardando decisão sobre %s: %w", a.Name, err)
		}
		switch choice {
		case Retry:
			e.Log.Infof("↻ Tentando novamente localizar: %s", a.Name)
		case Skip:
			e.Log.Warnf("⏭ Pulando imagem: %s", a.Name)
			return Skipped(a.Name), nil
		default:
			e.Log.Warnf("✖ Processamento cancelado pelo usuário")
			return Cancelled(a.Name), ErrCancelled
		}
	}
}

// poll runs one timeout window. Locator errors are logged and count as a
// miss for that tick; only context cancellation ends the window early.
func (e *Executor) poll(ctx context.Context, path string, a AnchorSpec) (screenshot.Point, bool, error) {
	deadline := e.now().Add(a.Timeout)
	for e.now().Before(deadline) {
		p, ok, err := e.Locator.Locate(ctx, path, a.Confidence)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return screenshot.Point{}, false, ctx.Err()
			}
			e.Log.Warnf("Erro ao localizar %s: %v", a.Name, err)
		case ok:
			return p, true, nil
		}
		if err := e.sleep(ctx, e.pollInterval()); err != nil {
			return screenshot.Point{}, false, err
		}
	}
	return screenshot.Point{}, false, nil
}

func (e *Executor) act(a AnchorSpec, p screenshot.Point) error {
	switch a.Act {
	case ActClick:
		return e.Input.Click(p)
	case ActDoubleClick:
		return e.Input.DoubleClick(p)
	default:
		return nil
	}
}

func (e *Executor) pollInterval() time.Duration {
	if e.PollInterval > 0 {
		return e.PollInterval
	}
	return DefaultPollInterval
}

func (e *Executor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

// SleepContext sleeps for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
