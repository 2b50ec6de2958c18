package robot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sefip-robot/src/screenshot"
)

// Step is one primitive operation of a scripted procedure.
type Step interface {
	run(ctx context.Context, s *Session) (StepOutcome, error)
}

type stepFunc func(ctx context.Context, s *Session) (StepOutcome, error)

func (f stepFunc) run(ctx context.Context, s *Session) (StepOutcome, error) { return f(ctx, s) }

// Procedure is a fixed, unbranched sequence of steps for one business stage.
type Procedure struct {
	Name  string
	Steps []Step
}

// ProcedureStatus tags a ProcedureResult.
type ProcedureStatus int

const (
	ProcedureCompleted ProcedureStatus = iota
	ProcedureSkipped
	ProcedureCancelled
)

// ProcedureResult tells how far a procedure ran. Anchor is the anchor the
// operator skipped or cancelled on.
type ProcedureResult struct {
	Status ProcedureStatus
	Anchor string
}

// Session runs procedures for a single batch item. Create a fresh Session
// per item so nothing carries over between items.
type Session struct {
	exec *Executor
}

func NewSession(exec *Executor) *Session {
	return &Session{exec: exec}
}

// Run executes the steps in order. The first skipped or cancelled anchor ends
// the procedure; any other error is returned wrapped with the procedure name.
func (s *Session) Run(ctx context.Context, p Procedure) (ProcedureResult, error) {
	if p.Name != "" {
		s.exec.Log.Infof("Iniciando %s", p.Name)
	}
	for _, st := range p.Steps {
		out, err := st.run(ctx, s)
		switch out.Status {
		case StepSkipped:
			return ProcedureResult{Status: ProcedureSkipped, Anchor: out.Anchor}, nil
		case StepCancelled:
			return ProcedureResult{Status: ProcedureCancelled, Anchor: out.Anchor}, nil
		}
		if err != nil {
			if errors.Is(err, ErrCancelled) {
				return ProcedureResult{Status: ProcedureCancelled}, nil
			}
			return ProcedureResult{}, fmt.Errorf("%s: %w", p.Name, err)
		}
	}
	return ProcedureResult{Status: ProcedureCompleted}, nil
}

// Resolve waits for an anchor and applies its action.
func Resolve(a AnchorSpec) Step {
	return stepFunc(func(ctx context.Context, s *Session) (StepOutcome, error) {
		return s.exec.Resolve(ctx, a)
	})
}

// Click resolves a default anchor and clicks it.
func Click(name string) Step { return Resolve(Anchor(name)) }

// DoubleClick resolves a default anchor and double-clicks it.
func DoubleClick(name string) Step { return Resolve(Anchor(name).DoubleClick()) }

// ClickOffset locates the anchor without clicking it, then clicks at the
// anchor center shifted by (dx, dy). Used for fields labelled by the anchor.
func ClickOffset(a AnchorSpec, dx, dy int) Step {
	a = a.LocateOnly()
	return stepFunc(func(ctx context.Context, s *Session) (StepOutcome, error) {
		out, err := s.exec.Resolve(ctx, a)
		if err != nil || out.Status != StepFound {
			return out, err
		}
		target := screenshot.Point{X: out.Point.X + dx, Y: out.Point.Y + dy}
		if err := s.exec.Input.Click(target); err != nil {
			return StepOutcome{}, fmt.Errorf("clicar abaixo de %s: %w", a.Name, err)
		}
		return Found(a.Name, target), nil
	})
}

// Type sends literal text to the focused control.
func Type(text string) Step {
	return stepFunc(func(ctx context.Context, s *Session) (StepOutcome, error) {
		if err := ctx.Err(); err != nil {
			return StepOutcome{}, err
		}
		if err := s.exec.Input.Type(text); err != nil {
			return StepOutcome{}, fmt.Errorf("digitar texto: %w", err)
		}
		return done(), nil
	})
}

// Press taps keys one after the other.
func Press(keys ...string) Step {
	return stepFunc(func(ctx context.Context, s *Session) (StepOutcome, error) {
		if err := ctx.Err(); err != nil {
			return StepOutcome{}, err
		}
		if err := s.exec.Input.Press(keys...); err != nil {
			return StepOutcome{}, fmt.Errorf("pressionar %v: %w", keys, err)
		}
		return done(), nil
	})
}

// Hotkey sends a key chord such as ctrl+m.
func Hotkey(keys ...string) Step {
	return stepFunc(func(ctx context.Context, s *Session) (StepOutcome, error) {
		if err := ctx.Err(); err != nil {
			return StepOutcome{}, err
		}
		if err := s.exec.Input.Hotkey(keys...); err != nil {
			return StepOutcome{}, fmt.Errorf("atalho %v: %w", keys, err)
		}
		return done(), nil
	})
}

// Wait pauses the procedure.
func Wait(d time.Duration) Step {
	return stepFunc(func(ctx context.Context, s *Session) (StepOutcome, error) {
		if err := s.exec.sleep(ctx, d); err != nil {
			return StepOutcome{}, err
		}
		return done(), nil
	})
}

// Note writes a line to the event log.
func Note(msg string) Step {
	return stepFunc(func(ctx context.Context, s *Session) (StepOutcome, error) {
		s.exec.Log.Infof("%s", msg)
		return done(), nil
	})
}
