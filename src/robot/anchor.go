// Package robot resolves visual anchors on screen and replays scripted
// procedures against the legacy application. A failed anchor is handed to the
// operator as a retry/skip/cancel decision instead of failing outright.
package robot

import (
	"fmt"
	"time"

	"sefip-robot/src/screenshot"
)

const (
	DefaultConfidence   = 0.9
	DefaultTimeout      = 10 * time.Second
	DefaultPollInterval = 700 * time.Millisecond
)

// Action is what happens at an anchor once it has been located.
type Action int

const (
	ActNone Action = iota
	ActClick
	ActDoubleClick
)

func (a Action) String() string {
	switch a {
	case ActNone:
		return "none"
	case ActClick:
		return "click"
	case ActDoubleClick:
		return "double-click"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// AnchorSpec describes one template image the automation waits for.
// Name is the image file name inside the images directory.
type AnchorSpec struct {
	Name        string
	Confidence  float64
	Timeout     time.Duration
	Act         Action
	Recoverable bool
}

// Anchor returns a clickable, recoverable anchor with the default
// confidence and timeout.
func Anchor(name string) AnchorSpec {
	return AnchorSpec{
		Name:        name,
		Confidence:  DefaultConfidence,
		Timeout:     DefaultTimeout,
		Act:         ActClick,
		Recoverable: true,
	}
}

func (a AnchorSpec) WithTimeout(d time.Duration) AnchorSpec {
	a.Timeout = d
	return a
}

func (a AnchorSpec) WithConfidence(c float64) AnchorSpec {
	a.Confidence = c
	return a
}

func (a AnchorSpec) DoubleClick() AnchorSpec {
	a.Act = ActDoubleClick
	return a
}

// LocateOnly resolves the anchor without acting on it.
func (a AnchorSpec) LocateOnly() AnchorSpec {
	a.Act = ActNone
	return a
}

// Required makes a timeout fatal for the item; the operator is not asked.
func (a AnchorSpec) Required() AnchorSpec {
	a.Recoverable = false
	return a
}

// Validate checks the invariants confidence in (0,1] and timeout > 0.
func (a AnchorSpec) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("anchor without image name")
	}
	if a.Confidence <= 0 || a.Confidence > 1 {
		return fmt.Errorf("anchor %s: confidence %.2f outside (0,1]", a.Name, a.Confidence)
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("anchor %s: timeout must be positive, got %s", a.Name, a.Timeout)
	}
	return nil
}

// RecoveryChoice is the operator's answer after an anchor timed out.
type RecoveryChoice int

const (
	Retry RecoveryChoice = iota
	Skip
	Cancel
)

func (c RecoveryChoice) String() string {
	switch c {
	case Retry:
		return "retry"
	case Skip:
		return "skip"
	case Cancel:
		return "cancel"
	default:
		return fmt.Sprintf("choice(%d)", int(c))
	}
}

// StepStatus tags a StepOutcome.
type StepStatus int

const (
	// StepDone is a primitive (typing, keys, waits) that ran to completion.
	StepDone StepStatus = iota
	StepFound
	StepSkipped
	StepCancelled
)

func (s StepStatus) String() string {
	switch s {
	case StepDone:
		return "done"
	case StepFound:
		return "found"
	case StepSkipped:
		return "skipped"
	case StepCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// StepOutcome is the tagged result of one step. Point is only meaningful for
// StepFound; Anchor names the anchor that was found, skipped or cancelled.
type StepOutcome struct {
	Status StepStatus
	Anchor string
	Point  screenshot.Point
}

func Found(anchor string, p screenshot.Point) StepOutcome {
	return StepOutcome{Status: StepFound, Anchor: anchor, Point: p}
}

func Skipped(anchor string) StepOutcome {
	return StepOutcome{Status: StepSkipped, Anchor: anchor}
}

func Cancelled(anchor string) StepOutcome {
	return StepOutcome{Status: StepCancelled, Anchor: anchor}
}

func done() StepOutcome { return StepOutcome{Status: StepDone} }
