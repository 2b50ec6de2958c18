package messages

import "sefip-robot/src/robot"

// Message is the base interface for everything the batch worker sends to
// the presentation layer.
type Message interface {
	Type() string
}

// MessageType constants for type identification
const (
	TypeDecisionNeeded = "DecisionNeeded"
	TypeConfirmNeeded  = "ConfirmNeeded"
	TypeProgress       = "Progress"
	TypeLogLine        = "LogLine"
	TypeRunFinished    = "RunFinished"
)

// DecisionNeeded - sent when an anchor was not found; the worker is
// suspended until a choice arrives on Reply.
type DecisionNeeded struct {
	Anchor string
	Reply  chan<- robot.RecoveryChoice
}

func (m DecisionNeeded) Type() string { return TypeDecisionNeeded }

// ConfirmNeeded - sent after a partial or failed item to ask whether the
// batch goes on.
type ConfirmNeeded struct {
	Title string
	Body  string
	Reply chan<- bool
}

func (m ConfirmNeeded) Type() string { return TypeConfirmNeeded }

// Progress - percent complete and the status label for the current item
type Progress struct {
	Percent float64
	Label   string
}

func (m Progress) Type() string { return TypeProgress }

// LogLine - one line for the live event view
type LogLine struct {
	Text string
}

func (m LogLine) Type() string { return TypeLogLine }

// RunFinished - sent once when a batch run is over
type RunFinished struct {
	Summary   string
	AuditPath string
	Err       error
}

func (m RunFinished) Type() string { return TypeRunFinished }
