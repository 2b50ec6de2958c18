package messages

import (
	"context"
	"errors"

	"sefip-robot/src/robot"
)

// ErrStopped is returned to a worker waiting on the operator after the
// presentation side went away.
var ErrStopped = errors.New("interface encerrada")

// Bridge carries messages from the batch worker to the presentation layer.
// Prompts are request/response: the worker blocks until the reply arrives,
// its context ends or the bridge is stopped.
type Bridge struct {
	out  chan Message
	done chan struct{}
}

// NewBridge creates a bridge whose outbound queue holds buffer messages.
func NewBridge(buffer int) *Bridge {
	return &Bridge{out: make(chan Message, buffer), done: make(chan struct{})}
}

// Messages is read by the presentation loop.
func (b *Bridge) Messages() <-chan Message { return b.out }

// Stop releases every blocked sender. It must be called once.
func (b *Bridge) Stop() { close(b.done) }

// Decide implements robot.Decider.
func (b *Bridge) Decide(ctx context.Context, anchor string) (robot.RecoveryChoice, error) {
	reply := make(chan robot.RecoveryChoice, 1)
	if err := b.send(ctx, DecisionNeeded{Anchor: anchor, Reply: reply}); err != nil {
		return robot.Cancel, err
	}
	select {
	case c := <-reply:
		return c, nil
	case <-ctx.Done():
		return robot.Cancel, ctx.Err()
	case <-b.done:
		return robot.Cancel, ErrStopped
	}
}

// Confirm asks a yes/no question.
func (b *Bridge) Confirm(ctx context.Context, title, body string) (bool, error) {
	reply := make(chan bool, 1)
	if err := b.send(ctx, ConfirmNeeded{Title: title, Body: body, Reply: reply}); err != nil {
		return false, err
	}
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-b.done:
		return false, ErrStopped
	}
}

// Progress reports progress; it never blocks the worker for long.
func (b *Bridge) Progress(percent float64, label string) {
	_ = b.send(context.Background(), Progress{Percent: percent, Label: label})
}

// Line forwards a live log line.
func (b *Bridge) Line(text string) {
	_ = b.send(context.Background(), LogLine{Text: text})
}

// Finish announces the end of a run.
func (b *Bridge) Finish(summary, auditPath string, err error) {
	_ = b.send(context.Background(), RunFinished{Summary: summary, AuditPath: auditPath, Err: err})
}

func (b *Bridge) send(ctx context.Context, m Message) error {
	select {
	case b.out <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return ErrStopped
	}
}
