package eventloop

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"sefip-robot/src/messages"
	"sefip-robot/src/robot"
	"sefip-robot/src/worker"
)

// UI is the presentation side. The loop calls it from its own goroutine;
// implementations marshal onto their UI thread. Reply callbacks may be
// called from any goroutine, exactly once.
type UI interface {
	AppendLog(line string)
	SetProgress(percent float64, label string)
	SetBusy(busy bool)
	AskRecovery(anchor string, reply func(robot.RecoveryChoice))
	AskContinue(title, body string, reply func(bool))
	ShowFinished(text string)
	ShowError(text string)
	// SelectedBatch is the batch file currently chosen in the UI.
	SelectedBatch() string
}

// RunFunc runs one batch, talking to the operator through bridge.
type RunFunc func(ctx context.Context, batchPath string, bridge *messages.Bridge) (summary, auditPath string, err error)

// Loop is the single-threaded coordinator between the UI, the global start
// hotkey and the batch worker.
type Loop struct {
	ui      UI
	run     RunFunc
	pool    *worker.Pool
	bridge  *messages.Bridge
	log     zerolog.Logger
	busy    bool
	startCh chan string
	hotkey  chan struct{}
	results chan error
}

func New(ui UI, run RunFunc, log zerolog.Logger) *Loop {
	return &Loop{
		ui:      ui,
		run:     run,
		pool:    worker.New(1, log),
		bridge:  messages.NewBridge(64),
		log:     log,
		startCh: make(chan string, 1),
		hotkey:  make(chan struct{}, 4),
		results: make(chan error, 1),
	}
}

// Start asks the loop to process batchPath. Safe from any goroutine.
func (l *Loop) Start(batchPath string) {
	select {
	case l.startCh <- batchPath:
	default:
		l.ui.ShowError("Processamento já em andamento")
	}
}

// HotkeyPressed posts a start request for the batch selected in the UI.
func (l *Loop) HotkeyPressed() {
	select {
	case l.hotkey <- struct{}{}:
	default:
	}
}

// Run processes events until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.pool.Close()
	defer l.bridge.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case path := <-l.startCh:
			l.startRun(ctx, path)
		case <-l.hotkey:
			l.log.Debug().Msg("handleHotkey: called")
			l.startRun(ctx, l.ui.SelectedBatch())
		case m := <-l.bridge.Messages():
			l.handleMessage(m)
		case err := <-l.results:
			l.handleResult(err)
		}
	}
}

func (l *Loop) startRun(ctx context.Context, path string) {
	if l.busy {
		l.log.Debug().Msg("startRun: busy, skipping")
		return
	}
	if path == "" {
		l.ui.ShowError("Por favor, selecione um arquivo CSV")
		return
	}

	l.setBusy(true)
	submitted := l.pool.Submit(ctx, func(ctx context.Context) error {
		summary, auditPath, err := l.run(ctx, path, l.bridge)
		l.bridge.Finish(summary, auditPath, err)
		return err
	}, func(err error) {
		l.results <- err
	})
	if !submitted {
		l.setBusy(false)
		l.ui.ShowError("Processamento já em andamento")
	}
}

func (l *Loop) handleMessage(m messages.Message) {
	switch msg := m.(type) {
	case messages.LogLine:
		l.ui.AppendLog(msg.Text)
	case messages.Progress:
		l.ui.SetProgress(msg.Percent, msg.Label)
	case messages.DecisionNeeded:
		reply := msg.Reply
		l.ui.AskRecovery(msg.Anchor, func(c robot.RecoveryChoice) { reply <- c })
	case messages.ConfirmNeeded:
		reply := msg.Reply
		l.ui.AskContinue(msg.Title, msg.Body, func(ok bool) { reply <- ok })
	case messages.RunFinished:
		l.finished(msg)
	default:
		l.log.Warn().Str("type", m.Type()).Msg("unhandled message")
	}
}

func (l *Loop) finished(msg messages.RunFinished) {
	switch {
	case msg.Err == nil:
		text := "Processamento finalizado!"
		if msg.Summary != "" {
			text += "\n\n" + msg.Summary
		}
		if msg.AuditPath != "" {
			text += fmt.Sprintf("\n\nLog CSV: %s", msg.AuditPath)
		}
		l.ui.ShowFinished(text)
	case errors.Is(msg.Err, context.Canceled):
	default:
		l.ui.ShowError(fmt.Sprintf("Erro ao processar: %v", msg.Err))
	}
}

// handleResult runs after the job returned; the RunFinished message has
// already been queued by then, but may not have been handled yet.
func (l *Loop) handleResult(err error) {
	if err != nil {
		l.log.Debug().Err(err).Msg("handleResult: run failed")
	}
	l.setBusy(false)
}

func (l *Loop) setBusy(b bool) {
	l.busy = b
	l.ui.SetBusy(b)
}
