package eventloop

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"sefip-robot/src/messages"
	"sefip-robot/src/robot"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeUI struct {
	mu       sync.Mutex
	events   []string
	choice   robot.RecoveryChoice
	cont     bool
	selected string
	finished chan string
	errs     chan string
}

func newFakeUI() *fakeUI {
	return &fakeUI{finished: make(chan string, 4), errs: make(chan string, 4)}
}

func (u *fakeUI) add(e string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.events = append(u.events, e)
}

func (u *fakeUI) AppendLog(line string)                { u.add("log " + line) }
func (u *fakeUI) SetProgress(pct float64, label string) { u.add("progress " + label) }
func (u *fakeUI) SetBusy(b bool) {
	if b {
		u.add("busy")
	} else {
		u.add("idle")
	}
}
func (u *fakeUI) AskRecovery(anchor string, reply func(robot.RecoveryChoice)) {
	u.add("ask " + anchor)
	go reply(u.choice)
}
func (u *fakeUI) AskContinue(title, body string, reply func(bool)) {
	u.add("confirm " + title)
	go reply(u.cont)
}
func (u *fakeUI) ShowFinished(text string) { u.finished <- text }
func (u *fakeUI) ShowError(text string)    { u.errs <- text }
func (u *fakeUI) SelectedBatch() string    { return u.selected }

func (u *fakeUI) snapshot() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.events...)
}

func startLoop(t *testing.T, ui UI, run RunFunc) (*Loop, func()) {
	t.Helper()
	l := New(ui, run, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = l.Run(ctx)
		close(done)
	}()
	return l, func() {
		cancel()
		<-done
	}
}

func waitText(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for UI")
		return ""
	}
}

func TestRunRoundTripsPrompts(t *testing.T) {
	ui := newFakeUI()
	ui.choice = robot.Skip
	ui.cont = true

	var gotChoice robot.RecoveryChoice
	var gotContinue bool
	run := func(ctx context.Context, path string, b *messages.Bridge) (string, string, error) {
		b.Line("=== Processamento em Lote Iniciado ===")
		b.Progress(50, "Processando 1/2: 01/2006")
		var err error
		if gotChoice, err = b.Decide(ctx, "sim.png"); err != nil {
			return "", "", err
		}
		if gotContinue, err = b.Confirm(ctx, "Etapa Pulada", "continuar?"); err != nil {
			return "", "", err
		}
		return "2 de 2", "logs/" + path, nil
	}

	l, stop := startLoop(t, ui, run)
	defer stop()

	l.Start("meses.csv")
	text := waitText(t, ui.finished)

	assert.Equal(t, robot.Skip, gotChoice)
	assert.True(t, gotContinue)
	assert.Contains(t, text, "2 de 2")
	assert.Contains(t, text, "logs/meses.csv")

	require.Eventually(t, func() bool {
		ev := ui.snapshot()
		return len(ev) > 0 && ev[len(ev)-1] == "idle"
	}, 5*time.Second, 10*time.Millisecond)
	ev := ui.snapshot()
	assert.Equal(t, []string{
		"busy",
		"log === Processamento em Lote Iniciado ===",
		"progress Processando 1/2: 01/2006",
		"ask sim.png",
		"confirm Etapa Pulada",
	}, ev[:5])
}

func TestStartWithoutBatchShowsError(t *testing.T) {
	ui := newFakeUI()
	l, stop := startLoop(t, ui, func(context.Context, string, *messages.Bridge) (string, string, error) {
		t.Error("run must not be called")
		return "", "", nil
	})
	defer stop()

	l.HotkeyPressed()
	assert.Contains(t, waitText(t, ui.errs), "selecione um arquivo CSV")
}

func TestHotkeyUsesSelectedBatch(t *testing.T) {
	ui := newFakeUI()
	ui.selected = "lote.csv"
	paths := make(chan string, 1)
	l, stop := startLoop(t, ui, func(ctx context.Context, path string, b *messages.Bridge) (string, string, error) {
		paths <- path
		return "", "", nil
	})
	defer stop()

	l.HotkeyPressed()
	assert.Equal(t, "lote.csv", waitText(t, paths))
	waitText(t, ui.finished)
}

func TestRunErrorIsShown(t *testing.T) {
	ui := newFakeUI()
	l, stop := startLoop(t, ui, func(context.Context, string, *messages.Bridge) (string, string, error) {
		return "", "", errors.New("arquivo de imagem não encontrado: ok.png")
	})
	defer stop()

	l.Start("x.csv")
	assert.True(t, strings.Contains(waitText(t, ui.errs), "ok.png"))
}

func TestStopReleasesBlockedRun(t *testing.T) {
	ui := newFakeUI()
	blocked := make(chan struct{})
	released := make(chan error, 1)

	// AskRecovery never replies
	silent := &silentUI{fakeUI: ui}
	l, stop := startLoop(t, silent, func(ctx context.Context, path string, b *messages.Bridge) (string, string, error) {
		close(blocked)
		_, err := b.Decide(ctx, "ok.png")
		released <- err
		return "", "", err
	})

	l.Start("x.csv")
	<-blocked
	stop()
	assert.Error(t, <-released)
}

type silentUI struct{ *fakeUI }

func (s *silentUI) AskRecovery(anchor string, reply func(robot.RecoveryChoice)) {
	s.add("ask " + anchor)
}
