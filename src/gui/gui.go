// Package gui is the operator window: batch file selection, progress, the
// live log and the prompts the worker raises while a batch runs.
package gui

import (
	"errors"
	"io"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"sefip-robot/src/batch"
	"sefip-robot/src/robot"
)

const (
	Title       = "Automação SEFIP - Processamento em Lote"
	maxLogLines = 2000
)

const instructions = `INSTRUÇÕES:
1. Clique em "Criar Modelo CSV" para gerar um arquivo exemplo
2. Edite o CSV com seus dados (ano, mes, valor)
3. Clique em "CSV" para escolher o arquivo
4. Clique em "Iniciar Processamento em Lote"

Formato do CSV:
ano,mes,valor
2006,01,300
2006,02,350
2006,03,400`

// Window implements the presentation side of the event loop. Every method
// may be called from any goroutine.
type Window struct {
	win fyne.Window
	// do runs f on the UI thread.
	do func(f func())

	mu      sync.Mutex
	batch   string
	onStart func(batchPath string)
	lines   []string

	pathEntry *widget.Entry
	status    *widget.Label
	progress  *widget.ProgressBar
	startBtn  *widget.Button
	logText   *widget.Label
	logScroll *container.Scroll

	// buttons of the prompt currently on screen
	retryBtn, skipBtn, cancelBtn *widget.Button
	yesBtn, noBtn                *widget.Button
}

// New builds the main window. onStart receives the selected batch file
// when the operator presses the start button.
func New(app fyne.App, onStart func(batchPath string)) *Window {
	w := &Window{
		win:     app.NewWindow(Title),
		do:      fyne.Do,
		onStart: onStart,
	}
	w.build()
	return w
}

func (w *Window) build() {
	title := widget.NewLabelWithStyle("Automação SEFIP", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})

	w.pathEntry = widget.NewEntry()
	w.pathEntry.SetPlaceHolder("Nenhum arquivo selecionado")
	w.pathEntry.Disable()

	pick := widget.NewButton("📁 CSV", w.pickBatch)
	tmpl := widget.NewButton("📄 Criar Modelo CSV", w.saveTemplateDialog)
	fileRow := container.NewBorder(nil, nil, nil, container.NewHBox(pick, tmpl), w.pathEntry)

	w.status = widget.NewLabel("Aguardando...")
	w.progress = widget.NewProgressBar()
	w.progress.Max = 100
	statusBox := widget.NewCard("", "Status", container.NewVBox(w.status, w.progress))

	w.startBtn = widget.NewButton("▶ Iniciar Processamento em Lote", func() {
		if w.onStart != nil {
			w.onStart(w.SelectedBatch())
		}
	})
	w.startBtn.Importance = widget.HighImportance

	w.logText = widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Monospace: true})
	w.logText.Wrapping = fyne.TextWrapWord
	w.logScroll = container.NewVScroll(w.logText)
	w.logScroll.SetMinSize(fyne.NewSize(660, 220))
	logBox := widget.NewCard("", "Logs de Execução", w.logScroll)

	help := widget.NewLabelWithStyle(instructions, fyne.TextAlignLeading, fyne.TextStyle{Monospace: true})

	top := container.NewVBox(title, fileRow, statusBox, w.startBtn)
	w.win.SetContent(container.NewBorder(top, help, nil, nil, logBox))
	w.win.Resize(fyne.NewSize(700, 550))
}

// Run shows the window and blocks until the application quits.
func (w *Window) Run() { w.win.ShowAndRun() }

// Raise shows the window and asks for focus.
func (w *Window) Raise() {
	w.do(func() {
		w.win.Show()
		w.win.RequestFocus()
	})
}

func (w *Window) pickBatch() {
	d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w.win)
			return
		}
		if rc == nil {
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()
		w.SetBatch(path)
	}, w.win)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".csv"}))
	d.Show()
}

// SetBatch selects the batch file, as if picked in the file dialog. Call it
// before Run or from the UI thread.
func (w *Window) SetBatch(path string) {
	w.mu.Lock()
	w.batch = path
	w.mu.Unlock()
	w.pathEntry.SetText(path)
}

func (w *Window) saveTemplateDialog() {
	d := dialog.NewFileSave(w.saveTemplate, w.win)
	d.SetFileName(batch.DefaultTemplateName)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".csv"}))
	d.Show()
}

func (w *Window) saveTemplate(wc fyne.URIWriteCloser, err error) {
	if err != nil {
		dialog.ShowError(err, w.win)
		return
	}
	if wc == nil {
		return
	}
	path := wc.URI().Path()
	if err := writeTemplate(wc); err != nil {
		dialog.ShowError(err, w.win)
		return
	}
	dialog.ShowInformation("Sucesso", "Arquivo modelo criado:\n"+path, w.win)
}

func writeTemplate(wc io.WriteCloser) error {
	if err := batch.WriteTemplate(wc); err != nil {
		_ = wc.Close()
		return err
	}
	return wc.Close()
}

// SelectedBatch returns the batch file picked by the operator.
func (w *Window) SelectedBatch() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.batch
}

func (w *Window) AppendLog(line string) {
	w.mu.Lock()
	w.lines = append(w.lines, line)
	if len(w.lines) > maxLogLines {
		w.lines = w.lines[len(w.lines)-maxLogLines:]
	}
	text := strings.Join(w.lines, "\n")
	w.mu.Unlock()

	w.do(func() {
		w.logText.SetText(text)
		w.logScroll.ScrollToBottom()
	})
}

func (w *Window) SetProgress(percent float64, label string) {
	w.do(func() {
		w.progress.SetValue(percent)
		w.status.SetText(label)
	})
}

func (w *Window) SetBusy(busy bool) {
	w.do(func() {
		if busy {
			w.startBtn.Disable()
		} else {
			w.startBtn.Enable()
		}
	})
}

// AskRecovery asks what to do about an anchor that did not show up. reply
// is called once.
func (w *Window) AskRecovery(anchor string, reply func(robot.RecoveryChoice)) {
	w.do(func() {
		var once sync.Once
		var d *dialog.CustomDialog
		choose := func(c robot.RecoveryChoice) func() {
			return func() {
				once.Do(func() {
					d.Hide()
					reply(c)
				})
			}
		}
		w.retryBtn = widget.NewButton("↻ Tentar Novamente", choose(robot.Retry))
		w.skipBtn = widget.NewButton("⏭ Pular Este Passo", choose(robot.Skip))
		w.cancelBtn = widget.NewButton("✖ Cancelar Tudo", choose(robot.Cancel))
		w.cancelBtn.Importance = widget.DangerImportance

		content := container.NewVBox(
			widget.NewLabelWithStyle("⚠ Imagem não encontrada: "+anchor, fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
			widget.NewLabelWithStyle("O que deseja fazer?", fyne.TextAlignCenter, fyne.TextStyle{}),
			container.NewGridWithColumns(2, w.retryBtn, w.skipBtn),
			w.cancelBtn,
		)
		d = dialog.NewCustomWithoutButtons("Imagem Não Encontrada", content, w.win)
		d.Show()
	})
}

// AskContinue asks a yes/no question. reply is called once.
func (w *Window) AskContinue(title, body string, reply func(bool)) {
	w.do(func() {
		var once sync.Once
		var d *dialog.CustomDialog
		answer := func(ok bool) func() {
			return func() {
				once.Do(func() {
					d.Hide()
					reply(ok)
				})
			}
		}
		w.yesBtn = widget.NewButton("Sim", answer(true))
		w.yesBtn.Importance = widget.HighImportance
		w.noBtn = widget.NewButton("Não", answer(false))

		content := container.NewVBox(
			widget.NewLabel(body),
			container.NewGridWithColumns(2, w.yesBtn, w.noBtn),
		)
		d = dialog.NewCustomWithoutButtons(title, content, w.win)
		d.Show()
	})
}

func (w *Window) ShowFinished(text string) {
	w.do(func() {
		dialog.ShowInformation("Concluído", text, w.win)
	})
}

func (w *Window) ShowError(text string) {
	w.do(func() {
		dialog.ShowError(errors.New(text), w.win)
	})
}
