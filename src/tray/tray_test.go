package tray

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMenu(t *testing.T) {
	var shown, started int
	m := Menu("Ctrl+Alt+S", Actions{Show: func() { shown++ }, Start: func() { started++ }})
	require.Len(t, m.Items, 2)
	assert.Equal(t, "Mostrar janela", m.Items[0].Label)
	assert.Equal(t, "Iniciar processamento (Ctrl+Alt+S)", m.Items[1].Label)

	m.Items[0].Action()
	m.Items[1].Action()
	assert.Equal(t, 1, shown)
	assert.Equal(t, 1, started)
}

func TestMenuSkipsMissingActions(t *testing.T) {
	m := Menu("", Actions{Start: func() {}})
	require.Len(t, m.Items, 1)
	assert.Equal(t, "Iniciar processamento", m.Items[0].Label)
}

func TestInstallOnHeadlessApp(t *testing.T) {
	app := test.NewApp()
	defer app.Quit()
	assert.NotPanics(t, func() { Install(app, "", Actions{Start: func() {}}) })
	assert.Equal(t, "sefip.svg", Icon.Name())
	assert.Contains(t, string(Icon.Content()), "<svg")
}
