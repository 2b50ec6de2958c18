// Package tray puts the robot in the system tray so a batch can be started
// or the window brought back while it is hidden behind the SEFIP program.
package tray

import (
	_ "embed"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

//go:embed icon.svg
var iconSVG []byte

// Icon is the application and tray icon.
var Icon = fyne.NewStaticResource("sefip.svg", iconSVG)

// Actions are the tray menu callbacks; nil entries are left out.
type Actions struct {
	Show  func()
	Start func()
}

// Menu builds the tray menu. The driver appends its own quit item.
func Menu(hotkey string, a Actions) *fyne.Menu {
	var items []*fyne.MenuItem
	if a.Show != nil {
		items = append(items, fyne.NewMenuItem("Mostrar janela", a.Show))
	}
	if a.Start != nil {
		label := "Iniciar processamento"
		if hotkey != "" {
			label += " (" + hotkey + ")"
		}
		items = append(items, fyne.NewMenuItem(label, a.Start))
	}
	return fyne.NewMenu("Automação SEFIP", items...)
}

// Install sets the icon and, on desktop drivers, the tray menu. It reports
// whether a tray is available.
func Install(app fyne.App, hotkey string, a Actions) bool {
	app.SetIcon(Icon)
	desk, ok := app.(desktop.App)
	if !ok {
		return false
	}
	desk.SetSystemTrayIcon(Icon)
	desk.SetSystemTrayMenu(Menu(hotkey, a))
	return true
}
