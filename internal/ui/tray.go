package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"

	"github.com/soarlink/soarlink/internal/probe"
)

const startHiddenMenuText = "Start Hidden"

// trayActions are the callbacks behind the tray menu. Nil entries drop the
// matching menu item, except Quit which is always shown.
type trayActions struct {
	Test           func()
	StartHidden    func() bool
	SetStartHidden func(bool) error
	Quit           func()
	OnError        func(error)
}

func trayIconForState(state probe.State) fyne.Resource {
	switch state {
	case probe.StateSucceeded:
		return theme.ConfirmIcon()
	case probe.StateFailed:
		return theme.ErrorIcon()
	case probe.StateProbing:
		return theme.ViewRefreshIcon()
	default:
		return theme.ComputerIcon()
	}
}

// configureSystemTray installs the tray menu and returns a setter that
// reflects the latest probe state in the tray icon.
func configureSystemTray(fyApp fyne.App, window fyne.Window, actions trayActions) func(probe.State) {
	setTrayState := func(probe.State) {}

	desk, ok := fyApp.(desktop.App)
	if !ok {
		return setTrayState
	}

	setTrayState = func(state probe.State) {
		desk.SetSystemTrayIcon(trayIconForState(state))
	}
	setTrayState(probe.StateIdle)

	menu := fyne.NewMenu("soarlink")
	menu.Items = append(menu.Items, fyne.NewMenuItem("Show", func() {
		appLogger.Debug("system tray show action invoked")
		window.Show()
		window.RequestFocus()
	}))
	if actions.Test != nil {
		menu.Items = append(menu.Items, fyne.NewMenuItem(testButtonText, func() {
			appLogger.Debug("system tray test action invoked")
			actions.Test()
		}))
	}
	if actions.StartHidden != nil && actions.SetStartHidden != nil {
		item := fyne.NewMenuItem(startHiddenMenuText, nil)
		item.Checked = actions.StartHidden()
		item.Action = func() {
			want := !item.Checked
			appLogger.Debug("system tray start hidden toggled", "start_hidden", want)
			if err := actions.SetStartHidden(want); err != nil {
				appLogger.Warn("persist start hidden preference failed", "error", err)
				if actions.OnError != nil {
					actions.OnError(fmt.Errorf("save start hidden preference: %w", err))
				}

				return
			}
			item.Checked = want
			menu.Refresh()
		}
		menu.Items = append(menu.Items, item)
	}
	menu.Items = append(menu.Items, fyne.NewMenuItem("Quit", func() {
		appLogger.Debug("system tray quit action invoked")
		if actions.Quit != nil {
			actions.Quit()
		}
	}))
	desk.SetSystemTrayMenu(menu)

	return setTrayState
}
