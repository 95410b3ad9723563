package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
)

// withDefaults fills unset hooks with the real Fyne implementations.
func (h UIHooks) withDefaults() UIHooks {
	if h.CurrentWindow == nil {
		h.CurrentWindow = currentWindow
	}
	if h.RunOnUI == nil {
		h.RunOnUI = fyne.Do
	}
	if h.RunAsync == nil {
		h.RunAsync = func(fn func()) {
			go fn()
		}
	}
	if h.ShowErrorDialog == nil {
		h.ShowErrorDialog = dialog.ShowError
	}
	if h.ShowInfoDialog == nil {
		h.ShowInfoDialog = dialog.ShowInformation
	}
	if h.ShowImportDialog == nil {
		h.ShowImportDialog = showImportDialog
	}

	return h
}

func currentWindow() fyne.Window {
	app := fyne.CurrentApp()
	if app == nil {
		return nil
	}
	windows := app.Driver().AllWindows()
	if len(windows) == 0 {
		return nil
	}

	return windows[0]
}
