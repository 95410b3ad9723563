package ui

import (
	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/soarlink/soarlink/internal/probe"
)

const appID = "io.soarlink.desktop"

var newFyneApp = func() fyne.App {
	return fyneapp.NewWithID(appID)
}

func Run(dep RuntimeDependencies) error {
	return runWithApp(dep, newFyneApp())
}

func runWithApp(dep RuntimeDependencies, fyApp fyne.App) error {
	appLogger.Info("starting UI runtime", "start_hidden", dep.Launch.StartHidden)

	window := fyApp.NewWindow("SOAR Configuration")
	window.Resize(fyne.NewSize(480, 420))
	if dep.UIHooks.CurrentWindow == nil {
		dep.UIHooks.CurrentWindow = func() fyne.Window { return window }
	}

	form := newConfigForm(dep)
	hooks := form.hooks

	isForeground := trackForeground(fyApp, dep.Launch.StartHidden)
	if dep.Actions.BindForeground != nil {
		dep.Actions.BindForeground(isForeground)
	}

	var footer fyne.CanvasObject = widget.NewLabel("")
	if dep.Data.Version != "" {
		footer = widget.NewLabel("Version: " + dep.Data.Version)
	}
	window.SetContent(container.NewBorder(nil, footer, nil, nil, container.NewVScroll(form.content)))

	var stopListeners func()
	uiRuntime := newUIRuntime(fyApp, window, func() {
		if stopListeners != nil {
			stopListeners()
		}
	}, dep.Actions.OnQuit)
	uiRuntime.BindCloseIntercept()
	setTrayState := configureSystemTray(fyApp, window, trayActions{
		Test:           form.test,
		StartHidden:    dep.Actions.StartHidden,
		SetStartHidden: dep.Actions.SetStartHidden,
		Quit:           uiRuntime.Quit,
		OnError: func(err error) {
			hooks.ShowErrorDialog(err, window)
		},
	})

	// Attach after the tray exists so the first result can update its icon.
	stopListeners = startStatusListener(dep.Data.Bus, func(res probe.Result) {
		hooks.RunOnUI(func() {
			if form.applyResult(res) {
				setTrayState(res.State())
			}
		})
	})

	uiRuntime.Run(dep.Launch.StartHidden)

	return nil
}
