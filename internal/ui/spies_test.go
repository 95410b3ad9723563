package ui

import "fyne.io/fyne/v2"

// plainApp hides the desktop extensions of the wrapped test app.
type plainApp struct {
	fyne.App
}

// desktopAppSpy records Run/Quit calls, the windows it creates and the tray
// it is given. It satisfies desktop.App.
type desktopAppSpy struct {
	fyne.App
	lifecycle fyne.Lifecycle

	runCalls      int
	quitCalls     int
	createdWindow *windowSpy
	trayMenu      *fyne.Menu
	trayIcon      fyne.Resource
}

func (a *desktopAppSpy) Run()  { a.runCalls++ }
func (a *desktopAppSpy) Quit() { a.quitCalls++ }

func (a *desktopAppSpy) NewWindow(title string) fyne.Window {
	a.createdWindow = &windowSpy{Window: a.App.NewWindow(title)}

	return a.createdWindow
}

func (a *desktopAppSpy) Lifecycle() fyne.Lifecycle {
	if a.lifecycle != nil {
		return a.lifecycle
	}

	return a.App.Lifecycle()
}

func (a *desktopAppSpy) SetSystemTrayMenu(menu *fyne.Menu)    { a.trayMenu = menu }
func (a *desktopAppSpy) SetSystemTrayIcon(icon fyne.Resource) { a.trayIcon = icon }
func (a *desktopAppSpy) SetSystemTrayWindow(fyne.Window)      {}

type windowSpy struct {
	fyne.Window
	showCalls      int
	hideCalls      int
	focusCalls     int
	closeIntercept func()
}

func (w *windowSpy) Show() {
	w.showCalls++
	w.Window.Show()
}

func (w *windowSpy) Hide() {
	w.hideCalls++
	w.Window.Hide()
}

func (w *windowSpy) RequestFocus() {
	w.focusCalls++
	w.Window.RequestFocus()
}

func (w *windowSpy) SetCloseIntercept(fn func()) {
	w.closeIntercept = fn
	w.Window.SetCloseIntercept(fn)
}

type lifecycleSpy struct {
	entered func()
	exited  func()
}

func (l *lifecycleSpy) SetOnEnteredForeground(fn func()) { l.entered = fn }
func (l *lifecycleSpy) SetOnExitedForeground(fn func())  { l.exited = fn }
func (l *lifecycleSpy) SetOnStarted(func())              {}
func (l *lifecycleSpy) SetOnStopped(func())              {}
