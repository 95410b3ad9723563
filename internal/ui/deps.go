package ui

import (
	"log/slog"

	"fyne.io/fyne/v2"

	"github.com/soarlink/soarlink/internal/bus"
	"github.com/soarlink/soarlink/internal/domain"
	"github.com/soarlink/soarlink/internal/probe"
)

var appLogger = slog.With("component", "ui")

type DataDependencies struct {
	Bus     bus.MessageBus
	Version string
}

type ActionDependencies struct {
	OnSave func(p domain.Profile) error
	// OnTest runs one connection test and blocks until it finishes.
	OnTest         func() probe.Result
	BindForeground func(isForeground func() bool)
	// StartHidden and SetStartHidden read and persist the start hidden
	// preference shown in the tray menu.
	StartHidden    func() bool
	SetStartHidden func(hidden bool) error
	OnQuit         func()
}

type UIHooks struct {
	CurrentWindow    func() fyne.Window
	RunOnUI          func(func())
	RunAsync         func(func())
	ShowErrorDialog  func(err error, window fyne.Window)
	ShowInfoDialog   func(title, message string, window fyne.Window)
	ShowImportDialog func(window fyne.Window, onSubmit func(text string))
}

type LaunchOptions struct {
	StartHidden bool
}

type RuntimeDependencies struct {
	Data    DataDependencies
	Actions ActionDependencies
	UIHooks UIHooks
	Launch  LaunchOptions
}
