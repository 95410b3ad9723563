package ui

import (
	"sync/atomic"

	"fyne.io/fyne/v2"
)

// trackForeground reports whether the app window currently has focus.
func trackForeground(fyApp fyne.App, startHidden bool) func() bool {
	var appForeground atomic.Bool
	appForeground.Store(!startHidden)
	fyApp.Lifecycle().SetOnEnteredForeground(func() {
		appForeground.Store(true)
	})
	fyApp.Lifecycle().SetOnExitedForeground(func() {
		appForeground.Store(false)
	})

	return appForeground.Load
}
