package ui

import (
	"errors"
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"github.com/soarlink/soarlink/internal/domain"
	"github.com/soarlink/soarlink/internal/probe"
)

const (
	saveButtonText      = "Save Configuration"
	testButtonText      = "Test Connection"
	importButtonText    = "Import..."
	sslCheckText        = "Disable SSL Verification"
	urlPlaceholder      = "https://soar.example.com"
	usernamePlaceholder = "Username"
	passwordPlaceholder = "Password"
	saveDialogTitle     = "Configuration"
	saveSuccessMessage  = "Configuration saved successfully!"
)

// configForm is the connection form. Its inputs are never populated from
// storage on startup: the connection test always reads the last saved
// profile, not what is currently typed.
type configForm struct {
	hooks   UIHooks
	actions ActionDependencies

	urlEntry      *widget.Entry
	usernameEntry *widget.Entry
	passwordEntry *widget.Entry
	sslDisabled   *widget.Check

	saveButton   *widget.Button
	testButton   *widget.Button
	importButton *widget.Button

	status  *statusPresenter
	content fyne.CanvasObject
}

func newConfigForm(dep RuntimeDependencies) *configForm {
	f := &configForm{
		hooks:   dep.UIHooks.withDefaults(),
		actions: dep.Actions,
		status:  newStatusPresenter(),
	}

	f.urlEntry = widget.NewEntry()
	f.urlEntry.SetPlaceHolder(urlPlaceholder)
	f.usernameEntry = widget.NewEntry()
	f.usernameEntry.SetPlaceHolder(usernamePlaceholder)
	f.passwordEntry = widget.NewPasswordEntry()
	f.passwordEntry.SetPlaceHolder(passwordPlaceholder)
	f.sslDisabled = widget.NewCheck(sslCheckText, nil)

	f.saveButton = widget.NewButton(saveButtonText, f.save)
	f.saveButton.Importance = widget.HighImportance
	f.testButton = widget.NewButton(testButtonText, f.test)
	f.testButton.Importance = widget.SuccessImportance
	f.importButton = widget.NewButton(importButtonText, f.openImport)
	if f.actions.OnTest == nil {
		f.testButton.Disable()
	}

	fields := widget.NewForm(
		widget.NewFormItem("URL", f.urlEntry),
		widget.NewFormItem("Username", f.usernameEntry),
		widget.NewFormItem("Password", f.passwordEntry),
	)

	card := widget.NewCard("Configuration", "", container.NewVBox(
		fields,
		f.sslDisabled,
		container.NewHBox(f.saveButton, layout.NewSpacer(), f.testButton),
		f.status.label,
	))

	f.content = container.NewVBox(
		card,
		container.NewHBox(layout.NewSpacer(), f.importButton),
	)

	return f
}

func (f *configForm) profile() domain.Profile {
	return domain.Profile{
		URL:                     f.urlEntry.Text,
		Username:                f.usernameEntry.Text,
		Password:                f.passwordEntry.Text,
		SSLVerificationDisabled: f.sslDisabled.Checked,
	}
}

func (f *configForm) fill(p domain.Profile) {
	f.urlEntry.SetText(p.URL)
	f.usernameEntry.SetText(p.Username)
	f.passwordEntry.SetText(p.Password)
	f.sslDisabled.SetChecked(p.SSLVerificationDisabled)
}

func (f *configForm) save() {
	window := f.hooks.CurrentWindow()
	if f.actions.OnSave == nil {
		f.hooks.ShowErrorDialog(errors.New("saving is not available"), window)
		return
	}

	p := f.profile()
	if err := f.actions.OnSave(p); err != nil {
		appLogger.Warn("save configuration failed", "error", err)
		f.hooks.ShowErrorDialog(fmt.Errorf("save configuration: %w", err), window)
		return
	}
	appLogger.Debug("configuration saved from form", "url", p.URL)
	f.hooks.ShowInfoDialog(saveDialogTitle, saveSuccessMessage, window)
}

// test clears the status line right away and shows the outcome once the
// probe returns.
func (f *configForm) test() {
	if f.actions.OnTest == nil {
		return
	}
	f.status.Clear()

	onTest := f.actions.OnTest
	f.hooks.RunAsync(func() {
		res := onTest()
		f.hooks.RunOnUI(func() {
			f.applyResult(res)
		})
	})
}

func (f *configForm) applyResult(res probe.Result) bool {
	return f.status.Apply(res)
}

func (f *configForm) openImport() {
	window := f.hooks.CurrentWindow()
	if window == nil {
		appLogger.Warn("import skipped: active window is unavailable")
		return
	}

	f.hooks.ShowImportDialog(window, func(text string) {
		p, err := domain.ParseImport(text)
		if err != nil {
			f.hooks.ShowErrorDialog(fmt.Errorf("import configuration: %w", err), window)
			return
		}
		f.fill(p)
		appLogger.Debug("configuration imported into form", "url", strings.TrimSpace(p.URL))
	})
}
