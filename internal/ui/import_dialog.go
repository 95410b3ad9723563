package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

const importPlaceholder = "Paste JSON or YAML configuration here..."

func showImportDialog(window fyne.Window, onSubmit func(text string)) {
	entry := widget.NewMultiLineEntry()
	entry.SetPlaceHolder(importPlaceholder)
	entry.SetMinRowsVisible(8)
	entry.Wrapping = fyne.TextWrapOff

	hint := widget.NewLabel("Keys: url, username, password, sslVerification")
	hint.Wrapping = fyne.TextWrapWord

	d := dialog.NewCustomConfirm(
		"Import configuration",
		"Import",
		"Cancel",
		container.NewBorder(nil, hint, nil, nil, entry),
		func(ok bool) {
			if !ok {
				return
			}
			onSubmit(entry.Text)
		},
		window,
	)
	d.Resize(fyne.NewSize(460, 320))
	d.Show()
}
