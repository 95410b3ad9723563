package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"

	"github.com/soarlink/soarlink/internal/probe"
)

// statusPresenter owns the connection status line. The line is hidden while
// empty. Results older than the newest one seen are ignored. Must be used
// from the UI goroutine.
type statusPresenter struct {
	label     *widget.Label
	lastToken uint64
}

func newStatusPresenter() *statusPresenter {
	label := widget.NewLabel("")
	label.Wrapping = fyne.TextWrapWord
	label.Hide()

	return &statusPresenter{label: label}
}

func (p *statusPresenter) Clear() {
	p.label.SetText("")
	p.label.Hide()
}

func (p *statusPresenter) Text() string {
	return p.label.Text
}

// Apply shows res and reports whether it was accepted.
func (p *statusPresenter) Apply(res probe.Result) bool {
	if res.Superseded || res.Token < p.lastToken {
		return false
	}
	p.lastToken = res.Token

	if res.Pending || res.Status == "" {
		p.Clear()
		return true
	}
	p.label.SetText(res.Status)
	p.label.Show()

	return true
}
