package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = newPalette(palette{
	title: "#FF0033",
	ok:    "#04B575",
	err:   "#FF5F5F",
	warn:  "#FFA500",
	muted: "#909090",
})

// palette names the hex colors of each style role.
type palette struct {
	title, ok, err, warn, muted string
}

// stylesheet holds the rendered styles used across the views.
type stylesheet struct {
	title   lipgloss.Style
	ok      lipgloss.Style
	err     lipgloss.Style
	warn    lipgloss.Style
	help    lipgloss.Style
	spinner lipgloss.Style
}

func newPalette(p palette) stylesheet {
	fg := func(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }
	return stylesheet{
		title:   fg(p.title).Bold(true).MarginBottom(1),
		ok:      fg(p.ok).Bold(true),
		err:     fg(p.err).Bold(true),
		warn:    fg(p.warn),
		help:    fg(p.muted).Italic(true),
		spinner: fg(p.title),
	}
}
