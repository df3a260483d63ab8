package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type modalKind int

const (
	modalNone modalKind = iota
	modalConfirmDelete
	modalConfirmQuit
	modalDraft
	modalFilter
	modalHelp
)

func modalWidth(termW int) int {
	w := termW - 8
	if w > 72 {
		w = 72
	}
	if w < 30 {
		w = 30
	}
	return w
}

func modalBodyWidth(width int) int {
	w := width - 4
	if w < 10 {
		w = 10
	}
	return w
}

// renderModalBox frames content with a title bar on the modal surface.
func renderModalBox(width int, title string, content string) string {
	bodyW := modalBodyWidth(width)
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorSurfaceFg).
		Background(colorControlBg).
		Width(bodyW).
		Render(title)
	body := lipgloss.NewStyle().
		Foreground(colorSurfaceFg).
		Width(bodyW).
		Render(content)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(0, 1).
		Render(strings.Join([]string{header, "", body}, "\n"))
}

// overlay centers a modal over the base view.
func overlay(base string, modal string, width, height int) string {
	if width <= 0 || height <= 0 {
		return base + "\n" + modal
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal,
		lipgloss.WithWhitespaceChars(" "))
}

// renderInputLine draws a text input as one line of exactly bodyW columns on
// the input background. It never wraps.
func renderInputLine(bodyW int, inputView string) string {
	return lipgloss.NewStyle().
		Background(colorInputBg).
		Render(fitWidth(" "+inputView, max(bodyW, 10)))
}
