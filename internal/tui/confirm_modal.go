package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// confirmModalFocus is the focused button of a confirmation dialog. The zero
// value is Cancel so a stray enter never confirms a destructive action.
type confirmModalFocus int

const (
	confirmFocusCancel confirmModalFocus = iota
	confirmFocusConfirm
)

func (f confirmModalFocus) next() confirmModalFocus {
	return 1 - f
}

func modalButton(label string, focused bool) string {
	st := lipgloss.NewStyle().Padding(0, 1).Foreground(colorSurfaceFg).Background(colorControlBg)
	if focused {
		st = st.Foreground(colorSelectedFg).Background(colorSelectedBg).Bold(true)
	}
	return st.Render(label)
}

// renderConfirmModal draws a yes/no dialog. Buttons are flat; nested borders
// leave background artifacts on some terminals.
func renderConfirmModal(width int, title, body, confirmLabel, cancelLabel string, focus confirmModalFocus) string {
	bodyW := modalBodyWidth(width)
	buttons := lipgloss.JoinHorizontal(lipgloss.Top,
		modalButton(confirmLabel, focus == confirmFocusConfirm),
		" ",
		modalButton(cancelLabel, focus == confirmFocusCancel),
	)
	lines := []string{
		lipgloss.NewStyle().Width(bodyW).Render(body),
		"",
		buttons,
		"",
		styleMuted().Width(bodyW).Render("y: " + strings.ToLower(confirmLabel) + "   n/esc: cancel   tab: switch   enter: choose"),
	}
	return renderModalBox(width, title, strings.Join(lines, "\n"))
}
