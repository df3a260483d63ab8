package tui

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

var flattenLines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// fitWidth makes s exactly width terminal columns. Longer text is cut with an
// ellipsis, shorter text padded with spaces. Escape sequences do not count.
func fitWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = flattenLines.Replace(s)
	if len(s) > 8192 {
		s = xansi.Truncate(s, width, "")
	}
	switch w := xansi.StringWidth(s); {
	case w == width:
		return s
	case w < width:
		return s + strings.Repeat(" ", width-w)
	case width == 1:
		return xansi.Truncate(s, 1, "")
	default:
		s = xansi.Truncate(s, width, glyphEllipsis())
		return s + strings.Repeat(" ", max(width-xansi.StringWidth(s), 0))
	}
}

// normalizePane pads or cuts s to height lines of width columns each.
func normalizePane(s string, width, height int) string {
	lines := strings.Split(s, "\n")
	if height > 0 {
		lines = append(lines, make([]string, max(height-len(lines), 0))...)[:height]
	}
	for i, ln := range lines {
		lines[i] = fitWidth(ln, max(width, 0))
	}
	return strings.Join(lines, "\n")
}
