package tui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

type rendererKey struct {
	style string
	width int
}

// Renderers are built with a fixed style: glamour's auto style queries the
// terminal and can block inside the program loop.
var mdRenderers sync.Map // rendererKey -> *glamour.TermRenderer

// renderMarkdown renders the help text. Rendering errors fall back to the
// plain source.
func renderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	key := rendererKey{style: markdownStyle(), width: max(width, 10)}

	r, ok := mdRenderers.Load(key)
	if !ok {
		cfg := markdownStyleConfig(key.style)
		var noMargin uint
		cfg.Document.Margin = &noMargin
		tr, err := glamour.NewTermRenderer(glamour.WithStyles(cfg), glamour.WithWordWrap(key.width))
		if err != nil {
			return md
		}
		r, _ = mdRenderers.LoadOrStore(key, tr)
	}
	out, err := r.(*glamour.TermRenderer).Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func markdownStyle() string {
	dark, ok := themeFromEnv()
	if !ok {
		dark = lipgloss.HasDarkBackground()
	}
	if dark {
		return "dark"
	}
	return "light"
}

// markdownStyleConfig starts from glamour's stock style and moves text and
// headings onto the grid's surface palette.
func markdownStyleConfig(style string) ansi.StyleConfig {
	cfg := styles.DarkStyleConfig
	if style == "light" {
		cfg = styles.LightStyleConfig
	}
	fg := mdColor(colorSurfaceFg, style)
	cfg.Text.Color = fg
	cfg.Heading.Color = fg
	cfg.H1.Color = fg
	cfg.H2.Color = fg
	cfg.Table.Color = fg
	cfg.Code.Color = mdColor(colorAccent, style)
	return cfg
}

func mdColor(c lipgloss.AdaptiveColor, style string) *string {
	v := c.Dark
	if style == "light" {
		v = c.Light
	}
	return &v
}
