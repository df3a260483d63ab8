package tui

import (
	"os"
	"strings"
	"sync/atomic"
)

type glyphSet int32

const (
	glyphSetUnicode glyphSet = iota
	glyphSetASCII
)

var currentGlyphs atomic.Int32

// applyGlyphPreference reads GRIDEDIT_TUI_GLYPHS (unicode|ascii). Unknown
// values leave the current set alone.
func applyGlyphPreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("GRIDEDIT_TUI_GLYPHS"))) {
	case "", "unicode", "utf8":
		setGlyphs(glyphSetUnicode)
	case "ascii":
		setGlyphs(glyphSetASCII)
	}
}

func setGlyphs(gs glyphSet) { currentGlyphs.Store(int32(gs)) }

func glyphs() glyphSet { return glyphSet(currentGlyphs.Load()) }

func pick(unicode, ascii string) string {
	if glyphs() == glyphSetASCII {
		return ascii
	}
	return unicode
}

func glyphDirty() string     { return pick("●", "*") }
func glyphSortAsc() string   { return pick("▲", "^") }
func glyphSortDesc() string  { return pick("▼", "v") }
func glyphKey() string       { return pick("⚷", "#") }
func glyphEllipsis() string  { return pick("…", "~") }
func glyphChecked() string   { return pick("☑", "[x]") }
func glyphUnchecked() string { return pick("☐", "[ ]") }
func glyphHRule() string     { return pick("─", "-") }
