package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer caches a glamour renderer for the current width and
// theme. Glamour renderers are expensive to build, so one is reused until
// either changes.
type markdownRenderer struct {
	r     *glamour.TermRenderer
	width int
	theme string
}

func (mr *markdownRenderer) reset() { mr.r = nil }

// render falls back to the raw text if glamour fails or panics.
func (mr *markdownRenderer) render(text, theme string, width int) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = text
		}
	}()
	if width < 20 {
		width = 20
	}
	if mr.r == nil || mr.width != width || mr.theme != theme {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(theme),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return text
		}
		mr.r, mr.width, mr.theme = r, width, theme
	}
	rendered, err := mr.r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}
