package formatter

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles is the palette used for terminal output. Renders are plain text when the output is not a terminal.
var Styles = NewPalette("#7D56F4", "#04B575", "#04B575", "#FF5F87", "#626262")

// Palette holds one [lipgloss.Style] per kind of CLI output.
type Palette struct {
	title   lipgloss.Style
	ok      lipgloss.Style
	added   lipgloss.Style
	removed lipgloss.Style
	muted   lipgloss.Style
}

func NewPalette(title, ok, added, removed, muted string) *Palette {
	return &Palette{
		title:   bold(title),
		ok:      bold(ok),
		added:   fg(added),
		removed: fg(removed),
		muted:   fg(muted).Italic(true),
	}
}

func (p *Palette) Title(s string) string   { return p.title.Render(s) }
func (p *Palette) OK(s string) string      { return p.ok.Render(s) }
func (p *Palette) Added(s string) string   { return p.added.Render(s) }
func (p *Palette) Removed(s string) string { return p.removed.Render(s) }
func (p *Palette) Muted(s string) string   { return p.muted.Render(s) }

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func bold(color string) lipgloss.Style {
	return fg(color).Bold(true)
}
