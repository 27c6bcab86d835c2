package render

import (
	"flowmark/internal/animate"

	"github.com/charmbracelet/lipgloss"
)

// Theme 是文档各部分的基础样式。动画效果在这些样式之上混色。
type Theme struct {
	Palette     animate.Palette
	Text        lipgloss.Style
	Heading     lipgloss.Style
	Link        lipgloss.Style
	LinkDest    lipgloss.Style
	Code        lipgloss.Style
	CodeHeader  lipgloss.Style
	Quote       lipgloss.Style
	Bullet      lipgloss.Style
	Rule        lipgloss.Style
	TableHeader lipgloss.Style
	Border      lipgloss.Style
	Placeholder lipgloss.Style
}

// NewTheme 由调色板生成主题。
func NewTheme(pal animate.Palette) Theme {
	fg := lipgloss.Color(pal.Foreground)
	accent := lipgloss.Color(pal.Accent)
	dim := lipgloss.NewStyle().Foreground(fg).Faint(true)
	return Theme{
		Palette:     pal,
		Text:        lipgloss.NewStyle().Foreground(fg),
		Heading:     lipgloss.NewStyle().Foreground(accent).Bold(true),
		Link:        lipgloss.NewStyle().Foreground(accent).Underline(true),
		LinkDest:    dim,
		Code:        lipgloss.NewStyle().Foreground(lipgloss.Color(pal.Highlight)),
		CodeHeader:  lipgloss.NewStyle().Foreground(accent).Faint(true),
		Quote:       lipgloss.NewStyle().Foreground(fg).Italic(true),
		Bullet:      lipgloss.NewStyle().Foreground(accent),
		Rule:        dim,
		TableHeader: lipgloss.NewStyle().Foreground(fg).Bold(true),
		Border:      dim,
		Placeholder: pal.Placeholder(),
	}
}

// DefaultTheme 使用默认调色板。
func DefaultTheme() Theme {
	return NewTheme(animate.DefaultPalette())
}
