package animate

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Palette 是动画混色用到的终端颜色。
type Palette struct {
	Foreground string
	Background string
	Accent     string
	Highlight  string
}

// DefaultPalette 深色终端下的默认配色。
func DefaultPalette() Palette {
	return Palette{
		Foreground: "#e5e7eb",
		Background: "#111827",
		Accent:     "#7D56F4",
		Highlight:  "#f59e0b",
	}
}

// Frame 返回进度 p（已缓动）时 Segment 的可见文本与样式。
// p>=1 时返回原文与 base，即动画样式已清除。
func (d Descriptor) Frame(text string, base lipgloss.Style, p float64, pal Palette) (string, lipgloss.Style) {
	if !d.Enabled() || p >= 1 {
		return text, base
	}
	t := clamp01(p)
	target := targetColor(base, pal)
	switch d.Name {
	case FadeIn:
		return text, base.Foreground(lipgloss.Color(blend(pal.Background, target, t)))
	case BlurIn:
		style := base.Foreground(lipgloss.Color(blend(pal.Background, target, t)))
		if t < 0.5 {
			style = style.Faint(true)
		}
		return text, style
	case FadeAndScale:
		return reveal(text, t), base.Foreground(lipgloss.Color(blend(pal.Background, target, t)))
	case ColorTransition:
		return text, base.Foreground(lipgloss.Color(blend(pal.Accent, target, t)))
	case Highlight:
		return text, base.Background(lipgloss.Color(blend(pal.Highlight, pal.Background, t)))
	case BlurAndSharpen:
		switch {
		case t < 0.33:
			return text, base.Faint(true)
		case t < 0.66:
			return text, base.Bold(true)
		default:
			return text, base
		}
	case Typewriter:
		return reveal(text, t), base
	default:
		return text, base
	}
}

// Placeholder 是图片加载前的占位样式：灰底、前景与背景同色。
func (pal Palette) Placeholder() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(blend(pal.Background, pal.Foreground, 0.25))).
		Background(lipgloss.Color(blend(pal.Background, pal.Foreground, 0.1)))
}

func targetColor(base lipgloss.Style, pal Palette) string {
	if c, ok := base.GetForeground().(lipgloss.Color); ok && strings.HasPrefix(string(c), "#") {
		return string(c)
	}
	return pal.Foreground
}

// blend 在 Lab 空间混合两个十六进制颜色，解析失败时返回 to。
func blend(from, to string, t float64) string {
	c1, err := colorful.Hex(from)
	if err != nil {
		return to
	}
	c2, err := colorful.Hex(to)
	if err != nil {
		return to
	}
	switch {
	case t <= 0:
		return c1.Hex()
	case t >= 1:
		return c2.Hex()
	}
	return c1.BlendLab(c2, t).Clamped().Hex()
}

func reveal(text string, t float64) string {
	runes := []rune(text)
	n := int(math.Ceil(t * float64(len(runes))))
	if n >= len(runes) {
		return text
	}
	if n < 0 {
		n = 0
	}
	return string(runes[:n])
}
