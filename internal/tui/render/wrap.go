package render

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// wrapText 使用词级别换行，宽度按终端显示宽度计算。
func wrapText(text string, width int) []string {
	lines := WrapSpans([]Span{{Text: text}}, width)
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Plain())
	}
	return out
}

// atomKind 区分换行单元的类型。
type atomKind int

const (
	atomWord atomKind = iota
	atomSpace
	atomBreak
)

// atom 是不可在中间换行的一组片段。一个词可以跨多个 Span，例如被切成两段的 "Hel" "lo"。
type atom struct {
	kind  atomKind
	spans []Span
	width int
}

// WrapSpans 按词换行，词跨 Span 时保持完整。"\n" 强制换行，超宽的词按字符断开。
func WrapSpans(spans []Span, width int) []Line {
	atoms := splitAtoms(spans)
	var lines []Line
	var cur []Span
	curWidth := 0
	flush := func() {
		lines = append(lines, Line{Spans: trimTrailingSpace(cur)})
		cur = nil
		curWidth = 0
	}
	for _, a := range atoms {
		switch a.kind {
		case atomBreak:
			flush()
			continue
		case atomSpace:
			if curWidth == 0 && len(lines) > 0 {
				// 软换行后的行首空白丢弃。
				continue
			}
		}
		if width > 0 && curWidth+a.width > width && curWidth > 0 {
			if a.kind == atomSpace {
				flush()
				continue
			}
			flush()
		}
		if width > 0 && a.kind == atomWord && a.width > width {
			for _, part := range hardBreak(a.spans, width) {
				if curWidth > 0 {
					flush()
				}
				cur = append(cur, part...)
				curWidth = spansWidth(part)
			}
			continue
		}
		cur = append(cur, a.spans...)
		curWidth += a.width
	}
	if len(cur) > 0 || len(lines) == 0 {
		flush()
	}
	return lines
}

// HardWrap 保留所有空白，只在 "\n" 与宽度处断行。用于代码块。
func HardWrap(spans []Span, width int) []Line {
	var lines []Line
	var cur []Span
	for _, sp := range spans {
		parts := strings.Split(sp.Text, "\n")
		for i, part := range parts {
			if i > 0 {
				lines = append(lines, Line{Spans: cur})
				cur = nil
			}
			if part != "" {
				cur = append(cur, Span{Text: part, Style: sp.Style})
			}
		}
	}
	lines = append(lines, Line{Spans: cur})
	if width <= 0 {
		return lines
	}
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.Width() <= width {
			out = append(out, l)
			continue
		}
		for _, part := range hardBreak(l.Spans, width) {
			out = append(out, Line{Spans: part})
		}
	}
	return out
}

func splitAtoms(spans []Span) []atom {
	var atoms []atom
	push := func(kind atomKind, text string, style lipgloss.Style) {
		if kind == atomBreak {
			atoms = append(atoms, atom{kind: atomBreak})
			return
		}
		w := runewidth.StringWidth(text)
		if n := len(atoms); n > 0 && atoms[n-1].kind == kind {
			last := &atoms[n-1]
			last.spans = append(last.spans, Span{Text: text, Style: style})
			last.width += w
			return
		}
		atoms = append(atoms, atom{kind: kind, spans: []Span{{Text: text, Style: style}}, width: w})
	}
	for _, sp := range spans {
		start := 0
		kind := atomKind(-1)
		for i, r := range sp.Text {
			k := classify(r)
			if k == kind && k != atomBreak {
				continue
			}
			if kind >= 0 && i > start {
				push(kind, sp.Text[start:i], sp.Style)
			}
			if k == atomBreak {
				push(atomBreak, "", sp.Style)
				start = i + 1
				kind = -1
				continue
			}
			start = i
			kind = k
		}
		if kind >= 0 && start < len(sp.Text) {
			push(kind, sp.Text[start:], sp.Style)
		}
	}
	return atoms
}

func classify(r rune) atomKind {
	switch {
	case r == '\n':
		return atomBreak
	case unicode.IsSpace(r):
		return atomSpace
	default:
		return atomWord
	}
}

// hardBreak 按显示宽度切开一组 Span，宽字符不会被劈成两半。
func hardBreak(spans []Span, width int) [][]Span {
	var out [][]Span
	var cur []Span
	curWidth := 0
	for _, sp := range spans {
		var b strings.Builder
		for _, r := range sp.Text {
			w := runewidth.RuneWidth(r)
			if curWidth+w > width && curWidth > 0 {
				if b.Len() > 0 {
					cur = append(cur, Span{Text: b.String(), Style: sp.Style})
					b.Reset()
				}
				out = append(out, cur)
				cur = nil
				curWidth = 0
			}
			b.WriteRune(r)
			curWidth += w
		}
		if b.Len() > 0 {
			cur = append(cur, Span{Text: b.String(), Style: sp.Style})
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func trimTrailingSpace(spans []Span) []Span {
	for len(spans) > 0 {
		last := spans[len(spans)-1]
		trimmed := strings.TrimRightFunc(last.Text, unicode.IsSpace)
		if trimmed != "" {
			spans[len(spans)-1] = Span{Text: trimmed, Style: last.Style}
			return spans
		}
		spans = spans[:len(spans)-1]
	}
	return spans
}
