package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// InlineKind 区分行内元素的处理方式。
type InlineKind int

const (
	// InlineStatic 原样绘制，不参与动画（项目符号、代码标题等）。
	InlineStatic InlineKind = iota
	// InlineLeaf 是经过 Segment 动画的叶子文本。
	InlineLeaf
	// InlineUnits 是按调用方切好的单元逐个动画的文本（代码词）。
	InlineUnits
	// InlineImage 在加载完成前显示占位，加载后动画进入。
	InlineImage
	// InlineBreak 强制换行。
	InlineBreak
)

// Unit 是 InlineUnits 的一个动画单元。Text 为 "\n" 时表示换行。
// 同一 token 切出的单元 Group 相同，沉降后合并绘制。
type Unit struct {
	Text  string
	Style lipgloss.Style
	Group int
}

// Inline 是文档中的一个行内元素。Key 在同一份文档内唯一，由节点路径生成。
type Inline struct {
	Kind  InlineKind
	Key   string
	Text  string
	Style lipgloss.Style
	Units []Unit
	Src   string
	Alt   string
}

// UnitsText 拼接全部单元文本。
func (in Inline) UnitsText() string {
	var b strings.Builder
	for _, u := range in.Units {
		b.WriteString(u.Text)
	}
	return b.String()
}

// ImageLabel 是图片的文本表示。
func (in Inline) ImageLabel() string {
	alt := in.Alt
	if alt == "" {
		alt = in.Src
	}
	return "[image: " + alt + "]"
}

// PlainSpans 不经动画直接绘制 Inline。
func PlainSpans(in Inline) []Span {
	switch in.Kind {
	case InlineBreak:
		return []Span{{Text: "\n"}}
	case InlineUnits:
		out := make([]Span, 0, len(in.Units))
		for _, u := range in.Units {
			out = append(out, Span{Text: u.Text, Style: u.Style})
		}
		return out
	case InlineImage:
		return []Span{{Text: in.ImageLabel(), Style: in.Style}}
	default:
		if in.Text == "" {
			return nil
		}
		return []Span{{Text: in.Text, Style: in.Style}}
	}
}

// Painter 把需要动画的 Inline 绘制为 Span。
type Painter interface {
	Paint(in Inline) []Span
}

// BlockKind 是块级布局类型。
type BlockKind int

const (
	BlockText BlockKind = iota
	BlockCode
	BlockRule
	BlockTable
)

// Cell 是表格单元格。
type Cell struct {
	Inlines []Inline
	Align   string
}

// Row 是表格行。
type Row struct {
	Header bool
	Cells  []Cell
}

// Block 是一个块级元素。Prefix 用于首行，Indent 用于续行。
type Block struct {
	Kind    BlockKind
	Inlines []Inline
	Prefix  []Span
	Indent  []Span
	// Gap 为 true 时在块前空一行。
	Gap bool
	// Style 用于分隔线与表格边框。
	Style lipgloss.Style
	Lang  string
	Rows  []Row
}

// Doc 是分派后的文档，结构由快照决定，绘制时才计算动画帧。
type Doc struct {
	Blocks []Block
}

// Walk 依次访问所有 Inline，包括表格单元格内的。
func (d Doc) Walk(fn func(Inline)) {
	for _, b := range d.Blocks {
		for _, in := range b.Inlines {
			fn(in)
		}
		for _, row := range b.Rows {
			for _, cell := range row.Cells {
				for _, in := range cell.Inlines {
					fn(in)
				}
			}
		}
	}
}

// Lines 以给定宽度绘制文档。p 为 nil 时所有 Inline 原样绘制。
func (d Doc) Lines(width int, p Painter) []Line {
	var out []Line
	for i, b := range d.Blocks {
		if b.Gap && i > 0 {
			shared := commonPrefix(d.Blocks[i-1].Indent, b.Prefix)
			out = append(out, Line{Spans: trimTrailingSpace(shared)})
		}
		inner := width - max(spansWidth(b.Prefix), spansWidth(b.Indent))
		if width > 0 && inner < 1 {
			inner = 1
		}
		var lines []Line
		switch b.Kind {
		case BlockCode:
			lines = HardWrap(paintInlines(b.Inlines, p), inner)
		case BlockRule:
			lines = []Line{ruleLine(b, inner)}
		case BlockTable:
			lines = tableLines(b, inner, p)
		default:
			lines = WrapSpans(paintInlines(b.Inlines, p), inner)
		}
		out = append(out, PrefixLines(lines, b.Prefix, b.Indent)...)
	}
	return out
}

// commonPrefix 返回两组前缀中文本相同的开头部分，用作块间空行的前缀。
func commonPrefix(a, b []Span) []Span {
	n := 0
	for n < len(a) && n < len(b) && a[n].Text == b[n].Text {
		n++
	}
	return append([]Span(nil), a[:n]...)
}

func paintInlines(ins []Inline, p Painter) []Span {
	var spans []Span
	for _, in := range ins {
		switch {
		case in.Kind == InlineStatic || in.Kind == InlineBreak || p == nil:
			spans = append(spans, PlainSpans(in)...)
		default:
			spans = append(spans, p.Paint(in)...)
		}
	}
	return spans
}

func ruleLine(b Block, width int) Line {
	switch {
	case width <= 0:
		width = 3
	case width > 80:
		width = 80
	}
	return Line{Spans: []Span{{Text: strings.Repeat("─", width), Style: b.Style}}}
}

func tableLines(b Block, width int, p Painter) []Line {
	cols := 0
	for _, row := range b.Rows {
		cols = max(cols, len(row.Cells))
	}
	if cols == 0 {
		return nil
	}
	widths := make([]int, cols)
	for _, row := range b.Rows {
		for i, cell := range row.Cells {
			widths[i] = max(widths[i], runewidth.StringWidth(cellText(cell)))
		}
	}
	border := b.Style
	var out []Line
	for _, row := range b.Rows {
		var spans []Span
		for i := 0; i < cols; i++ {
			if i > 0 {
				spans = append(spans, Span{Text: " │ ", Style: border})
			}
			var cell Cell
			if i < len(row.Cells) {
				cell = row.Cells[i]
			}
			spans = append(spans, padCell(flatten(paintInlines(cell.Inlines, p)), widths[i], cell.Align)...)
		}
		out = append(out, HardWrap(spans, width)...)
		if row.Header {
			parts := make([]string, cols)
			for i, w := range widths {
				parts[i] = strings.Repeat("─", w)
			}
			out = append(out, HardWrap([]Span{{Text: strings.Join(parts, "─┼─"), Style: border}}, width)...)
		}
	}
	return out
}

func cellText(cell Cell) string {
	var b strings.Builder
	for _, sp := range paintInlines(cell.Inlines, nil) {
		b.WriteString(sp.Text)
	}
	return strings.ReplaceAll(b.String(), "\n", " ")
}

func flatten(spans []Span) []Span {
	out := make([]Span, 0, len(spans))
	for _, sp := range spans {
		out = append(out, Span{Text: strings.ReplaceAll(sp.Text, "\n", " "), Style: sp.Style})
	}
	return out
}

func padCell(spans []Span, width int, align string) []Span {
	gap := width - spansWidth(spans)
	if gap <= 0 {
		return spans
	}
	left, right := 0, gap
	switch align {
	case "right":
		left, right = gap, 0
	case "center":
		left = gap / 2
		right = gap - left
	}
	out := make([]Span, 0, len(spans)+2)
	if left > 0 {
		out = append(out, Span{Text: strings.Repeat(" ", left)})
	}
	out = append(out, spans...)
	if right > 0 {
		out = append(out, Span{Text: strings.Repeat(" ", right)})
	}
	return out
}
