package render

import (
	"fmt"
	"strconv"
	"strings"

	"flowmark/internal/content"
	"flowmark/internal/highlight"
	"flowmark/internal/segment"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Treatment 是节点在分派时的处理方式。
type Treatment int

const (
	// TreatAnimate 叶子文本经 Segment 动画。
	TreatAnimate Treatment = iota
	// TreatPassthrough 容器本身不包装，后代叶子各自动画。
	TreatPassthrough
	// TreatCode 交给高亮器，返回的 token 再按空白切成词逐个动画。
	TreatCode
	// TreatImage 经加载门控，加载前不动画。
	TreatImage
	// TreatStatic 原样绘制，不参与动画。
	TreatStatic
	// TreatCustom 交给调用方注册的渲染函数。
	TreatCustom
)

func (t Treatment) String() string {
	switch t {
	case TreatAnimate:
		return "animate"
	case TreatPassthrough:
		return "passthrough"
	case TreatCode:
		return "code"
	case TreatImage:
		return "image"
	case TreatStatic:
		return "static"
	case TreatCustom:
		return "custom"
	default:
		return "unknown"
	}
}

var treatments = map[content.Kind]Treatment{
	content.KindHeading:       TreatAnimate,
	content.KindParagraph:     TreatAnimate,
	content.KindTableCell:     TreatAnimate,
	content.KindListItem:      TreatAnimate,
	content.KindLink:          TreatAnimate,
	content.KindEmphasis:      TreatAnimate,
	content.KindStrong:        TreatAnimate,
	content.KindStrikethrough: TreatAnimate,
	content.KindDocument:      TreatPassthrough,
	content.KindBlockquote:    TreatPassthrough,
	content.KindLineBreak:     TreatPassthrough,
	content.KindList:          TreatPassthrough,
	content.KindTable:         TreatPassthrough,
	content.KindTableHead:     TreatPassthrough,
	content.KindTableRow:      TreatPassthrough,
	content.KindCodeBlock:     TreatCode,
	content.KindCodeSpan:      TreatCode,
	content.KindImage:         TreatImage,
	content.KindThematicBreak: TreatStatic,
	content.KindTaskCheck:     TreatStatic,
}

// Classify 返回节点的处理方式。未知结构节点按容器处理。
func Classify(n content.Node) Treatment {
	switch v := n.(type) {
	case content.Text:
		return TreatAnimate
	case *content.CustomTag:
		return TreatCustom
	case *content.Element:
		if t, ok := treatments[v.Kind]; ok {
			return t
		}
	}
	return TreatPassthrough
}

// RenderFunc 渲染一个自定义标签。ctx.Animate 让标签把自己的文本加入 Segment 动画。
type RenderFunc func(ctx *TagContext) []Block

// Dispatcher 把节点树分派为 Doc。代码高亮结果按块缓存，内容不变时不重复高亮。
type Dispatcher struct {
	theme Theme
	hl    *highlight.Highlighter
	tags  map[string]RenderFunc
	codes map[string]codeEntry
}

type codeEntry struct {
	lang    string
	literal string
	units   []Unit
	header  string
	seen    bool
}

// NewDispatcher 创建分派器。tags 中值为 nil 的标签使用默认的提示框渲染。
func NewDispatcher(theme Theme, hl *highlight.Highlighter, tags map[string]RenderFunc) *Dispatcher {
	if hl == nil {
		hl = highlight.New("")
	}
	return &Dispatcher{
		theme: theme,
		hl:    hl,
		tags:  tags,
		codes: map[string]codeEntry{},
	}
}

// Theme 返回分派使用的主题。
func (d *Dispatcher) Theme() Theme { return d.theme }

// Build 分派整棵树。
func (d *Dispatcher) Build(doc *content.Element) Doc {
	for k, e := range d.codes {
		e.seen = false
		d.codes[k] = e
	}
	b := &builder{d: d}
	if doc != nil {
		b.blocks(doc.Children, "", &scope{}, d.theme.Text)
	}
	for k, e := range d.codes {
		if !e.seen {
			delete(d.codes, k)
		}
	}
	return Doc{Blocks: b.out}
}

// scope 是块级前缀上下文。第一个块使用 prefix，之后的块使用 indent。
type scope struct {
	prefix []Span
	indent []Span
	used   bool
}

func (s *scope) take() ([]Span, []Span) {
	if s.used {
		return s.indent, s.indent
	}
	s.used = true
	return s.prefix, s.indent
}

func (s *scope) nest(first, rest []Span) *scope {
	p, ind := s.take()
	return &scope{prefix: concat(p, first), indent: concat(ind, rest)}
}

type builder struct {
	d       *Dispatcher
	out     []Block
	noGap   bool
	listLvl int
}

func (b *builder) emit(sc *scope, blk Block) {
	p, ind := sc.take()
	blk.Prefix = concat(p, blk.Prefix)
	blk.Indent = concat(ind, blk.Indent)
	blk.Gap = len(b.out) > 0 && !b.noGap
	b.noGap = false
	b.out = append(b.out, blk)
}

func (b *builder) blocks(nodes []content.Node, key string, sc *scope, base lipgloss.Style) {
	var loose []content.Node
	looseKey := ""
	flush := func() {
		if len(loose) == 0 {
			return
		}
		b.emit(sc, Block{Kind: BlockText, Inlines: b.d.inlines(loose, looseKey, base)})
		loose = nil
	}
	for i, n := range nodes {
		k := childKey(key, i)
		if isInline(n) {
			if len(loose) == 0 {
				looseKey = k
			}
			loose = append(loose, n)
			continue
		}
		flush()
		b.block(n, k, sc, base)
	}
	flush()
}

func isInline(n content.Node) bool {
	switch v := n.(type) {
	case content.Text:
		return true
	case *content.Element:
		switch v.Kind {
		case content.KindEmphasis, content.KindStrong, content.KindStrikethrough, content.KindLink,
			content.KindCodeSpan, content.KindImage, content.KindLineBreak, content.KindTaskCheck:
			return true
		}
	}
	return false
}

// block 按 Classify 的结果分派块级节点，同一处理方式下再按节点种类排版。
func (b *builder) block(n content.Node, key string, sc *scope, base lipgloss.Style) {
	theme := b.d.theme
	el, _ := n.(*content.Element)
	switch Classify(n) {
	case TreatCustom:
		ctx := &TagContext{Tag: n.(*content.CustomTag), Theme: theme, key: key, d: b.d}
		for i, blk := range b.d.renderTag(ctx) {
			if i > 0 {
				b.noGap = !blk.Gap
			}
			b.emit(sc, blk)
		}
	case TreatCode:
		if el.Kind == content.KindCodeBlock {
			b.code(el, key, sc)
			return
		}
		b.emit(sc, Block{Kind: BlockText, Inlines: b.d.inline(n, key, base)})
	case TreatStatic:
		if el != nil && el.Kind == content.KindThematicBreak {
			b.emit(sc, Block{Kind: BlockRule, Style: theme.Rule})
			return
		}
		b.emit(sc, Block{Kind: BlockText, Inlines: b.d.inline(n, key, base)})
	case TreatImage:
		b.emit(sc, Block{Kind: BlockText, Inlines: b.d.inline(n, key, base)})
	case TreatAnimate:
		if el == nil {
			b.emit(sc, Block{Kind: BlockText, Inlines: b.d.inline(n, key, base)})
			return
		}
		switch el.Kind {
		case content.KindHeading:
			style := theme.Heading
			if el.Level == 1 {
				style = style.Underline(true)
			}
			marker := Inline{Kind: InlineStatic, Text: strings.Repeat("#", max(el.Level, 1)) + " ", Style: theme.Heading.Faint(true)}
			b.emit(sc, Block{Kind: BlockText, Inlines: append([]Inline{marker}, b.d.inlines(el.Children, key, style)...)})
		case content.KindListItem:
			b.blocks(el.Children, key, sc, base)
		default:
			b.emit(sc, Block{Kind: BlockText, Inlines: b.d.inlines(el.Children, key, base)})
		}
	case TreatPassthrough:
		if el == nil {
			return
		}
		switch el.Kind {
		case content.KindBlockquote:
			bar := []Span{{Text: "│ ", Style: theme.Border}}
			b.blocks(el.Children, key, sc.nest(bar, bar), theme.Quote)
		case content.KindList:
			b.list(el, key, sc, base)
		case content.KindTable:
			b.table(el, key, sc)
		default:
			b.blocks(el.Children, key, sc, base)
		}
	}
}

func (b *builder) list(el *content.Element, key string, sc *scope, base lipgloss.Style) {
	if b.listLvl > 0 {
		b.noGap = true
	}
	b.listLvl++
	defer func() { b.listLvl-- }()
	for i, item := range el.Children {
		marker := "• "
		if el.Ordered {
			marker = strconv.Itoa(el.Start+i) + ". "
		}
		first := []Span{{Text: marker, Style: b.d.theme.Bullet}}
		rest := []Span{{Text: strings.Repeat(" ", runewidth.StringWidth(marker))}}
		if i > 0 {
			b.noGap = true
		}
		child := sc.nest(first, rest)
		k := childKey(key, i)
		if li, ok := item.(*content.Element); ok && li.Kind == content.KindListItem {
			b.blocks(li.Children, k, child, base)
			continue
		}
		b.blocks([]content.Node{item}, k, child, base)
	}
}

func (b *builder) code(el *content.Element, key string, sc *scope) {
	units, header := b.d.codeUnits(key, el.Lang, el.Literal)
	if header != "" {
		b.emit(sc, Block{Kind: BlockText, Inlines: []Inline{{Kind: InlineStatic, Text: header, Style: b.d.theme.CodeHeader}}})
		b.noGap = true
	}
	b.emit(sc, Block{Kind: BlockCode, Lang: el.Lang, Inlines: []Inline{{Kind: InlineUnits, Key: key, Units: units}}})
}

func (b *builder) table(el *content.Element, key string, sc *scope) {
	theme := b.d.theme
	blk := Block{Kind: BlockTable, Style: theme.Border}
	for i, section := range el.Children {
		sk := childKey(key, i)
		sect, ok := section.(*content.Element)
		if !ok {
			continue
		}
		switch sect.Kind {
		case content.KindTableHead:
			blk.Rows = append(blk.Rows, b.d.row(sect.Children, sk, true))
		case content.KindTableRow:
			blk.Rows = append(blk.Rows, b.d.row(sect.Children, sk, false))
		}
	}
	b.emit(sc, blk)
}

func (d *Dispatcher) row(cells []content.Node, key string, header bool) Row {
	row := Row{Header: header}
	for i, c := range cells {
		cell, ok := c.(*content.Element)
		if !ok {
			continue
		}
		style := d.theme.Text
		if header || cell.Header {
			style = d.theme.TableHeader
		}
		row.Cells = append(row.Cells, Cell{Align: cell.Align, Inlines: d.inlines(cell.Children, childKey(key, i), style)})
	}
	return row
}

// inlines 把行内节点转换为 Inline，style 沿树向下累积。
func (d *Dispatcher) inlines(nodes []content.Node, key string, style lipgloss.Style) []Inline {
	var out []Inline
	for i, n := range nodes {
		out = append(out, d.inline(n, childKey(key, i), style)...)
	}
	return out
}

// inline 按 Classify 的结果分派行内节点。
func (d *Dispatcher) inline(n content.Node, key string, style lipgloss.Style) []Inline {
	theme := d.theme
	el, _ := n.(*content.Element)
	switch Classify(n) {
	case TreatCustom:
		ctx := &TagContext{Tag: n.(*content.CustomTag), Theme: theme, key: key, d: d, inline: true, base: style}
		var out []Inline
		for _, blk := range d.renderTag(ctx) {
			if len(out) > 0 {
				out = append(out, Inline{Kind: InlineStatic, Text: " "})
			}
			out = append(out, blk.Inlines...)
		}
		return out
	case TreatCode:
		var units []Unit
		for _, w := range segment.SplitWordsKeepSpace(el.Literal) {
			units = append(units, Unit{Text: w, Style: theme.Code})
		}
		return []Inline{{Kind: InlineUnits, Key: key, Units: units}}
	case TreatImage:
		return []Inline{{Kind: InlineImage, Key: key, Src: el.Dest, Alt: content.PlainText(el.Children), Style: theme.Link}}
	case TreatStatic:
		if el == nil {
			return nil
		}
		switch el.Kind {
		case content.KindTaskCheck:
			mark := "[ ] "
			if el.Checked {
				mark = "[x] "
			}
			return []Inline{{Kind: InlineStatic, Text: mark, Style: theme.Bullet}}
		case content.KindThematicBreak:
			return []Inline{{Kind: InlineBreak}}
		}
		if text := content.PlainText(el.Children); text != "" {
			return []Inline{{Kind: InlineStatic, Text: text, Style: style}}
		}
		return nil
	case TreatAnimate:
		if t, ok := n.(content.Text); ok {
			return []Inline{{Kind: InlineLeaf, Key: key, Text: t.Value, Style: style}}
		}
		switch el.Kind {
		case content.KindEmphasis:
			return d.inlines(el.Children, key, style.Italic(true))
		case content.KindStrong:
			return d.inlines(el.Children, key, style.Bold(true))
		case content.KindStrikethrough:
			return d.inlines(el.Children, key, style.Strikethrough(true))
		case content.KindLink:
			out := d.inlines(el.Children, key, theme.Link.Inherit(style))
			if el.Dest != "" && el.Dest != content.PlainText(el.Children) {
				out = append(out, Inline{Kind: InlineStatic, Text: " (" + el.Dest + ")", Style: theme.LinkDest})
			}
			return out
		default:
			return d.inlines(el.Children, key, style)
		}
	case TreatPassthrough:
		if el == nil {
			return nil
		}
		if el.Kind == content.KindLineBreak {
			return []Inline{{Kind: InlineBreak}}
		}
		return d.inlines(el.Children, key, style)
	}
	return nil
}

// codeUnits 高亮代码并把每个 token 按空格切成词单元，结果按 key 缓存。
func (d *Dispatcher) codeUnits(key, lang, literal string) ([]Unit, string) {
	if e, ok := d.codes[key]; ok && e.lang == lang && e.literal == literal {
		e.seen = true
		d.codes[key] = e
		return e.units, e.header
	}
	res := d.hl.Highlight(literal, lang)
	var units []Unit
	group := 0
	for i, line := range res.Lines {
		if i > 0 {
			units = append(units, Unit{Text: "\n", Group: group})
			group++
		}
		for _, tok := range line {
			for _, w := range segment.SplitWordsKeepSpace(tok.Text) {
				units = append(units, Unit{Text: w, Style: tok.Style, Group: group})
			}
			group++
		}
	}
	header := ""
	if lang != "" {
		header = res.Lang
	}
	d.codes[key] = codeEntry{lang: lang, literal: literal, units: units, header: header, seen: true}
	return units, header
}

func (d *Dispatcher) renderTag(ctx *TagContext) []Block {
	fn := d.tags[ctx.Tag.Name]
	if fn == nil {
		fn = Callout(ctx.Tag.Name, "")
	}
	return fn(ctx)
}

// TagContext 是自定义标签渲染函数可用的能力。
type TagContext struct {
	Tag   *content.CustomTag
	Theme Theme

	key    string
	d      *Dispatcher
	n      int
	inline bool
	base   lipgloss.Style
}

// Inline 报告标签是否出现在段落内。
func (c *TagContext) Inline() bool { return c.inline }

// Animate 把 text 加入与内置节点相同的 Segment 动画管线。
func (c *TagContext) Animate(text string, style lipgloss.Style) Inline {
	c.n++
	return Inline{Kind: InlineLeaf, Key: fmt.Sprintf("%s/~%d", c.key, c.n), Text: text, Style: style}
}

// Static 返回不参与动画的文本。
func (c *TagContext) Static(text string, style lipgloss.Style) Inline {
	return Inline{Kind: InlineStatic, Text: text, Style: style}
}

// Children 按常规规则分派标签内的子节点。
func (c *TagContext) Children() []Block {
	if c.inline {
		return []Block{{Kind: BlockText, Inlines: c.d.inlines(c.Tag.Children, c.key, c.base)}}
	}
	sub := &builder{d: c.d}
	sub.blocks(c.Tag.Children, c.key, &scope{}, c.Theme.Text)
	return sub.out
}

// Callout 返回一个提示框渲染函数：彩色竖条、标题行，标签内容逐段动画。
// title 属性会追加到标题后。
func Callout(label, color string) RenderFunc {
	return func(ctx *TagContext) []Block {
		accent := lipgloss.Color(ctx.Theme.Palette.Accent)
		if color != "" {
			accent = lipgloss.Color(color)
		}
		titleStyle := lipgloss.NewStyle().Foreground(accent).Bold(true)
		title := label
		if t := strings.TrimSpace(ctx.Tag.Attrs["title"]); t != "" {
			title += ": " + t
		}
		if ctx.Inline() {
			body := ctx.Children()[0].Inlines
			head := []Inline{ctx.Static("[", titleStyle), ctx.Animate(title, titleStyle), ctx.Static("] ", titleStyle)}
			return []Block{{Kind: BlockText, Inlines: append(head, body...)}}
		}
		bar := []Span{{Text: "┃ ", Style: lipgloss.NewStyle().Foreground(accent)}}
		out := []Block{{Kind: BlockText, Inlines: []Inline{ctx.Animate(title, titleStyle)}, Prefix: bar, Indent: bar}}
		for _, blk := range ctx.Children() {
			blk.Prefix = concat(bar, blk.Prefix)
			blk.Indent = concat(bar, blk.Indent)
			out = append(out, blk)
		}
		return out
	}
}

func childKey(parent string, i int) string {
	if parent == "" {
		return strconv.Itoa(i)
	}
	return parent + "/" + strconv.Itoa(i)
}

func concat(a, b []Span) []Span {
	if len(a) == 0 {
		return b
	}
	out := make([]Span, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
