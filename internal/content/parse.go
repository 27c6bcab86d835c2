package content

import (
	"strings"

	"flowmark/internal/logger"
	"flowmark/internal/tagfilter"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Parser 把快照解析为节点树。实例不保存快照之间的状态，可以重复使用。
type Parser struct {
	md   goldmark.Markdown
	tags *tagSet
}

// NewParser 创建解析器，names 为已注册的自定义标签。
func NewParser(names tagfilter.Names) *Parser {
	return &Parser{
		md:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
		tags: newTagSet(names),
	}
}

// Parse 解析一份完整快照，返回 KindDocument 根节点。
func (p *Parser) Parse(snapshot string) *Element {
	src := []byte(snapshot)
	doc := p.md.Parser().Parse(text.NewReader(src))
	c := &converter{src: src, parser: p}
	return &Element{Kind: KindDocument, Children: c.children(doc)}
}

type converter struct {
	src    []byte
	parser *Parser
}

func (c *converter) children(parent ast.Node) []Node {
	var kids []ast.Node
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		kids = append(kids, n)
	}
	return c.list(kids)
}

// list 转换一组兄弟节点，并把跨节点的自定义标签开闭合并为一个 CustomTag。
func (c *converter) list(kids []ast.Node) []Node {
	var out []Node
	for i := 0; i < len(kids); i++ {
		raw, ok := c.rawHTML(kids[i])
		if !ok {
			out = append(out, c.convert(kids[i])...)
			continue
		}
		tok, ok := c.parser.tags.open(raw)
		if !ok {
			if c.parser.tags.isClose(raw) {
				continue
			}
			out = append(out, sanitizeHTML(raw, isBlock(kids[i]))...)
			continue
		}
		tag := &CustomTag{Name: tok.name, Attrs: tok.attrs}
		var inner []Node
		if tok.inner != "" {
			inner = append(inner, c.fragment(tok.inner)...)
		}
		if !tok.closed {
			depth := 0
			j := i + 1
			for ; j < len(kids); j++ {
				if r, ok := c.rawHTML(kids[j]); ok {
					if c.parser.tags.closes(r, tok.name) {
						if depth == 0 {
							break
						}
						depth--
					} else if t, ok := c.parser.tags.open(r); ok && t.name == tok.name && !t.closed {
						depth++
					}
				}
				inner = append(inner, c.convert(kids[j])...)
			}
			i = j
		}
		tag.Children = mergeText(inner)
		tag.Content = PlainText(tag.Children)
		out = append(out, tag)
		if tok.tail != "" {
			out = append(out, c.fragment(tok.tail)...)
		}
	}
	return mergeText(out)
}

// fragment 解析自定义标签内部或尾随的 Markdown 片段。
func (c *converter) fragment(src string) []Node {
	if strings.TrimSpace(src) == "" {
		return nil
	}
	return c.parser.Parse(src).Children
}

func (c *converter) rawHTML(n ast.Node) (string, bool) {
	switch v := n.(type) {
	case *ast.RawHTML:
		return segmentsText(v.Segments, c.src), true
	case *ast.HTMLBlock:
		raw := c.lines(v)
		if v.HasClosure() {
			raw += string(v.ClosureLine.Value(c.src))
		}
		return raw, true
	}
	return "", false
}

func (c *converter) convert(n ast.Node) []Node {
	switch v := n.(type) {
	case *ast.Text:
		value := string(v.Segment.Value(c.src))
		out := []Node{Text{Value: value}}
		switch {
		case v.HardLineBreak():
			out = append(out, &Element{Kind: KindLineBreak})
		case v.SoftLineBreak():
			out = []Node{Text{Value: value + " "}}
		}
		return out
	case *ast.String:
		return []Node{Text{Value: string(v.Value)}}
	case *ast.Paragraph, *ast.TextBlock:
		return []Node{&Element{Kind: KindParagraph, Children: c.children(n)}}
	case *ast.Heading:
		return []Node{&Element{Kind: KindHeading, Level: v.Level, Children: c.children(n)}}
	case *ast.Blockquote:
		return []Node{&Element{Kind: KindBlockquote, Children: c.children(n)}}
	case *ast.List:
		start := v.Start
		if start == 0 {
			start = 1
		}
		return []Node{&Element{Kind: KindList, Ordered: v.IsOrdered(), Start: start, Children: c.children(n)}}
	case *ast.ListItem:
		return []Node{&Element{Kind: KindListItem, Children: c.children(n)}}
	case *ast.FencedCodeBlock:
		lang := ""
		if v.Info != nil {
			lang = string(v.Language(c.src))
		}
		return []Node{&Element{Kind: KindCodeBlock, Lang: lang, Literal: c.lines(v)}}
	case *ast.CodeBlock:
		return []Node{&Element{Kind: KindCodeBlock, Literal: c.lines(v)}}
	case *ast.CodeSpan:
		var b strings.Builder
		for ch := v.FirstChild(); ch != nil; ch = ch.NextSibling() {
			switch t := ch.(type) {
			case *ast.Text:
				b.Write(t.Segment.Value(c.src))
			case *ast.String:
				b.Write(t.Value)
			}
		}
		return []Node{&Element{Kind: KindCodeSpan, Literal: b.String()}}
	case *ast.Emphasis:
		kind := KindEmphasis
		if v.Level >= 2 {
			kind = KindStrong
		}
		return []Node{&Element{Kind: kind, Children: c.children(n)}}
	case *ast.Link:
		return []Node{&Element{Kind: KindLink, Dest: string(v.Destination), Title: string(v.Title), Children: c.children(n)}}
	case *ast.AutoLink:
		url := string(v.URL(c.src))
		return []Node{&Element{Kind: KindLink, Dest: url, Children: []Node{Text{Value: string(v.Label(c.src))}}}}
	case *ast.Image:
		return []Node{&Element{Kind: KindImage, Dest: string(v.Destination), Title: string(v.Title), Children: c.children(n)}}
	case *ast.ThematicBreak:
		return []Node{&Element{Kind: KindThematicBreak}}
	case *east.Strikethrough:
		return []Node{&Element{Kind: KindStrikethrough, Children: c.children(n)}}
	case *east.TaskCheckBox:
		return []Node{&Element{Kind: KindTaskCheck, Checked: v.IsChecked}}
	case *east.Table:
		return []Node{&Element{Kind: KindTable, Children: c.children(n)}}
	case *east.TableHeader:
		cells := c.children(n)
		for _, cell := range cells {
			if el, ok := cell.(*Element); ok {
				el.Header = true
			}
		}
		return []Node{&Element{Kind: KindTableHead, Children: cells}}
	case *east.TableRow:
		return []Node{&Element{Kind: KindTableRow, Children: c.children(n)}}
	case *east.TableCell:
		align := ""
		if v.Alignment != east.AlignNone {
			align = v.Alignment.String()
		}
		return []Node{&Element{Kind: KindTableCell, Align: align, Children: c.children(n)}}
	default:
		logger.Named("content").Debugf("unmapped node %s, keeping children", n.Kind().String())
		return c.children(n)
	}
}

func (c *converter) lines(n ast.Node) string {
	lines := n.Lines()
	if lines == nil {
		return ""
	}
	return segmentsText(lines, c.src)
}

func segmentsText(segs *text.Segments, src []byte) string {
	if segs == nil {
		return ""
	}
	var b strings.Builder
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}

func isBlock(n ast.Node) bool {
	return n.Type() == ast.TypeBlock
}

// mergeText 合并相邻的 Text 节点并丢弃空文本。
func mergeText(nodes []Node) []Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		t, ok := n.(Text)
		if !ok {
			out = append(out, n)
			continue
		}
		if t.Value == "" {
			continue
		}
		if len(out) > 0 {
			if prev, ok := out[len(out)-1].(Text); ok {
				out[len(out)-1] = Text{Value: prev.Value + t.Value}
				continue
			}
		}
		out = append(out, t)
	}
	return out
}
