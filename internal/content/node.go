// Package content 把一份 Markdown 快照解析为封闭的节点树：Text、Element、CustomTag。
// 解析本身交给 goldmark，这里只做结构映射与自定义标签识别。
package content

import "strings"

// Kind 是 Element 的结构类型。
type Kind int

const (
	KindDocument Kind = iota
	KindParagraph
	KindHeading
	KindBlockquote
	KindList
	KindListItem
	KindTaskCheck
	KindCodeBlock
	KindCodeSpan
	KindEmphasis
	KindStrong
	KindStrikethrough
	KindLink
	KindImage
	KindThematicBreak
	KindLineBreak
	KindTable
	KindTableHead
	KindTableRow
	KindTableCell
)

var kindNames = map[Kind]string{
	KindDocument:      "document",
	KindParagraph:     "p",
	KindHeading:       "h",
	KindBlockquote:    "blockquote",
	KindList:          "list",
	KindListItem:      "li",
	KindTaskCheck:     "task",
	KindCodeBlock:     "pre",
	KindCodeSpan:      "code",
	KindEmphasis:      "em",
	KindStrong:        "strong",
	KindStrikethrough: "del",
	KindLink:          "a",
	KindImage:         "img",
	KindThematicBreak: "hr",
	KindLineBreak:     "br",
	KindTable:         "table",
	KindTableHead:     "thead",
	KindTableRow:      "tr",
	KindTableCell:     "td",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Node 是封闭的节点变体，只有本包内的三种实现。
type Node interface {
	node()
}

// Text 是叶子文本。
type Text struct {
	Value string
}

// Element 是结构节点。不同 Kind 只使用其中部分字段。
type Element struct {
	Kind     Kind
	Children []Node

	Level   int    // heading 级别
	Ordered bool   // list
	Start   int    // 有序列表起始序号
	Checked bool   // task
	Dest    string // link/image 目标
	Title   string
	Lang    string // code block 语言
	Literal string // code block/span 原文
	Header  bool   // table cell 是否位于表头
	Align   string // table cell 对齐：left/center/right/""
}

// CustomTag 是调用方注册的自定义组件。
type CustomTag struct {
	Name     string
	Attrs    map[string]string
	Content  string
	Children []Node
}

func (Text) node()       {}
func (*Element) node()   {}
func (*CustomTag) node() {}

// PlainText 拼接节点下所有叶子文本。
func PlainText(nodes []Node) string {
	var b strings.Builder
	writePlain(&b, nodes)
	return b.String()
}

func writePlain(b *strings.Builder, nodes []Node) {
	for _, n := range nodes {
		switch v := n.(type) {
		case Text:
			b.WriteString(v.Value)
		case *Element:
			switch v.Kind {
			case KindCodeSpan, KindCodeBlock:
				b.WriteString(v.Literal)
			case KindLineBreak:
				b.WriteString("\n")
			default:
				writePlain(b, v.Children)
			}
		case *CustomTag:
			writePlain(b, v.Children)
		}
	}
}
