package content

import (
	"html"
	"strings"

	"flowmark/internal/tagfilter"

	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
)

// tagSet 按名字识别已注册的自定义标签。原始大小写优先匹配，其次忽略大小写。
type tagSet struct {
	exact map[string]string
	lower map[string]string
}

func newTagSet(names tagfilter.Names) *tagSet {
	s := &tagSet{exact: map[string]string{}, lower: map[string]string{}}
	for _, n := range names.List() {
		s.exact[n] = n
		if _, ok := s.lower[strings.ToLower(n)]; !ok {
			s.lower[strings.ToLower(n)] = n
		}
	}
	return s
}

func (s *tagSet) lookup(name string) (string, bool) {
	if n, ok := s.exact[name]; ok {
		return n, true
	}
	n, ok := s.lower[strings.ToLower(name)]
	return n, ok
}

// openTag 是 raw HTML 开头的一个已注册标签。
type openTag struct {
	name   string
	attrs  map[string]string
	closed bool   // 同一段 raw 内已自闭合或出现对应闭合标签
	inner  string // 开闭标签之间的原文
	tail   string // 闭合标签之后的原文
}

// open 识别 raw 是否以已注册标签的开标签开头。
func (s *tagSet) open(raw string) (openTag, bool) {
	trimmed := strings.TrimLeft(raw, " \t\r\n")
	if len(s.exact) == 0 || !strings.HasPrefix(trimmed, "<") || strings.HasPrefix(trimmed, "</") {
		return openTag{}, false
	}
	z := xhtml.NewTokenizer(strings.NewReader(trimmed))
	tt := z.Next()
	if tt != xhtml.StartTagToken && tt != xhtml.SelfClosingTagToken {
		return openTag{}, false
	}
	opener := string(z.Raw())
	name, ok := s.lookup(rawTagName(opener))
	if !ok {
		return openTag{}, false
	}
	tok := openTag{name: name, attrs: map[string]string{}}
	if _, hasAttr := z.TagName(); hasAttr {
		for {
			key, val, more := z.TagAttr()
			tok.attrs[string(key)] = string(val)
			if !more {
				break
			}
		}
	}
	if tt == xhtml.SelfClosingTagToken {
		tok.closed = true
		tok.tail = trimmed[len(opener):]
		return tok, true
	}
	rest := trimmed[len(opener):]
	if idx, end := findClose(rest, name); idx >= 0 {
		tok.closed = true
		tok.inner = rest[:idx]
		tok.tail = rest[end:]
		return tok, true
	}
	tok.inner = rest
	return tok, true
}

// isClose 判断 raw 是否为任一已注册标签的闭合标签。
func (s *tagSet) isClose(raw string) bool {
	name, ok := closeName(raw)
	if !ok {
		return false
	}
	_, ok = s.lookup(name)
	return ok
}

// closes 判断 raw 是否为 name 的闭合标签。
func (s *tagSet) closes(raw, name string) bool {
	got, ok := closeName(raw)
	return ok && strings.EqualFold(got, name)
}

func closeName(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "</") {
		return "", false
	}
	return rawTagName(trimmed[1:]), true
}

// rawTagName 从 "<Name attr>" 或 "/Name>" 中取出保留大小写的标签名。
func rawTagName(raw string) string {
	raw = strings.TrimLeft(raw, "</")
	end := strings.IndexAny(raw, " \t\r\n/>")
	if end < 0 {
		return raw
	}
	return raw[:end]
}

// findClose 在 s 中查找 name 的闭合标签，返回起止下标；未找到返回 -1。
func findClose(s, name string) (int, int) {
	lower := strings.ToLower(s)
	needle := "</" + strings.ToLower(name)
	from := 0
	for {
		idx := strings.Index(lower[from:], needle)
		if idx < 0 {
			return -1, -1
		}
		idx += from
		rest := lower[idx+len(needle):]
		gt := strings.IndexByte(rest, '>')
		if gt >= 0 && strings.TrimSpace(rest[:gt]) == "" {
			return idx, idx + len(needle) + gt + 1
		}
		from = idx + len(needle)
	}
}

var textPolicy = bluemonday.StrictPolicy()

// sanitizeHTML 把未注册的 raw HTML 降级为纯文本，<br> 保留为换行。
func sanitizeHTML(raw string, block bool) []Node {
	if isBreak(raw) {
		return []Node{&Element{Kind: KindLineBreak}}
	}
	value := html.UnescapeString(textPolicy.Sanitize(raw))
	if block {
		value = strings.TrimSpace(value)
		if value == "" {
			return nil
		}
		return []Node{&Element{Kind: KindParagraph, Children: []Node{Text{Value: value}}}}
	}
	if value == "" {
		return nil
	}
	return []Node{Text{Value: value}}
}

func isBreak(raw string) bool {
	name := strings.ToLower(rawTagName(strings.TrimSpace(raw)))
	return strings.HasPrefix(strings.TrimSpace(raw), "<") && name == "br"
}
