// Package tagfilter 隐藏流式文本末尾尚未输入完整的自定义标签开头，
// 例如 "see <Al" 在 Alert 注册时渲染为 "see "。
package tagfilter

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Names 是已注册的自定义标签名集合，区分大小写。
type Names map[string]struct{}

// NewNames 由标签名构造集合，忽略空名。
func NewNames(names ...string) Names {
	out := make(Names, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out[n] = struct{}{}
		}
	}
	return out
}

// Has 判断是否注册了 name。
func (n Names) Has(name string) bool {
	_, ok := n[name]
	return ok
}

// List 返回排序后的标签名。
func (n Names) List() []string {
	out := make([]string, 0, len(n))
	for k := range n {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Filter 截掉 text 末尾可能属于已注册标签的未闭合片段。
// 无法判定时原样返回，宁可短暂显示也不吞掉内容。
func Filter(text string, names Names) string {
	if text == "" || len(names) == 0 {
		return text
	}
	idx := strings.LastIndexByte(text, '<')
	if idx < 0 {
		return text
	}
	fragment := text[idx+1:]
	if strings.IndexByte(fragment, '>') >= 0 {
		return text
	}
	// 闭合标签同样可能被拆开："</Ale"。
	fragment = strings.TrimPrefix(fragment, "/")
	for name := range names {
		if isPartial(fragment, name) {
			return text[:idx]
		}
	}
	return text
}

// isPartial 判断片段是否为 name 的非空前缀，或是完整 name 后跟空白/结尾。
func isPartial(fragment, name string) bool {
	if fragment == "" {
		return false
	}
	if len(fragment) <= len(name) && strings.HasPrefix(name, fragment) {
		return true
	}
	if !strings.HasPrefix(fragment, name) {
		return false
	}
	rest := fragment[len(name):]
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsSpace(r)
}
