// Package highlight 用 chroma 给代码着色，返回按行分组的带样式 token。
// 语言未知时使用 plaintext，高亮出错或 panic 时回退为纯文本。
package highlight

import (
	"fmt"
	"strings"

	"flowmark/internal/logger"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// PlainLang 是未知语言时使用的语言标识。
const PlainLang = "plaintext"

// DefaultStyle 是默认的 chroma 配色。
const DefaultStyle = "monokai"

// Token 是一段带样式的代码文本，不含换行。
type Token struct {
	Text  string
	Style lipgloss.Style
}

// Result 是一次高亮的结果。
type Result struct {
	// Lang 为实际使用的语言，未知语言时为 PlainLang。
	Lang  string
	Lines [][]Token
	// Fallback 为 true 表示高亮失败，Lines 为未着色的原文。
	Fallback bool
}

// Text 返回所有 token 拼接后的文本，行间以换行连接。
func (r Result) Text() string {
	var b strings.Builder
	for i, line := range r.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		for _, tok := range line {
			b.WriteString(tok.Text)
		}
	}
	return b.String()
}

// Highlighter 持有配色与样式缓存，只在 UI 线程使用。
type Highlighter struct {
	style *chroma.Style
	cache map[chroma.TokenType]lipgloss.Style
	// tokenise 可在测试中替换。
	tokenise func(lexer chroma.Lexer, code string) ([]chroma.Token, error)
}

// New 按名字创建高亮器，名字未知时使用 chroma 的默认配色。
func New(styleName string) *Highlighter {
	if styleName == "" {
		styleName = DefaultStyle
	}
	return &Highlighter{
		style:    styles.Get(styleName),
		cache:    map[chroma.TokenType]lipgloss.Style{},
		tokenise: tokenise,
	}
}

// Highlight 给 code 着色。结尾的换行与空白行被去掉。
func (h *Highlighter) Highlight(code, lang string) (res Result) {
	code = strings.TrimRight(code, "\n")
	lexer, used := resolveLexer(lang)
	defer func() {
		if r := recover(); r != nil {
			logger.Named("highlight").Warnf("highlight %s panicked: %v", used, r)
			res = plain(code, used)
		}
	}()
	tokens, err := h.tokenise(lexer, code)
	if err != nil {
		logger.Named("highlight").Warnf("highlight %s failed: %v", used, err)
		return plain(code, used)
	}
	res = Result{Lang: used}
	for _, line := range chroma.SplitTokensIntoLines(tokens) {
		out := make([]Token, 0, len(line))
		for _, tok := range line {
			text := strings.TrimRight(tok.Value, "\n")
			if text == "" {
				continue
			}
			out = append(out, Token{Text: text, Style: h.styleFor(tok.Type)})
		}
		res.Lines = append(res.Lines, out)
	}
	res.Lines = trimBlankTail(res.Lines)
	return res
}

func (h *Highlighter) styleFor(tt chroma.TokenType) lipgloss.Style {
	if st, ok := h.cache[tt]; ok {
		return st
	}
	entry := h.style.Get(tt)
	st := lipgloss.NewStyle()
	if entry.Colour.IsSet() {
		st = st.Foreground(lipgloss.Color(entry.Colour.String()))
	}
	if entry.Bold == chroma.Yes {
		st = st.Bold(true)
	}
	if entry.Italic == chroma.Yes {
		st = st.Italic(true)
	}
	if entry.Underline == chroma.Yes {
		st = st.Underline(true)
	}
	h.cache[tt] = st
	return st
}

// resolveLexer 按语言名或文件扩展名查找 lexer，找不到时返回 plaintext。
func resolveLexer(lang string) (chroma.Lexer, string) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang != "" {
		if l := lexers.Get(lang); l != nil {
			return chroma.Coalesce(l), lang
		}
	}
	l := lexers.Get(PlainLang)
	if l == nil {
		l = lexers.Fallback
	}
	return chroma.Coalesce(l), PlainLang
}

func tokenise(lexer chroma.Lexer, code string) ([]chroma.Token, error) {
	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return nil, fmt.Errorf("tokenise: %w", err)
	}
	return it.Tokens(), nil
}

func plain(code, lang string) Result {
	res := Result{Lang: lang, Fallback: true}
	for _, line := range strings.Split(code, "\n") {
		if line == "" {
			res.Lines = append(res.Lines, nil)
			continue
		}
		res.Lines = append(res.Lines, []Token{{Text: line}})
	}
	res.Lines = trimBlankTail(res.Lines)
	return res
}

func trimBlankTail(lines [][]Token) [][]Token {
	for len(lines) > 0 && blank(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func blank(line []Token) bool {
	for _, tok := range line {
		if strings.TrimSpace(tok.Text) != "" {
			return false
		}
	}
	return true
}
