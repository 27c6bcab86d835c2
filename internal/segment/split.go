package segment

import (
	"unicode"
	"unicode/utf8"
)

// Split 按模式切分文本，拼接结果等于原文。diff 模式返回整段。
func Split(mode Mode, text string) []string {
	if text == "" {
		return nil
	}
	switch mode {
	case ModeWord:
		return SplitWords(text)
	case ModeChar:
		return splitRunes(text)
	default:
		return []string{text}
	}
}

// SplitWords 把文本切成交替的“词”与“空白串”。
func SplitWords(text string) []string {
	out := []string{}
	start := 0
	inSpace := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if i == 0 {
			inSpace = space
			continue
		}
		if space != inSpace {
			out = append(out, text[start:i])
			start = i
			inSpace = space
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// SplitWordsKeepSpace 按空格切分，空格留在前一个词尾部："hello world" -> "hello ", "world"。
// 用于代码 token 的逐词动画。
func SplitWordsKeepSpace(text string) []string {
	out := []string{}
	start := 0
	prevSpace := false
	for i, r := range text {
		space := r == ' ' || r == '\t'
		if !space && prevSpace && i > start {
			out = append(out, text[start:i])
			start = i
		}
		prevSpace = space
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func splitRunes(text string) []string {
	out := make([]string, 0, utf8.RuneCountInString(text))
	for len(text) > 0 {
		_, size := utf8.DecodeRuneInString(text)
		out = append(out, text[:size])
		text = text[size:]
	}
	return out
}
