package render

import "strings"

// IsBlankLineSpacesOnly 判断行是否为空或仅包含空格。
func IsBlankLineSpacesOnly(line Line) bool {
	if len(line.Spans) == 0 {
		return true
	}
	for _, sp := range line.Spans {
		if strings.Trim(sp.Text, " ") != "" {
			return false
		}
	}
	return true
}

// PrefixLines 为首行/续行添加前缀。
func PrefixLines(lines []Line, initial []Span, subsequent []Span) []Line {
	out := make([]Line, 0, len(lines))
	for i, l := range lines {
		prefix := subsequent
		if i == 0 {
			prefix = initial
		}
		spans := make([]Span, 0, len(l.Spans)+len(prefix))
		spans = append(spans, prefix...)
		spans = append(spans, l.Spans...)
		out = append(out, Line{Spans: spans, Style: l.Style})
	}
	return out
}

// spansWidth 返回一组 Span 的显示宽度。
func spansWidth(spans []Span) int {
	return Line{Spans: spans}.Width()
}
