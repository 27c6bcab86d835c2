package render

import (
	"slices"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestWrapTextWithWideRunes(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{
			name:  "pure wide runes",
			text:  "你好世界",
			width: 4,
			want:  []string{"你好", "世界"},
		},
		{
			name:  "mix wide and ascii",
			text:  "你好 hello",
			width: 4,
			want:  []string{"你好", "hell", "o"},
		},
		{
			name:  "words",
			text:  "the quick brown fox",
			width: 10,
			want:  []string{"the quick", "brown fox"},
		},
		{
			name:  "explicit newline",
			text:  "a\nb",
			width: 10,
			want:  []string{"a", "b"},
		},
		{
			name:  "empty",
			text:  "",
			width: 5,
			want:  []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapText(tt.text, tt.width)
			if !slices.Equal(got, tt.want) {
				t.Fatalf("wrapText(%q,%d)=%v want %v", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

func TestWrapSpansKeepsWordsAcrossSpans(t *testing.T) {
	bold := lipgloss.NewStyle().Bold(true)
	spans := []Span{{Text: "aaaa Hel"}, {Text: "lo", Style: bold}, {Text: " b"}}
	got := LinesToPlainStrings(WrapSpans(spans, 6))
	want := []string{"aaaa", "Hello", "b"}
	if !slices.Equal(got, want) {
		t.Fatalf("wrapped = %q want %q", got, want)
	}
	lines := WrapSpans(spans, 6)
	if len(lines[1].Spans) != 2 {
		t.Fatalf("styled halves must stay separate spans: %+v", lines[1].Spans)
	}
}

func TestHardWrapPreservesWhitespace(t *testing.T) {
	got := LinesToPlainStrings(HardWrap([]Span{{Text: "  if x {\n    return\n}"}}, 4))
	want := []string{"  if", " x {", "    ", "retu", "rn", "}"}
	if !slices.Equal(got, want) {
		t.Fatalf("hard wrapped = %q want %q", got, want)
	}
}
