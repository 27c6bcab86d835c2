package render

import "testing"

func plainLines(texts ...string) []Line {
	out := make([]Line, 0, len(texts))
	for _, t := range texts {
		out = append(out, Line{Spans: []Span{{Text: t}}})
	}
	return out
}

func TestViewportSetLinesKeepsBottom(t *testing.T) {
	vp := NewViewport(10, 2)
	vp.SetLines(plainLines("a", "b"))
	vp.GotoBottom()

	if !vp.SetLines(plainLines("a", "b", "c")) {
		t.Fatalf("expected content change")
	}
	if !vp.AtBottom() {
		t.Fatalf("viewport should stay anchored at bottom after append")
	}
	if vp.SetLines(plainLines("a", "b", "c")) {
		t.Fatalf("identical lines should be skipped")
	}
}

func TestViewportKeepsScrollPositionWhenNotAtBottom(t *testing.T) {
	vp := NewViewport(8, 2)
	vp.SetLines(plainLines("a", "b", "c", "d"))
	vp.SetYOffset(0)

	vp.SetLines(plainLines("a", "b", "c", "d", "e"))
	if vp.YOffset != 0 {
		t.Fatalf("scrolled viewport moved to %d", vp.YOffset)
	}
}
