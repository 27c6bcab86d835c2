package region

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"flowmark/internal/animate"
	"flowmark/internal/segment"
	"flowmark/internal/tui/render"
)

type harness struct {
	r     *Region
	clock *animate.ManualClock
	msgs  []SettleMsg
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{clock: animate.NewManualClock(time.Unix(1_700_000_000, 0))}
	opts.Clock = h.clock
	if opts.Animation == "" {
		opts.Animation = animate.FadeIn
	}
	opts.Notify = func(msg SettleMsg) { h.msgs = append(h.msgs, msg) }
	r, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.r = r
	t.Cleanup(r.Close)
	return h
}

// finish 绘制一帧，让动画播放完毕，再等防抖到期并交回全部通知。
func (h *harness) finish() {
	h.r.Render(80, h.clock.Now())
	h.clock.Advance(time.Second)
	h.r.Advance(h.clock.Now())
	h.clock.Advance(animate.DefaultDebounce)
	for _, msg := range h.msgs {
		h.r.Settle(msg)
	}
	h.msgs = nil
}

func segTexts(segs []segment.Segment) []string {
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		out = append(out, s.Text)
	}
	return out
}

func plain(lines []render.Line) []string {
	return render.LinesToPlainStrings(lines)
}

func TestPushAppendsSegments(t *testing.T) {
	h := newHarness(t, Options{})
	for _, snap := range []string{"Hello", "Hello world", "Hello world", "Hello world!"} {
		h.r.Push(snap)
	}
	l := h.r.leaves["0/0"]
	if l == nil {
		t.Fatalf("leaf not mounted: %v", h.r.leafKeys())
	}
	if got, want := segTexts(l.block.Segments()), []string{"Hello", " world", "!"}; !slices.Equal(got, want) {
		t.Fatalf("segments = %q, want %q", got, want)
	}
	if h.r.Text() != "Hello world!" {
		t.Fatalf("text = %q", h.r.Text())
	}
}

func TestPushShrinkStartsNewSession(t *testing.T) {
	h := newHarness(t, Options{})
	h.r.Push("Hello world")
	h.r.Push("Hi")
	segs := h.r.leaves["0/0"].block.Segments()
	if len(segs) != 1 || segs[0].ID != 0 || segs[0].Text != "Hi" {
		t.Fatalf("segments = %+v", segs)
	}
}

func TestPushSameLengthEditInLongParagraph(t *testing.T) {
	h := newHarness(t, Options{})
	pad := strings.Repeat("x", 40)
	tail := strings.Repeat("y", 40)
	a := pad + " first " + tail
	b := pad + " other " + tail
	h.r.Push(a)
	h.finish()
	h.r.Push(b)
	h.finish()
	if h.r.Text() != b {
		t.Fatalf("text = %q", h.r.Text())
	}
	got := strings.Join(plain(h.r.Render(200, h.clock.Now())), "\n")
	if !strings.Contains(got, "other") || strings.Contains(got, "first") {
		t.Fatalf("render shows stale text: %q", got)
	}
}

func TestSettlementFinality(t *testing.T) {
	h := newHarness(t, Options{})
	h.r.Push("Hello world")
	animating := plain(h.r.Render(80, h.clock.Now()))
	if h.r.FullySettled() {
		t.Fatalf("settled before animation finished")
	}
	h.finish()
	if !h.r.FullySettled() {
		t.Fatalf("region did not settle")
	}
	lines := h.r.Render(80, h.clock.Now())
	if got := plain(lines); !slices.Equal(got, animating) {
		t.Fatalf("settled render %q differs from %q", got, animating)
	}
	if len(lines[0].Spans) != 1 || lines[0].Spans[0].Text != "Hello world" {
		t.Fatalf("settled leaf should be one plain span: %+v", lines[0].Spans)
	}
	if got, want := render.LinesToStrings(lines), render.LinesToStrings(h.r.doc.Lines(80, nil)); !slices.Equal(got, want) {
		t.Fatalf("settled render carries extra styling:\n%q\n%q", got, want)
	}
	if h.r.Advance(h.clock.Now()) {
		t.Fatalf("settled region still reports activity")
	}
}

func TestResumeAfterSettle(t *testing.T) {
	h := newHarness(t, Options{})
	h.r.Push("Hello")
	h.finish()
	h.r.Push("Hello world")
	if h.r.FullySettled() {
		t.Fatalf("new segment must reopen the block")
	}
	segs := h.r.leaves["0/0"].block.Segments()
	if segs[0].State != segment.Settled || segs[1].State != segment.Pending {
		t.Fatalf("states = %v %v", segs[0].State, segs[1].State)
	}
}

func TestOutOfOrderCompletion(t *testing.T) {
	h := newHarness(t, Options{})
	h.r.Push("a")
	h.r.Push("a b")
	h.r.Push("a b c")
	h.r.Render(80, h.clock.Now())
	for _, id := range []int{2, 0, 1, 1} {
		h.r.AnimationEnd(UnitRef{Leaf: "0/0", ID: id})
	}
	if h.clock.Pending() != 1 {
		t.Fatalf("expected one debounce timer, got %d", h.clock.Pending())
	}
	h.clock.Advance(animate.DefaultDebounce)
	if len(h.msgs) != 1 {
		t.Fatalf("expected one settle message, got %d", len(h.msgs))
	}
	h.r.Settle(h.msgs[0])
	if !h.r.FullySettled() {
		t.Fatalf("region did not settle")
	}
}

func TestSettleIgnoresForeignAndStaleMessages(t *testing.T) {
	h := newHarness(t, Options{})
	h.r.Push("Hello")
	h.r.Render(80, h.clock.Now())
	h.r.AnimationEnd(UnitRef{Leaf: "0/0", ID: 0})
	h.clock.Advance(animate.DefaultDebounce)
	msg := h.msgs[0]

	h.r.Settle(SettleMsg{Region: "other", Block: msg.Block})
	if h.r.FullySettled() {
		t.Fatalf("foreign message settled the region")
	}
	h.r.Push("Hello there")
	h.r.Settle(msg)
	if h.r.FullySettled() {
		t.Fatalf("stale message settled the region")
	}
}

func TestPartialTagHidden(t *testing.T) {
	cases := []struct {
		snapshot string
		want     string
	}{
		{snapshot: "see <Al", want: "see"},
		{snapshot: "see <Alert ", want: "see"},
		{snapshot: "see <Unknown", want: "see <Unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.snapshot, func(t *testing.T) {
			h := newHarness(t, Options{Tags: map[string]render.RenderFunc{"Alert": nil}})
			h.r.Push(tc.snapshot)
			got := plain(h.r.Render(80, h.clock.Now()))
			if len(got) != 1 || got[0] != tc.want {
				t.Fatalf("render = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPartialTagNeverRetractsShownText(t *testing.T) {
	h := newHarness(t, Options{Tags: map[string]render.RenderFunc{"Alert": nil}})
	h.r.Push("x <")
	h.r.Push("x <A")
	segs := h.r.leaves["0/0"].block.Segments()
	if got := segment.Join(segs); got != "x <" {
		t.Fatalf("shown text = %q", got)
	}
}

func TestAnimationNoneBypassesBookkeeping(t *testing.T) {
	h := newHarness(t, Options{Animation: animate.None, Tags: map[string]render.RenderFunc{"Alert": nil}})
	h.r.Push("Hello <Al")
	if len(h.r.leaves) != 0 {
		t.Fatalf("bookkeeping performed: %v", h.r.leafKeys())
	}
	if got := plain(h.r.Render(80, h.clock.Now())); got[0] != "Hello" {
		t.Fatalf("render = %q", got)
	}
}

func TestUnknownSeparatorFailsFast(t *testing.T) {
	_, err := New(Options{Separator: "wrod"})
	if !errors.Is(err, segment.ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
}

func TestWordSeparator(t *testing.T) {
	h := newHarness(t, Options{Separator: "word"})
	h.r.Push("one tw")
	h.r.Push("one two three")
	segs := h.r.leaves["0/0"].block.Segments()
	if got, want := segTexts(segs), []string{"one", " ", "two", " ", "three"}; !slices.Equal(got, want) {
		t.Fatalf("segments = %q, want %q", got, want)
	}
}

func TestCodeTokensAnimateWordByWord(t *testing.T) {
	h := newHarness(t, Options{})
	h.r.Push("```\nhello world\n```\n")
	l := h.r.leaves["0"]
	if l == nil {
		t.Fatalf("code leaf not mounted: %v", h.r.leafKeys())
	}
	if got, want := segTexts(l.block.Segments()), []string{"hello ", "world"}; !slices.Equal(got, want) {
		t.Fatalf("units = %q, want %q", got, want)
	}
	h.finish()
	lines := h.r.Render(80, h.clock.Now())
	if len(lines) != 1 || len(lines[0].Spans) != 1 || lines[0].Spans[0].Text != "hello world" {
		t.Fatalf("settled code should merge back into its token: %+v", lines)
	}
}

func TestImageWaitsForLoad(t *testing.T) {
	h := newHarness(t, Options{})
	h.r.Push("![cat](cat.png)")
	if imgs := h.r.Images(); !slices.Equal(imgs, []string{"cat.png"}) {
		t.Fatalf("images = %q", imgs)
	}
	lines := plain(h.r.Render(80, h.clock.Now()))
	if lines[0] != "[image: cat]" {
		t.Fatalf("placeholder = %q", lines[0])
	}
	for _, key := range h.r.leafKeys() {
		if strings.HasPrefix(key, "0/0") {
			t.Fatalf("unloaded image must not animate, leaf %s mounted", key)
		}
	}
	h.r.ImageLoaded("cat.png")
	if l := h.r.leaves["0/0"]; l == nil || len(l.block.Segments()) != 1 {
		t.Fatalf("image leaf not animated after load")
	}
	if len(h.r.Images()) != 0 {
		t.Fatalf("loaded image still listed")
	}
}

func TestLeafUnmountedWhenTreeChanges(t *testing.T) {
	h := newHarness(t, Options{})
	h.r.Push("*hel")
	h.r.Render(80, h.clock.Now())
	h.r.Push("*hello*")
	if _, ok := h.r.leaves["0/0"]; ok {
		t.Fatalf("stale leaf kept")
	}
	if _, ok := h.r.leaves["0/0/0"]; !ok {
		t.Fatalf("emphasis leaf not mounted: %v", h.r.leafKeys())
	}
}

func TestCloseReleasesTimers(t *testing.T) {
	h := newHarness(t, Options{})
	h.r.Push("Hello")
	h.r.Render(80, h.clock.Now())
	h.r.AnimationEnd(UnitRef{Leaf: "0/0", ID: 0})
	if h.clock.Pending() != 1 {
		t.Fatalf("expected pending debounce")
	}
	h.r.Close()
	if h.clock.Pending() != 0 {
		t.Fatalf("timers survived Close: %d", h.clock.Pending())
	}
	h.clock.Advance(time.Second)
	if len(h.msgs) != 0 {
		t.Fatalf("closed region received notifications")
	}
	h.r.Push("Hello again")
	h.r.Settle(SettleMsg{Region: h.r.ID()})
	if !h.r.Closed() || h.r.Text() != "Hello" {
		t.Fatalf("closed region accepted input")
	}
	if got := plain(h.r.Render(80, h.clock.Now())); !slices.Equal(got, []string{"Hello"}) {
		t.Fatalf("closed region should render its last text statically, got %q", got)
	}
}
