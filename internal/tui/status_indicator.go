package tui

import (
	"fmt"
	"time"

	"flowmark/internal/tui/render"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// StatusIndicatorState 枚举了状态指示器可显示的所有状态。
type StatusIndicatorState int

const (
	// StatusWaiting 表示尚未收到任何快照，计时器持续累加。
	StatusWaiting StatusIndicatorState = iota
	// StatusStreaming 表示快照仍在到达。
	StatusStreaming
	// StatusSettling 表示流已结束，动画仍在播放或等待沉降。
	StatusSettling
	// StatusError 表示生产者出错。
	StatusError
	// StatusDone 表示流结束且全部内容已沉降，计时停止。
	StatusDone
)

func (s StatusIndicatorState) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusStreaming:
		return "streaming"
	case StatusSettling:
		return "settling"
	case StatusError:
		return "error"
	case StatusDone:
		return "done"
	default:
		return "unknown"
	}
}

func (s StatusIndicatorState) defaultHeader() string {
	switch s {
	case StatusWaiting:
		return "Waiting for input"
	case StatusStreaming:
		return "Streaming"
	case StatusSettling:
		return "Settling"
	case StatusError:
		return "Error"
	case StatusDone:
		return "Done"
	default:
		return ""
	}
}

func (s StatusIndicatorState) tracksElapsed() bool {
	return s == StatusWaiting || s == StatusStreaming || s == StatusSettling
}

func (s StatusIndicatorState) valid() bool {
	switch s {
	case StatusWaiting, StatusStreaming, StatusSettling, StatusError, StatusDone:
		return true
	default:
		return false
	}
}

// StatusIndicatorOptions 控制指示器的初始化行为。
type StatusIndicatorOptions struct {
	State             StatusIndicatorState
	Header            string
	AnimationsEnabled bool
	Spinner           spinner.Spinner
	Clock             func() time.Time
}

// StatusIndicatorWidget 渲染状态行：spinner + 标题 + 计时 + 附加信息。
type StatusIndicatorWidget struct {
	header            string
	detail            string
	state             StatusIndicatorState
	animationsEnabled bool
	spin              spinner.Spinner

	elapsedRunning time.Duration
	lastResumeAt   time.Time
	paused         bool

	clock func() time.Time
}

// NewStatusIndicatorWidget 构造状态指示器，默认处于 Waiting。
func NewStatusIndicatorWidget(opts StatusIndicatorOptions) *StatusIndicatorWidget {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	state := opts.State
	if !state.valid() {
		state = StatusWaiting
	}

	header := opts.Header
	if header == "" {
		header = state.defaultHeader()
	}

	spin := opts.Spinner
	if len(spin.Frames) == 0 {
		spin = spinner.Dot
	}

	w := &StatusIndicatorWidget{
		header:            header,
		state:             state,
		animationsEnabled: opts.AnimationsEnabled,
		spin:              spin,
		clock:             clock,
		lastResumeAt:      clock(),
	}
	if !state.tracksElapsed() {
		w.paused = true
	}
	return w
}

// State 返回当前状态。
func (w *StatusIndicatorWidget) State() StatusIndicatorState {
	if w == nil {
		return StatusDone
	}
	return w.state
}

// UpdateHeader 允许动态更新标题文本。
func (w *StatusIndicatorWidget) UpdateHeader(header string) {
	if w == nil {
		return
	}
	w.header = header
}

// SetDetail 设置标题后的附加信息，例如已接收的字节数。
func (w *StatusIndicatorWidget) SetDetail(detail string) {
	if w == nil {
		return
	}
	w.detail = detail
}

// SetState 更新状态并根据状态是否计时自动处理计时器。
func (w *StatusIndicatorWidget) SetState(state StatusIndicatorState) {
	if w == nil || !state.valid() || state == w.state {
		return
	}
	now := w.now()
	w.syncTimerForState(now, state)
	w.state = state
	w.header = state.defaultHeader()
}

// ElapsedSeconds 返回累计秒数。
func (w *StatusIndicatorWidget) ElapsedSeconds() uint64 {
	if w == nil {
		return 0
	}
	return w.elapsedSecondsAt(w.now())
}

// Render 把状态行写入 buf，宽度不足时截断。
func (w *StatusIndicatorWidget) Render(width int, buf *render.Buffer) {
	if w == nil || buf == nil || width <= 0 {
		return
	}

	now := w.now()
	prettyElapsed := fmtElapsedCompact(uint64(w.elapsedDurationAt(now).Seconds()))

	spans := []render.Span{
		{Text: w.spinnerFrame(now), Style: w.frameStyle()},
	}
	if w.header != "" {
		spans = append(spans, render.Span{Text: " "}, render.Span{Text: w.header})
	}

	hint := formatHint(prettyElapsed, w.detail)
	spans = append(spans, render.Span{Text: " "}, render.Span{
		Text:  hint,
		Style: lipgloss.NewStyle().Faint(true),
	})

	clamped := clampSpans(spans, width)
	if len(clamped) == 0 {
		return
	}
	buf.WriteLine(render.Line{Spans: clamped})
}

// String 返回单行状态文本。
func (w *StatusIndicatorWidget) String(width int) string {
	var buf render.Buffer
	w.Render(width, &buf)
	lines := render.LinesToStrings(buf.Lines)
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}

func (w *StatusIndicatorWidget) now() time.Time {
	if w.clock != nil {
		return w.clock()
	}
	return time.Now()
}

func (w *StatusIndicatorWidget) syncTimerForState(now time.Time, next StatusIndicatorState) {
	if next.tracksElapsed() && w.paused {
		w.resumeTimerAt(now)
		return
	}
	if !next.tracksElapsed() && !w.paused {
		w.pauseTimerAt(now)
	}
}

func (w *StatusIndicatorWidget) pauseTimerAt(now time.Time) {
	if w.paused {
		return
	}
	w.elapsedRunning += now.Sub(w.lastResumeAt)
	w.paused = true
}

func (w *StatusIndicatorWidget) resumeTimerAt(now time.Time) {
	if !w.paused {
		return
	}
	w.lastResumeAt = now
	w.paused = false
}

func (w *StatusIndicatorWidget) elapsedDurationAt(now time.Time) time.Duration {
	if w.paused {
		return w.elapsedRunning
	}
	return w.elapsedRunning + now.Sub(w.lastResumeAt)
}

func (w *StatusIndicatorWidget) elapsedSecondsAt(now time.Time) uint64 {
	return uint64(w.elapsedDurationAt(now).Seconds())
}

func (w *StatusIndicatorWidget) spinnerFrame(now time.Time) string {
	switch w.state {
	case StatusError:
		return "!"
	case StatusDone:
		return "✓"
	}
	if !w.animationsEnabled {
		return "•"
	}
	fps := w.spin.FPS
	if fps <= 0 {
		fps = time.Second / 10
	}
	idx := int(now.UnixMilli()/fps.Milliseconds()) % len(w.spin.Frames)
	return w.spin.Frames[idx]
}

func (w *StatusIndicatorWidget) frameStyle() lipgloss.Style {
	switch w.state {
	case StatusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
	case StatusDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	}
}

func formatHint(elapsed, detail string) string {
	if detail != "" {
		return fmt.Sprintf("(%s • %s)", elapsed, detail)
	}
	return fmt.Sprintf("(%s)", elapsed)
}

// fmtElapsedCompact 将秒数格式化为友好字符串。
func fmtElapsedCompact(elapsedSecs uint64) string {
	switch {
	case elapsedSecs < 60:
		return fmt.Sprintf("%ds", elapsedSecs)
	case elapsedSecs < 3600:
		minutes := elapsedSecs / 60
		seconds := elapsedSecs % 60
		return fmt.Sprintf("%dm %02ds", minutes, seconds)
	default:
		hours := elapsedSecs / 3600
		minutes := (elapsedSecs % 3600) / 60
		seconds := elapsedSecs % 60
		return fmt.Sprintf("%dh %02dm %02ds", hours, minutes, seconds)
	}
}

// fmtBytes 把字节数格式化为 B/KB/MB。
func fmtBytes(n int) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}

func clampSpans(spans []render.Span, width int) []render.Span {
	if width <= 0 {
		return nil
	}
	remaining := width
	out := make([]render.Span, 0, len(spans))
	for _, sp := range spans {
		if remaining <= 0 {
			break
		}
		tw := runewidth.StringWidth(sp.Text)
		if tw <= remaining {
			out = append(out, sp)
			remaining -= tw
			continue
		}
		text := runewidth.Truncate(sp.Text, remaining, "")
		if text != "" {
			sp.Text = text
			out = append(out, sp)
			remaining = 0
		}
	}
	return out
}
