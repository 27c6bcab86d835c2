package region

import (
	"time"

	"flowmark/internal/segment"
	"flowmark/internal/tagfilter"
	"flowmark/internal/tui/render"

	"github.com/charmbracelet/lipgloss"
)

// painter 绘制一帧。绘制同时完成 Pending 到 Playing 的切换。
type painter struct {
	r   *Region
	now time.Time
}

func (p *painter) Paint(in render.Inline) []render.Span {
	r := p.r
	if in.Kind == render.InlineImage && !r.loaded[in.Src] {
		return []render.Span{{Text: in.ImageLabel(), Style: r.palette.Placeholder()}}
	}
	if !r.desc.Enabled() || r.closed {
		return r.plain(in)
	}
	l, ok := r.leaves[in.Key]
	if !ok {
		return nil
	}
	if l.block.FullySettled() {
		return r.settled(in, l)
	}
	l.block.Paint(p.now)
	segs := l.block.Segments()
	out := make([]render.Span, 0, len(segs))
	for i, s := range segs {
		style := in.Style
		if in.Kind == render.InlineUnits && i < len(in.Units) {
			style = in.Units[i].Style
		}
		if s.State == segment.Settled {
			out = append(out, render.Span{Text: s.Text, Style: style})
			continue
		}
		start, _ := l.block.StartedAt(s.ID)
		progress, _ := r.desc.Progress(start, p.now)
		text, st := r.desc.Frame(s.Text, style, progress, r.palette)
		out = append(out, render.Span{Text: text, Style: st})
	}
	return out
}

// plain 是关闭动画或区域已拆除时的绘制：不做 Segment 记账，只隐藏未完成的标签。
func (r *Region) plain(in render.Inline) []render.Span {
	switch in.Kind {
	case render.InlineLeaf:
		text := in.Text
		if len(r.names) > 0 {
			text = tagfilter.Filter(text, r.names)
		}
		if text == "" {
			return nil
		}
		return []render.Span{{Text: text, Style: in.Style}}
	case render.InlineImage:
		return []render.Span{{Text: in.ImageLabel(), Style: in.Style}}
	default:
		return render.PlainSpans(in)
	}
}

// settled 是沉降后的快速路径：整段文本一次输出，不再逐 Segment 包装。
func (r *Region) settled(in render.Inline, l *leaf) []render.Span {
	if in.Kind == render.InlineUnits {
		// 同一高亮 token 切出的词重新合并为一个 Span。
		var out []render.Span
		group := -1
		for i, s := range l.block.Segments() {
			style := lipgloss.NewStyle()
			g := -1
			if i < len(in.Units) {
				style, g = in.Units[i].Style, in.Units[i].Group
			}
			if n := len(out); n > 0 && g >= 0 && g == group {
				out[n-1].Text += s.Text
				continue
			}
			group = g
			out = append(out, render.Span{Text: s.Text, Style: style})
		}
		return out
	}
	text := l.tracker.Text()
	if text == "" {
		return nil
	}
	return []render.Span{{Text: text, Style: in.Style}}
}
