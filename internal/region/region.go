// Package region 管理一个流式内容区域：接收累积快照，按叶子追踪新增 Segment，
// 逐帧绘制入场动画，并在全部动画结束后切换为静态渲染。
//
// Region 不是并发安全的，所有方法都应在 UI 线程上调用。防抖定时器通过 Options.Notify
// 把 SettleMsg 交给宿主，宿主再在 UI 线程上调用 Settle。
package region

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"flowmark/internal/animate"
	"flowmark/internal/content"
	"flowmark/internal/highlight"
	"flowmark/internal/logger"
	"flowmark/internal/segment"
	"flowmark/internal/tagfilter"
	"flowmark/internal/tui/render"

	"github.com/google/uuid"
)

// SettleMsg 标识某个区域内某个叶子的防抖到期。
type SettleMsg struct {
	Region string
	Block  animate.SettleMsg
}

// UnitRef 指向一个叶子内的 Segment。
type UnitRef struct {
	Leaf string
	ID   int
}

// Options 配置 Region。
type Options struct {
	Animation string
	Duration  time.Duration
	Timing    string
	// Separator 为 diff、word 或 char，空串视为 diff。
	Separator string
	// Tags 是注册的自定义标签及其渲染函数，值为 nil 时使用默认提示框。
	Tags map[string]render.RenderFunc

	Theme       *render.Theme
	Highlighter *highlight.Highlighter
	Clock       animate.Clock
	Debounce    time.Duration
	// Notify 接收防抖到期通知。为 nil 时由 Advance 轮询。
	Notify func(SettleMsg)
}

// Region 是一个内容区域。
type Region struct {
	id       string
	desc     animate.Descriptor
	mode     segment.Mode
	names    tagfilter.Names
	parser   *content.Parser
	disp     *render.Dispatcher
	palette  animate.Palette
	clock    animate.Clock
	debounce time.Duration
	notify   func(SettleMsg)

	snapshot string
	doc      render.Doc
	leaves   map[string]*leaf
	loaded   map[string]bool
	closed   bool
}

type leaf struct {
	key     string
	tracker *segment.Tracker
	block   *animate.Block
}

// New 创建区域。未知的 Separator 是配置错误，立即返回 segment.ErrUnknownMode。
func New(opts Options) (*Region, error) {
	mode, err := segment.ParseMode(opts.Separator)
	if err != nil {
		return nil, fmt.Errorf("region: %w", err)
	}
	theme := render.DefaultTheme()
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	names := make([]string, 0, len(opts.Tags))
	for name := range opts.Tags {
		names = append(names, name)
	}
	tagNames := tagfilter.NewNames(names...)
	clock := opts.Clock
	if clock == nil {
		clock = animate.SystemClock{}
	}
	return &Region{
		id:       uuid.NewString(),
		desc:     animate.NewDescriptor(opts.Animation, opts.Duration, opts.Timing),
		mode:     mode,
		names:    tagNames,
		parser:   content.NewParser(tagNames),
		disp:     render.NewDispatcher(theme, opts.Highlighter, opts.Tags),
		palette:  theme.Palette,
		clock:    clock,
		debounce: opts.Debounce,
		notify:   opts.Notify,
		leaves:   map[string]*leaf{},
		loaded:   map[string]bool{},
	}, nil
}

// ID 返回区域标识。
func (r *Region) ID() string { return r.id }

// Descriptor 返回生效的动画描述。
func (r *Region) Descriptor() animate.Descriptor { return r.desc }

// Text 返回最近一次快照。
func (r *Region) Text() string { return r.snapshot }

// Closed 报告区域是否已拆除。
func (r *Region) Closed() bool { return r.closed }

// Push 处理新的累积快照：解析、分派，并把每个叶子的文本交给差分器。
// 快照变短视为新会话，所有叶子被丢弃后重新开始。
func (r *Region) Push(snapshot string) {
	if r.closed || snapshot == r.snapshot {
		return
	}
	stream := logger.StreamLog
	if len(snapshot) < len(r.snapshot) {
		stream.Reset(r.id, "*", "snapshot shrank")
		r.unmountAll()
	}
	r.snapshot = snapshot
	stream.Snapshot(r.id, len(snapshot))
	r.doc = r.disp.Build(r.parser.Parse(snapshot))
	if !r.desc.Enabled() {
		return
	}
	seen := map[string]bool{}
	r.doc.Walk(func(in render.Inline) {
		switch in.Kind {
		case render.InlineLeaf:
			r.syncLeaf(in.Key, in.Text)
		case render.InlineUnits:
			r.syncUnits(in)
		case render.InlineImage:
			if r.loaded[in.Src] {
				r.syncLeaf(in.Key, in.ImageLabel())
			}
		default:
			return
		}
		seen[in.Key] = true
	})
	for key, l := range r.leaves {
		if !seen[key] {
			l.block.Close()
			delete(r.leaves, key)
		}
	}
}

// filter 隐藏末尾未输入完整的自定义标签。已经显示过的文本不会因此被收回。
func (r *Region) filter(text, shown string) string {
	if len(r.names) == 0 {
		return text
	}
	filtered := tagfilter.Filter(text, r.names)
	if len(filtered) < len(shown) && strings.HasPrefix(shown, filtered) && strings.HasPrefix(text, shown) {
		return shown
	}
	return filtered
}

func (r *Region) leaf(key string) *leaf {
	if l, ok := r.leaves[key]; ok {
		return l
	}
	opts := animate.BlockOptions{Key: key, Clock: r.clock, Debounce: r.debounce}
	if r.notify != nil {
		notify, id := r.notify, r.id
		opts.Notify = func(msg animate.SettleMsg) {
			notify(SettleMsg{Region: id, Block: msg})
		}
	}
	l := &leaf{key: key, tracker: segment.NewTracker(r.mode), block: animate.NewBlock(opts)}
	r.leaves[key] = l
	return l
}

func (r *Region) syncLeaf(key, text string) {
	l, ok := r.leaves[key]
	if !ok {
		if text == "" {
			return
		}
		l = r.leaf(key)
	}
	change := l.tracker.Update(r.filter(text, l.tracker.Text()))
	r.apply(l, change)
}

func (r *Region) syncUnits(in render.Inline) {
	l, ok := r.leaves[in.Key]
	if !ok {
		if len(in.Units) == 0 {
			return
		}
		l = r.leaf(in.Key)
	}
	units := make([]string, len(in.Units))
	for i, u := range in.Units {
		units[i] = u.Text
	}
	r.apply(l, l.tracker.SyncUnits(in.UnitsText(), units))
}

func (r *Region) apply(l *leaf, change segment.Change) {
	if !change.Changed() {
		return
	}
	stream := logger.StreamLog
	if change.Reset {
		stream.Reset(r.id, l.key, "diverged")
	}
	segs := l.tracker.Segments()
	for _, s := range segs[len(segs)-change.Appended:] {
		stream.Segment(r.id, l.key, s.ID, s.Text)
	}
	l.block.Sync(segs, change)
}

// Render 以给定宽度绘制区域。首次绘制的 Segment 在此从 Pending 进入 Playing。
func (r *Region) Render(width int, now time.Time) []render.Line {
	return r.doc.Lines(width, &painter{r: r, now: now})
}

// Advance 报告 now 时刻已播放完毕的 Segment，并在没有 Notify 时轮询防抖。
// 返回是否仍有动画或沉降未完成，宿主据此决定是否继续发帧。
func (r *Region) Advance(now time.Time) bool {
	if r.closed {
		return false
	}
	busy := false
	for _, key := range r.leafKeys() {
		l := r.leaves[key]
		for _, s := range l.block.Segments() {
			if s.State != segment.Playing {
				continue
			}
			start, _ := l.block.StartedAt(s.ID)
			if _, done := r.desc.Progress(start, now); done {
				r.AnimationEnd(UnitRef{Leaf: key, ID: s.ID})
			}
		}
		if r.notify == nil && l.block.Poll(now) {
			logger.StreamLog.Settled(r.id, key, len(l.block.Segments()))
		}
		if !l.block.FullySettled() {
			busy = true
		}
	}
	return busy
}

// AnimationEnd 处理单个 Segment 的动画结束通知，顺序无关。
func (r *Region) AnimationEnd(ref UnitRef) {
	if r.closed {
		return
	}
	if l, ok := r.leaves[ref.Leaf]; ok {
		l.block.Complete(ref.ID)
	}
}

// Settle 处理防抖到期。其他区域、已拆除叶子或过期代数的消息被忽略。
func (r *Region) Settle(msg SettleMsg) {
	if r.closed || msg.Region != r.id {
		return
	}
	l, ok := r.leaves[msg.Block.Key]
	if !ok {
		return
	}
	if l.block.Settle(msg.Block.Gen) {
		logger.StreamLog.Settled(r.id, l.key, len(l.block.Segments()))
	}
}

// ImageLoaded 标记图片已加载，之后该图片才开始入场动画。
func (r *Region) ImageLoaded(src string) {
	if r.closed || r.loaded[src] {
		return
	}
	r.loaded[src] = true
	if !r.desc.Enabled() {
		return
	}
	r.doc.Walk(func(in render.Inline) {
		if in.Kind == render.InlineImage && in.Src == src {
			r.syncLeaf(in.Key, in.ImageLabel())
		}
	})
}

// Images 返回当前文档中尚未加载的图片地址。
func (r *Region) Images() []string {
	seen := map[string]bool{}
	var out []string
	r.doc.Walk(func(in render.Inline) {
		if in.Kind == render.InlineImage && !r.loaded[in.Src] && !seen[in.Src] {
			seen[in.Src] = true
			out = append(out, in.Src)
		}
	})
	return out
}

// FullySettled 报告所有叶子是否都已切换为静态渲染。
func (r *Region) FullySettled() bool {
	for _, l := range r.leaves {
		if !l.block.FullySettled() {
			return false
		}
	}
	return true
}

// Close 拆除区域：停止所有定时器，之后的通知全部忽略。
func (r *Region) Close() {
	if r.closed {
		return
	}
	r.unmountAll()
	r.closed = true
}

func (r *Region) unmountAll() {
	for key, l := range r.leaves {
		l.block.Close()
		delete(r.leaves, key)
	}
}

func (r *Region) leafKeys() []string {
	keys := make([]string, 0, len(r.leaves))
	for k := range r.leaves {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
