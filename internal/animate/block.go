package animate

import (
	"time"

	"flowmark/internal/segment"
)

// SettleMsg 由防抖定时器发出，宿主需在 UI 线程上交回 Block.Settle。
type SettleMsg struct {
	Key string
	Gen uint64
}

// BlockOptions 配置一个 Block。
type BlockOptions struct {
	Key      string
	Clock    Clock
	Debounce time.Duration
	// Notify 接收防抖到期通知；为 nil 时由 Poll 轮询到期。
	Notify func(SettleMsg)
}

// Block 是一个内容区域内 Segment 的有序集合及其沉降状态。
// 所有方法都应在同一个逻辑线程上调用。
type Block struct {
	key      string
	clock    Clock
	debounce time.Duration
	notify   func(SettleMsg)

	segs   []segment.Segment
	starts []time.Time
	// settled 只增不减，直到差分重置；live 是当前列表中已完成的数量，截断时重算。
	settled int
	live    int
	full    bool

	gen    uint64
	due    time.Time
	timer  Timer
	closed bool
}

// NewBlock 创建空 Block。
func NewBlock(opts BlockOptions) *Block {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Block{key: opts.Key, clock: clock, debounce: debounce, notify: opts.Notify}
}

// Key 返回 Block 标识。
func (b *Block) Key() string { return b.key }

// Segments 返回带状态的 Segment 列表，调用方不得修改。
func (b *Block) Segments() []segment.Segment { return b.segs }

// SettledCount 返回本会话内完成过动画的 Segment 数量，只在差分重置时归零。
func (b *Block) SettledCount() int { return b.settled }

// FullySettled 为 true 时区域按纯文本渲染，不再逐 Segment 包装。
func (b *Block) FullySettled() bool { return b.full }

// Closed 报告 Block 是否已拆除。
func (b *Block) Closed() bool { return b.closed }

// Sync 将差分器输出的列表并入 Block。
// 已沉降的 Segment 不会重新打开；新增 Segment 会撤销整体沉降。
// 单元数变少时只截断列表，SettledCount 不回退。
func (b *Block) Sync(segs []segment.Segment, change segment.Change) {
	if b.closed || !change.Changed() {
		return
	}
	if change.Reset {
		b.reset()
	}
	n := min(len(segs), len(b.segs))
	for i := 0; i < n; i++ {
		b.segs[i].Text = segs[i].Text
	}
	if len(segs) < len(b.segs) {
		b.segs = b.segs[:len(segs)]
		b.starts = b.starts[:len(segs)]
		b.recount()
	}
	appended := false
	for i := len(b.segs); i < len(segs); i++ {
		b.segs = append(b.segs, segment.Segment{ID: segs[i].ID, Text: segs[i].Text, State: segment.Pending})
		b.starts = append(b.starts, time.Time{})
		appended = true
	}
	if appended {
		b.full = false
		b.cancelDebounce()
		return
	}
	b.maybeArm()
}

// Paint 在首次绘制时把 Pending 切到 Playing，返回切换数量。
func (b *Block) Paint(now time.Time) int {
	if b.closed {
		return 0
	}
	n := 0
	for i := range b.segs {
		if b.segs[i].State == segment.Pending {
			b.segs[i].State = segment.Playing
			b.starts[i] = now
			n++
		}
	}
	return n
}

// StartedAt 返回 Segment 开始播放的时间。
func (b *Block) StartedAt(id int) (time.Time, bool) {
	i, ok := b.index(id)
	if !ok || b.segs[i].State == segment.Pending {
		return time.Time{}, false
	}
	return b.starts[i], true
}

// Complete 处理单个 Segment 的动画结束通知，顺序无关、重复通知无效。
// 全部完成时启动防抖。返回是否发生了状态切换。
func (b *Block) Complete(id int) bool {
	if b.closed {
		return false
	}
	i, ok := b.index(id)
	if !ok || b.segs[i].State == segment.Settled {
		return false
	}
	b.segs[i].State = segment.Settled
	b.settled++
	b.live++
	b.maybeArm()
	return true
}

// Settle 在防抖到期时调用。代数不匹配、Block 已拆除或期间有新 Segment 时忽略。
func (b *Block) Settle(gen uint64) bool {
	if b.closed || gen != b.gen || b.full {
		return false
	}
	if !b.complete() {
		return false
	}
	b.full = true
	b.timer = nil
	b.due = time.Time{}
	return true
}

// Poll 在没有 Notify 的情况下检查防抖是否到期。
func (b *Block) Poll(now time.Time) bool {
	if b.due.IsZero() || now.Before(b.due) {
		return false
	}
	return b.Settle(b.gen)
}

// Close 拆除 Block：取消定时器，之后到达的通知全部忽略。
func (b *Block) Close() {
	if b.closed {
		return
	}
	b.cancelDebounce()
	b.closed = true
}

func (b *Block) maybeArm() {
	if b.full || !b.complete() || !b.due.IsZero() {
		return
	}
	b.gen++
	gen := b.gen
	b.due = b.clock.Now().Add(b.debounce)
	if b.notify == nil {
		return
	}
	notify, key := b.notify, b.key
	b.timer = b.clock.AfterFunc(b.debounce, func() {
		notify(SettleMsg{Key: key, Gen: gen})
	})
}

func (b *Block) cancelDebounce() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.due = time.Time{}
	b.gen++
}

func (b *Block) reset() {
	b.cancelDebounce()
	b.segs = nil
	b.starts = nil
	b.settled = 0
	b.live = 0
	b.full = false
}

func (b *Block) complete() bool {
	return len(b.segs) > 0 && b.live == len(b.segs)
}

func (b *Block) recount() {
	b.live = 0
	for _, s := range b.segs {
		if s.State == segment.Settled {
			b.live++
		}
	}
}

func (b *Block) index(id int) (int, bool) {
	// ID 在同一 Block 内从 0 连续递增，下标即 ID。
	if id >= 0 && id < len(b.segs) && b.segs[id].ID == id {
		return id, true
	}
	for i, s := range b.segs {
		if s.ID == id {
			return i, true
		}
	}
	return 0, false
}
