package segment

import "strings"

// Diff 把新快照与已追踪文本比较，返回新的追踪文本与 Segment 列表。
//
//  1. 快照与追踪文本相同：原样返回。
//  2. 快照比追踪文本短：视为新会话，清空后按规则 3 处理。
//  3. 追踪文本是快照的前缀：去掉前缀后的新增部分追加为一个新 Segment。
//  4. 否则：丢弃全部 Segment，整个快照作为 ID 0。
func Diff(previousTracked, newSnapshot string, prior []Segment) (string, []Segment) {
	if newSnapshot == previousTracked {
		return previousTracked, prior
	}
	if len(newSnapshot) < len(previousTracked) {
		previousTracked = ""
		prior = nil
	}
	if extends(previousTracked, newSnapshot) {
		added := newSnapshot[len(previousTracked):]
		if added == "" {
			return newSnapshot, prior
		}
		out := make([]Segment, len(prior), len(prior)+1)
		copy(out, prior)
		out = append(out, Segment{ID: nextID(prior), Text: added})
		return newSnapshot, out
	}
	return newSnapshot, []Segment{{ID: 0, Text: newSnapshot}}
}

// extends 判断 tracked 是否为 snapshot 的前缀。
func extends(tracked, snapshot string) bool {
	return strings.HasPrefix(snapshot, tracked)
}

func nextID(segs []Segment) int {
	if len(segs) == 0 {
		return 0
	}
	return segs[len(segs)-1].ID + 1
}

// Change 描述一次 Tracker 更新的结果。
type Change struct {
	// Reset 为 true 表示旧 Segment 全部作废，新列表从 ID 0 开始。
	Reset bool
	// Appended 是追加到末尾的新 Segment 数量。
	Appended int
	// Grown 为 true 表示最后一个既有单元的文本原地变长（word/char/units 模式）。
	Grown bool
}

// Changed 报告本次更新是否产生了可见变化。
func (c Change) Changed() bool {
	return c.Reset || c.Appended > 0 || c.Grown
}

// Tracker 持有一个内容区域叶子的追踪文本与 Segment 列表，不与其他实例共享。
type Tracker struct {
	mode    Mode
	tracked string
	segs    []Segment
}

// NewTracker 创建指定模式的 Tracker。
func NewTracker(mode Mode) *Tracker {
	if mode == "" {
		mode = ModeDiff
	}
	return &Tracker{mode: mode}
}

// Mode 返回切分模式。
func (t *Tracker) Mode() Mode { return t.mode }

// Text 返回最近一次完整比较过的文本。
func (t *Tracker) Text() string { return t.tracked }

// Segments 返回当前 Segment 列表，调用方不得修改。
func (t *Tracker) Segments() []Segment { return t.segs }

// Reset 清空追踪状态。
func (t *Tracker) Reset() {
	t.tracked = ""
	t.segs = nil
}

// Update 按模式处理新快照。
func (t *Tracker) Update(snapshot string) Change {
	if t.mode == ModeDiff {
		return t.updateDiff(snapshot)
	}
	return t.updateSplit(snapshot)
}

func (t *Tracker) updateDiff(snapshot string) Change {
	prevLen := len(t.segs)
	tracked, segs := Diff(t.tracked, snapshot, t.segs)
	reset := len(snapshot) < len(t.tracked) || !extends(t.tracked, snapshot)
	t.tracked, t.segs = tracked, segs
	if reset {
		return Change{Reset: prevLen > 0, Appended: len(segs)}
	}
	return Change{Appended: len(segs) - prevLen}
}

func (t *Tracker) updateSplit(snapshot string) Change {
	if snapshot == t.tracked {
		return Change{}
	}
	if !extends(t.tracked, snapshot) {
		hadSegs := len(t.segs) > 0
		t.tracked = snapshot
		t.segs = t.segs[:0:0]
		for i, unit := range Split(t.mode, snapshot) {
			t.segs = append(t.segs, Segment{ID: i, Text: unit})
		}
		return Change{Reset: hadSegs, Appended: len(t.segs)}
	}
	// 只重新切分最后一个单元起始处之后的内容。
	offset := len(t.tracked)
	if n := len(t.segs); n > 0 {
		offset -= len(t.segs[n-1].Text)
	}
	tail := Split(t.mode, snapshot[offset:])
	t.tracked = snapshot
	return t.mergeTail(tail)
}

// SyncUnits 用调用方切好的单元（例如高亮后的代码词）按下标对齐。
// 既有下标保留 ID，多出的追加，单元数变少时截断。
func (t *Tracker) SyncUnits(text string, units []string) Change {
	if text == t.tracked && len(units) == len(t.segs) {
		return Change{}
	}
	t.tracked = text
	var change Change
	n := min(len(units), len(t.segs))
	for i := 0; i < n; i++ {
		if t.segs[i].Text != units[i] {
			t.segs[i].Text = units[i]
			change.Grown = true
		}
	}
	if len(units) < len(t.segs) {
		t.segs = t.segs[:len(units)]
		change.Grown = true
		return change
	}
	for i := n; i < len(units); i++ {
		t.segs = append(t.segs, Segment{ID: i, Text: units[i]})
		change.Appended++
	}
	return change
}

func (t *Tracker) mergeTail(tail []string) Change {
	var change Change
	if len(tail) == 0 {
		return change
	}
	start := 0
	if n := len(t.segs); n > 0 {
		if t.segs[n-1].Text != tail[0] {
			t.segs[n-1].Text = tail[0]
			change.Grown = true
		}
		start = 1
	}
	for _, unit := range tail[start:] {
		t.segs = append(t.segs, Segment{ID: nextID(t.segs), Text: unit})
		change.Appended++
	}
	return change
}
