// Package events 在快照生产者与 TUI 之间传递流事件。
package events

import "time"

// EventType 描述 EQ 中分发的事件类型。
type EventType string

const (
	// EventSnapshot 携带到目前为止的完整累积文本。
	EventSnapshot EventType = "stream.snapshot"
	// EventReset 表示新会话开始，Text 为新会话的首个快照。
	EventReset EventType = "stream.reset"
	// EventDone 表示流结束，Text 为最终文本。
	EventDone EventType = "stream.done"
	// EventError 表示生产者出错，Err 非空。
	EventError EventType = "stream.error"
)

// Event 是 EQ 中传递的唯一消息格式。每个事件都带着当时的完整快照，
// 因此丢掉中间的 EventSnapshot 不会丢内容。
type Event struct {
	Type      EventType
	SessionID string
	Seq       int
	Text      string
	Err       error
	Timestamp time.Time
}

// Terminal 报告事件是否不能被合并丢弃。
func (e Event) Terminal() bool {
	return e.Type != EventSnapshot
}
