// Package source 产生累积快照：从管道读取增量文本，或按 token 节奏回放一份文档。
package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"flowmark/internal/events"
	"flowmark/internal/logger"

	"github.com/google/uuid"
)

// Publisher 是事件的去向，通常为 *events.EventQueue。
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Source 把快照发布到 Publisher，直到输入结束或 ctx 取消。
type Source interface {
	Run(ctx context.Context, out Publisher) error
}

// stream 记录一次会话的序号与累积文本。
type stream struct {
	session string
	seq     int
	text    strings.Builder
}

func newStream() *stream {
	return &stream{session: uuid.NewString()}
}

func (s *stream) emit(ctx context.Context, out Publisher, typ events.EventType, err error) error {
	s.seq++
	ev := events.Event{
		Type:      typ,
		SessionID: s.session,
		Seq:       s.seq,
		Text:      s.text.String(),
		Err:       err,
		Timestamp: time.Now(),
	}
	if perr := out.Publish(ctx, ev); perr != nil {
		if errors.Is(perr, events.ErrEventDropped) {
			logger.Named("source").Debugf("snapshot seq=%d skipped by slow consumer", s.seq)
			return nil
		}
		return perr
	}
	return nil
}

// Reader 从 io.Reader 读取增量文本，每次读到数据都发布一次累积快照。
type Reader struct {
	r     *bufio.Reader
	chunk int
}

// NewReader 包装 r。
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r), chunk: 4096}
}

// Run 读取到 EOF 后发布 EventDone。读取错误以 EventError 发布并返回。
// 跨读取边界的多字节字符会留到下次读取后再发布。
func (s *Reader) Run(ctx context.Context, out Publisher) error {
	st := newStream()
	buf := make([]byte, s.chunk)
	var pending []byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := s.r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			cut := completeRunes(pending)
			if cut > 0 {
				st.text.Write(pending[:cut])
				pending = append(pending[:0], pending[cut:]...)
				if perr := st.emit(ctx, out, events.EventSnapshot, nil); perr != nil {
					return perr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			st.text.Write(pending)
			return st.emit(ctx, out, events.EventDone, nil)
		}
		if err != nil {
			wrapped := fmt.Errorf("read input: %w", err)
			logger.Named("source").Errorf("%v", wrapped)
			if perr := st.emit(ctx, out, events.EventError, wrapped); perr != nil {
				return perr
			}
			return wrapped
		}
	}
}

// completeRunes 返回 b 中以完整 UTF-8 字符结尾的前缀长度。
func completeRunes(b []byte) int {
	end := len(b)
	for i := 1; i <= utf8.UTFMax && i <= len(b); i++ {
		start := len(b) - i
		if !utf8.RuneStart(b[start]) {
			continue
		}
		if !utf8.FullRune(b[start:]) {
			end = start
		}
		break
	}
	return end
}
