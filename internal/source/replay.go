package source

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"flowmark/internal/events"
)

const (
	// DefaultSpeed 是默认的每秒 token 数。
	DefaultSpeed = 50
	// stallEvery 每隔多少个 token 可能出现一次网络卡顿。
	stallEvery = 5
	stallDelay = 400 * time.Millisecond
	maxJitter  = 5 * time.Millisecond
)

// ReplayOptions 控制回放节奏。
type ReplayOptions struct {
	// Speed 是每秒 token 数，<=0 时使用 DefaultSpeed。
	Speed float64
	// Stall 开启后每 5 个 token 有一半概率额外等待 400ms。
	Stall bool
	// Rand 为 nil 时使用随机种子。
	Rand *rand.Rand
	// Sleep 可在测试中替换。
	Sleep func(ctx context.Context, d time.Duration) error
}

// Replay 把一份完整文档按空格切成 token，逐个追加后发布快照，模拟模型流式输出。
type Replay struct {
	tokens []string
	opts   ReplayOptions
}

// NewReplay 创建回放源。
func NewReplay(text string, opts ReplayOptions) *Replay {
	if opts.Speed <= 0 {
		opts.Speed = DefaultSpeed
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	return &Replay{tokens: strings.Split(text, " "), opts: opts}
}

// Tokens 返回 token 数量。
func (s *Replay) Tokens() int { return len(s.tokens) }

// Delay 返回发送第 i 个 token 前的等待时间。
func (s *Replay) Delay(i int) time.Duration {
	d := time.Duration(float64(time.Second) / s.opts.Speed)
	if s.opts.Stall && i > 0 && i%stallEvery == 0 && s.opts.Rand.Float64() > 0.5 {
		d += stallDelay
	}
	return d + time.Duration(s.opts.Rand.Int64N(int64(maxJitter)))
}

// Run 依次发布快照，最后发布 EventDone。
func (s *Replay) Run(ctx context.Context, out Publisher) error {
	st := newStream()
	for i, tok := range s.tokens {
		if err := s.opts.Sleep(ctx, s.Delay(i)); err != nil {
			return err
		}
		if i > 0 {
			st.text.WriteByte(' ')
		}
		st.text.WriteString(tok)
		if err := st.emit(ctx, out, events.EventSnapshot, nil); err != nil {
			return err
		}
	}
	return st.emit(ctx, out, events.EventDone, nil)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
