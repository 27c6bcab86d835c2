package segment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// State 表示单个 Segment 的动画生命周期。
type State int

const (
	// Pending 尚未绘制。
	Pending State = iota
	// Playing 已首次绘制，动画进行中。
	Playing
	// Settled 动画结束，样式已清除。
	Settled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Playing:
		return "playing"
	case Settled:
		return "settled"
	default:
		return "unknown"
	}
}

// Segment 是新到达文本的稳定切片。ID 按创建顺序严格递增，不复用。
type Segment struct {
	ID    int
	Text  string
	State State
}

// Mode 决定如何把叶子文本切成 Segment。
type Mode string

const (
	// ModeDiff 每次快照的新增部分作为一个 Segment。
	ModeDiff Mode = "diff"
	// ModeWord 按空白切分，空白本身也是单元。
	ModeWord Mode = "word"
	// ModeChar 每个字符一个单元。
	ModeChar Mode = "char"
)

// Modes 列出所有受支持的模式。
var Modes = []Mode{ModeDiff, ModeWord, ModeChar}

// ErrUnknownMode 表示配置了不支持的切分模式，属于调用方误用。
var ErrUnknownMode = errors.New("unknown separator mode")

// ParseMode 解析切分模式，空字符串视为 diff。未知值立即报错。
func ParseMode(raw string) (Mode, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ModeDiff, nil
	}
	for _, m := range Modes {
		if string(m) == v {
			return m, nil
		}
	}
	if hint := Suggest(v, modeNames()); hint != "" {
		return "", fmt.Errorf("%w %q (did you mean %q?): must be one of diff, word, char", ErrUnknownMode, v, hint)
	}
	return "", fmt.Errorf("%w %q: must be one of diff, word, char", ErrUnknownMode, v)
}

// Suggest 在候选中模糊匹配最接近的一个，没有匹配时返回空串。
func Suggest(input string, candidates []string) string {
	if input == "" || len(candidates) == 0 {
		return ""
	}
	matches := fuzzy.Find(input, candidates)
	if len(matches) > 0 {
		return matches[0].Str
	}
	// 拼写错误时子序列匹配会失败，退回到首字母匹配。
	for _, c := range candidates {
		if strings.HasPrefix(c, input[:1]) {
			return c
		}
	}
	return ""
}

func modeNames() []string {
	out := make([]string, 0, len(Modes))
	for _, m := range Modes {
		out = append(out, string(m))
	}
	return out
}

// Join 按 ID 顺序拼接所有 Segment 文本。
func Join(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text)
	}
	return b.String()
}
