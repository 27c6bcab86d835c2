// Package animate 负责 Segment 的入场动画描述、逐帧效果与 Block 级沉降状态机。
package animate

import (
	"strings"
	"time"

	"flowmark/internal/logger"
	"flowmark/internal/segment"
)

// 动画名。None 与空串表示关闭动画。
const (
	None            = "none"
	FadeIn          = "fadeIn"
	BlurIn          = "blurIn"
	FadeAndScale    = "fadeAndScale"
	ColorTransition = "colorTransition"
	Highlight       = "highlight"
	BlurAndSharpen  = "blurAndSharpen"
	Typewriter      = "typewriter"
)

// Names 返回全部可用的动画名（不含 none）。
func Names() []string {
	return []string{FadeIn, BlurIn, FadeAndScale, ColorTransition, Highlight, BlurAndSharpen, Typewriter}
}

const (
	// DefaultDuration 对应 animationDuration="1s"。
	DefaultDuration = time.Second
	// DefaultDebounce 是全部 Segment 完成后到整体沉降的等待时间。
	DefaultDebounce = 100 * time.Millisecond
)

// Descriptor 描述施加在每个 Segment 上的动画。
type Descriptor struct {
	Name           string
	Duration       time.Duration
	TimingFunction string
	IterationCount int

	timing TimingFunc
}

// NewDescriptor 构造动画描述。未知动画名退回 fadeIn，未知时间函数退回 ease-in-out，均记录警告。
func NewDescriptor(name string, duration time.Duration, timing string) Descriptor {
	log := logger.Named("animate")
	name = strings.TrimSpace(name)
	if name != "" && name != None && !knownName(name) {
		if hint := segment.Suggest(name, Names()); hint != "" {
			log.Warnf("unknown animation %q (did you mean %q?), using %s", name, hint, FadeIn)
		} else {
			log.Warnf("unknown animation %q, using %s", name, FadeIn)
		}
		name = FadeIn
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	fn, ok := LookupTiming(timing)
	if !ok {
		if strings.TrimSpace(timing) != "" {
			log.Warnf("unknown timing function %q, using %s", timing, TimingEaseInOut)
		}
		timing = TimingEaseInOut
		fn = timingFuncs[TimingEaseInOut]
	}
	return Descriptor{
		Name:           name,
		Duration:       duration,
		TimingFunction: strings.ToLower(strings.TrimSpace(timing)),
		IterationCount: 1,
		timing:         fn,
	}
}

// Enabled 为 false 时整个动画管线被绕过，内容按纯文本渲染。
func (d Descriptor) Enabled() bool {
	return d.Name != "" && d.Name != None
}

// Progress 返回从 start 起经过 now 后的缓动进度，以及动画是否已结束。
func (d Descriptor) Progress(start, now time.Time) (float64, bool) {
	if !d.Enabled() || d.Duration <= 0 {
		return 1, true
	}
	elapsed := now.Sub(start)
	if elapsed >= d.Duration {
		return 1, true
	}
	if elapsed <= 0 {
		return d.ease(0), false
	}
	return d.ease(float64(elapsed) / float64(d.Duration)), false
}

func (d Descriptor) ease(t float64) float64 {
	if d.timing == nil {
		return clamp01(t)
	}
	return d.timing(t)
}

func knownName(name string) bool {
	for _, n := range Names() {
		if n == name {
			return true
		}
	}
	return false
}
