package animate

import (
	"math"
	"strings"

	"github.com/charmbracelet/harmonica"
)

// TimingFunc 把线性进度 t∈[0,1] 映射为缓动后的进度。
type TimingFunc func(t float64) float64

// 支持的时间函数名。
const (
	TimingLinear    = "linear"
	TimingEase      = "ease"
	TimingEaseIn    = "ease-in"
	TimingEaseOut   = "ease-out"
	TimingEaseInOut = "ease-in-out"
	TimingSpring    = "spring"
)

var timingFuncs = map[string]TimingFunc{
	TimingLinear:    func(t float64) float64 { return t },
	TimingEase:      cubicBezier(0.25, 0.1, 0.25, 1),
	TimingEaseIn:    cubicBezier(0.42, 0, 1, 1),
	TimingEaseOut:   cubicBezier(0, 0, 0.58, 1),
	TimingEaseInOut: cubicBezier(0.42, 0, 0.58, 1),
	TimingSpring:    springCurve(),
}

// TimingNames 返回全部时间函数名。
func TimingNames() []string {
	return []string{TimingLinear, TimingEase, TimingEaseIn, TimingEaseOut, TimingEaseInOut, TimingSpring}
}

// LookupTiming 按名字查找时间函数。
func LookupTiming(name string) (TimingFunc, bool) {
	fn, ok := timingFuncs[strings.ToLower(strings.TrimSpace(name))]
	return fn, ok
}

// cubicBezier 构造 CSS cubic-bezier(x1,y1,x2,y2) 曲线。
func cubicBezier(x1, y1, x2, y2 float64) TimingFunc {
	cx := 3 * x1
	bx := 3*(x2-x1) - cx
	ax := 1 - cx - bx
	cy := 3 * y1
	by := 3*(y2-y1) - cy
	ay := 1 - cy - by

	sampleX := func(s float64) float64 { return ((ax*s+bx)*s + cx) * s }
	sampleY := func(s float64) float64 { return ((ay*s+by)*s + cy) * s }
	slopeX := func(s float64) float64 { return (3*ax*s+2*bx)*s + cx }

	return func(t float64) float64 {
		t = clamp01(t)
		s := t
		for i := 0; i < 8; i++ {
			x := sampleX(s) - t
			if math.Abs(x) < 1e-6 {
				return sampleY(s)
			}
			d := slopeX(s)
			if math.Abs(d) < 1e-6 {
				break
			}
			s -= x / d
		}
		lo, hi := 0.0, 1.0
		s = t
		for i := 0; i < 32 && lo < hi; i++ {
			x := sampleX(s)
			if math.Abs(x-t) < 1e-6 {
				break
			}
			if t > x {
				lo = s
			} else {
				hi = s
			}
			s = (lo + hi) / 2
		}
		return sampleY(s)
	}
}

const springSamples = 120

// springCurve 用 harmonica 弹簧在一秒内模拟 0→1，采样成查找表。
func springCurve() TimingFunc {
	spring := harmonica.NewSpring(harmonica.FPS(springSamples), 9.0, 0.55)
	table := make([]float64, springSamples+1)
	pos, vel := 0.0, 0.0
	for i := 1; i <= springSamples; i++ {
		pos, vel = spring.Update(pos, vel, 1.0)
		table[i] = pos
	}
	table[springSamples] = 1
	return func(t float64) float64 {
		t = clamp01(t)
		f := t * springSamples
		i := int(f)
		if i >= springSamples {
			return 1
		}
		frac := f - float64(i)
		return table[i] + (table[i+1]-table[i])*frac
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
