package logger

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// StreamLogger 记录快照到达、Segment 追加、会话重置与沉降，便于排查闪烁。
type StreamLogger interface {
	Snapshot(region string, size int)
	Segment(region, leaf string, id int, text string)
	Reset(region, leaf, reason string)
	Settled(region, leaf string, segments int)
	Error(region string, err error)
}

// StreamLog 是全局唯一的流日志器实例。
var StreamLog StreamLogger = NewStreamLogger(nil)

// SetStreamLogger 覆盖全局实例，传入 nil 将重置为默认实现。
func SetStreamLogger(l StreamLogger) {
	if l == nil {
		l = NewStreamLogger(nil)
	}
	StreamLog = l
}

// StdStreamLogger 使用 logrus 输出，快照与 Segment 走 Debug 级别。
type StdStreamLogger struct {
	logger *logrus.Entry
}

// NewStreamLogger 构造默认的流日志记录器。
func NewStreamLogger(l *Logger) *StdStreamLogger {
	if l == nil {
		l = root()
	}
	return &StdStreamLogger{logger: logrus.NewEntry(l).WithField("component", "stream")}
}

// Snapshot 记录一次快照到达。
func (l *StdStreamLogger) Snapshot(region string, size int) {
	l.printf(logrus.DebugLevel, region, "<- snapshot bytes=%d", size)
}

// Segment 记录一个新 Segment。
func (l *StdStreamLogger) Segment(region, leaf string, id int, text string) {
	l.printf(logrus.DebugLevel, region, "+ segment leaf=%s id=%d text=%s", leaf, id, sanitize(text))
}

// Reset 记录叶子状态被丢弃。
func (l *StdStreamLogger) Reset(region, leaf, reason string) {
	l.printf(logrus.DebugLevel, region, "~ reset leaf=%s reason=%s", leaf, reason)
}

// Settled 记录叶子进入静态渲染。
func (l *StdStreamLogger) Settled(region, leaf string, segments int) {
	l.printf(logrus.DebugLevel, region, "= settled leaf=%s segments=%d", leaf, segments)
}

// Error 记录被就地恢复的错误。
func (l *StdStreamLogger) Error(region string, err error) {
	l.printf(logrus.WarnLevel, region, "!! recovered err=%v", err)
}

// NoopStreamLogger 忽略所有日志输出。
type NoopStreamLogger struct{}

func (NoopStreamLogger) Snapshot(string, int)                  {}
func (NoopStreamLogger) Segment(string, string, int, string)   {}
func (NoopStreamLogger) Reset(string, string, string)          {}
func (NoopStreamLogger) Settled(string, string, int)           {}
func (NoopStreamLogger) Error(string, error)                   {}

func (l *StdStreamLogger) printf(level logrus.Level, region, format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	if !l.logger.Logger.IsLevelEnabled(level) {
		return
	}

	msg := fmt.Sprintf(format, args...)
	entry := l.logger
	if region != "" {
		entry = entry.WithField("region", region)
	}
	if caller := findCaller(); caller != "" {
		entry = entry.WithField("caller", caller)
	}
	entry.Log(level, msg)
}

func sanitize(text string) string {
	text = strings.ReplaceAll(text, "\n", `\n`)
	text = strings.ReplaceAll(text, "\r", `\r`)
	return text
}

func findCaller() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.File != "" && !strings.Contains(frame.File, "logger/stream.go") {
			return fmt.Sprintf("%s:%d", shortenFilePath(frame.File), frame.Line)
		}
		if !more {
			break
		}
	}
	return ""
}
