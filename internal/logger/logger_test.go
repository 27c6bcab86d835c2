package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestPlainFormatter_RegionPrefixAndFieldSkipping(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	cases := []struct {
		name    string
		data    logrus.Fields
		message string
		want    string
	}{
		{
			name: "with region",
			data: logrus.Fields{
				"component": "stream",
				"region":    "r1",
				"caller":    "x.go:1",
				"leaf":      "0/1",
			},
			message: "segment appended",
			want:    "x.go:1 [2025-01-02T03:04:05Z] [INFO] [stream] [region=r1] segment appended leaf=0/1\n",
		},
		{
			name: "without region",
			data: logrus.Fields{
				"component": "config",
				"caller":    "x.go:1",
				"foo":       "bar",
			},
			message: "hello",
			want:    "x.go:1 [2025-01-02T03:04:05Z] [INFO] [config] hello foo=bar\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entry := &logrus.Entry{
				Logger:  logrus.New(),
				Time:    ts,
				Level:   logrus.InfoLevel,
				Message: tc.message,
				Data:    tc.data,
			}
			out, err := (PlainFormatter{}).Format(entry)
			if err != nil {
				t.Fatalf("Format() error: %v", err)
			}
			got := string(out)
			if got != tc.want {
				t.Fatalf("unexpected format:\nwant: %q\ngot:  %q", tc.want, got)
			}
			if strings.Count(got, "r1") > 1 {
				t.Fatalf("expected region to appear only once, got: %q", got)
			}
		})
	}
}

func TestStreamLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(PlainFormatter{})
	l.SetLevel(logrus.InfoLevel)

	sl := NewStreamLogger(l)
	sl.Segment("r1", "0", 0, "hello\nworld")
	if buf.Len() != 0 {
		t.Fatalf("debug output leaked at info level: %q", buf.String())
	}
	sl.Error("r1", errors.New("boom"))
	got := buf.String()
	if !strings.Contains(got, "[WARN] [stream] [region=r1] !! recovered err=boom") {
		t.Fatalf("unexpected output: %q", got)
	}

	buf.Reset()
	l.SetLevel(logrus.DebugLevel)
	sl.Segment("r1", "0", 3, "a\nb")
	if !strings.Contains(buf.String(), `text=a\nb`) {
		t.Fatalf("newline should be escaped: %q", buf.String())
	}
}

func TestSetLevel(t *testing.T) {
	prev := Root().GetLevel()
	t.Cleanup(func() { Root().SetLevel(prev) })
	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if Root().GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v", Root().GetLevel())
	}
	if err := SetLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
