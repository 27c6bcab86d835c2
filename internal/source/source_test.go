package source

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"
	"unicode/utf8"

	"flowmark/internal/events"
)

type collector struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *collector) Publish(_ context.Context, ev events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *collector) texts() []string {
	out := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, string(ev.Type)+":"+ev.Text)
	}
	return out
}

func TestReaderPublishesCumulativeSnapshots(t *testing.T) {
	c := &collector{}
	src := NewReader(iotest.OneByteReader(strings.NewReader("hé")))
	if err := src.Run(context.Background(), c); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{"stream.snapshot:h", "stream.snapshot:hé", "stream.done:hé"}
	got := c.texts()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("events = %q, want %q", got, want)
	}
	for i, ev := range c.events {
		if !utf8.ValidString(ev.Text) {
			t.Fatalf("event %d carries a split rune: %q", i, ev.Text)
		}
		if ev.Seq != i+1 || ev.SessionID != c.events[0].SessionID {
			t.Fatalf("event %d has seq=%d session=%s", i, ev.Seq, ev.SessionID)
		}
	}
}

func TestReaderReportsErrors(t *testing.T) {
	c := &collector{}
	boom := errors.New("boom")
	err := NewReader(iotest.ErrReader(boom)).Run(context.Background(), c)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if len(c.events) != 1 || c.events[0].Type != events.EventError || !errors.Is(c.events[0].Err, boom) {
		t.Fatalf("events = %+v", c.events)
	}
}

func TestReaderIgnoresDroppedSnapshots(t *testing.T) {
	q := events.NewEventQueue(1)
	sub := q.Subscribe()
	done := make(chan error, 1)
	go func() {
		done <- NewReader(iotest.OneByteReader(strings.NewReader("abc"))).Run(context.Background(), q)
	}()
	var last events.Event
	for ev := range sub {
		last = ev
		if ev.Type == events.EventDone {
			break
		}
	}
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if last.Text != "abc" {
		t.Fatalf("final text = %q", last.Text)
	}
}

func TestReplayTokens(t *testing.T) {
	c := &collector{}
	var delays []time.Duration
	src := NewReplay("a b c", ReplayOptions{
		Speed: 100,
		Rand:  rand.New(rand.NewPCG(1, 2)),
		Sleep: func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	})
	if err := src.Run(context.Background(), c); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{"stream.snapshot:a", "stream.snapshot:a b", "stream.snapshot:a b c", "stream.done:a b c"}
	if got := c.texts(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("events = %q", got)
	}
	for i, d := range delays {
		if d < 10*time.Millisecond || d >= 15*time.Millisecond {
			t.Fatalf("delay %d = %v out of range", i, d)
		}
	}
}

func TestReplayStallsOnlyOnBoundaries(t *testing.T) {
	src := NewReplay(strings.Repeat("x ", 50), ReplayOptions{Speed: 100, Stall: true, Rand: rand.New(rand.NewPCG(3, 4))})
	stalled := 0
	for i := 0; i < src.Tokens(); i++ {
		d := src.Delay(i)
		if d >= stallDelay {
			stalled++
			if i%stallEvery != 0 {
				t.Fatalf("stall at token %d", i)
			}
		}
	}
	if stalled == 0 {
		t.Fatalf("expected at least one stall in %d tokens", src.Tokens())
	}
}

func TestReplayStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewReplay("a b", ReplayOptions{}).Run(ctx, &collector{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
