package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"flowmark/internal/animate"
	"flowmark/internal/events"
	"flowmark/internal/logger"
	"flowmark/internal/region"

	tea "github.com/charmbracelet/bubbletea"
)

func newTestModel(t *testing.T, opts Options) (*Model, *animate.ManualClock) {
	t.Helper()
	logger.Discard()
	clock := animate.NewManualClock(time.Unix(1_700_000_000, 0))
	opts.Region.Clock = clock
	if opts.Region.Animation == "" {
		opts.Region.Animation = animate.FadeIn
	}
	opts.Now = clock.Now
	m, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(m.Close)
	m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	return m, clock
}

func snapshot(typ events.EventType, text string) streamEventMsg {
	return streamEventMsg{Event: events.Event{Type: typ, SessionID: "s1", Text: text}}
}

func TestModelRendersSnapshots(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	m.Update(snapshot(events.EventSnapshot, "Hello"))
	m.Update(snapshot(events.EventSnapshot, "Hello world"))
	view := m.View()
	if !strings.Contains(view, "Hello world") {
		t.Fatalf("view missing text:\n%s", view)
	}
	if !strings.Contains(view, "Streaming") {
		t.Fatalf("status should report streaming:\n%s", view)
	}
}

func TestModelSettlesAndExits(t *testing.T) {
	m, clock := newTestModel(t, Options{ExitOnDone: true})
	m.Update(snapshot(events.EventSnapshot, "Hello"))
	m.Update(snapshot(events.EventDone, "Hello world"))
	if m.status.State() != StatusSettling {
		t.Fatalf("state = %v", m.status.State())
	}

	clock.Advance(time.Second)
	if _, cmd := m.Update(frameMsg(clock.Now())); isQuit(cmd) {
		t.Fatalf("quit before settle debounce")
	}
	clock.Advance(animate.DefaultDebounce)
	for len(m.settles) > 0 {
		m.Update(m.listenSettles()())
	}
	_, cmd := m.Update(frameMsg(clock.Now()))
	if !isQuit(cmd) {
		t.Fatalf("expected quit once settled")
	}
	if m.status.State() != StatusDone || !m.Region().FullySettled() {
		t.Fatalf("state = %v settled=%v", m.status.State(), m.Region().FullySettled())
	}
	if got := strings.Join(m.FinalLines(), "\n"); !strings.Contains(got, "Hello world") {
		t.Fatalf("final lines = %q", got)
	}
}

func TestModelKeepsTickingWhileAnimating(t *testing.T) {
	m, clock := newTestModel(t, Options{})
	m.Update(snapshot(events.EventDone, "Hello"))
	m.ticking = false
	_, cmd := m.Update(frameMsg(clock.Now()))
	if cmd == nil || !m.ticking {
		t.Fatalf("expected another frame while animating")
	}
}

func TestModelErrorEvent(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	boom := errors.New("pipe closed")
	m.Update(streamEventMsg{Event: events.Event{Type: events.EventError, Err: boom, Text: "partial"}})
	if !errors.Is(m.Err(), boom) || m.status.State() != StatusError {
		t.Fatalf("err = %v state = %v", m.Err(), m.status.State())
	}
	if view := m.View(); !strings.Contains(view, "pipe closed") || !strings.Contains(view, "partial") {
		t.Fatalf("view = %q", view)
	}
}

func TestModelStreamClosed(t *testing.T) {
	ch := make(chan events.Event)
	close(ch)
	m, _ := newTestModel(t, Options{Events: ch})
	msg := m.listenEvents()()
	if _, ok := msg.(streamClosedMsg); !ok {
		t.Fatalf("expected streamClosedMsg, got %T", msg)
	}
	m.Update(msg)
	if !m.done || m.listenEvents() != nil {
		t.Fatalf("closed stream should finish the model")
	}
}

func TestModelNewSessionResetsRegion(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	m.Update(snapshot(events.EventSnapshot, "first answer"))
	m.Update(streamEventMsg{Event: events.Event{Type: events.EventSnapshot, SessionID: "s2", Text: "second"}})
	if got := m.Region().Text(); got != "second" {
		t.Fatalf("text = %q", got)
	}
	if strings.Contains(m.View(), "first answer") {
		t.Fatalf("old session still visible")
	}
}

func TestModelLoadsImagesOnce(t *testing.T) {
	var loads []string
	m, _ := newTestModel(t, Options{LoadImage: func(src string) bool {
		loads = append(loads, src)
		return true
	}})
	m.Update(snapshot(events.EventSnapshot, "![cat](cat.png)"))
	if !strings.Contains(m.View(), "[image: cat]") {
		t.Fatalf("placeholder missing: %q", m.View())
	}
	if cmds := m.imageCmds(); len(cmds) != 0 {
		t.Fatalf("image requested twice")
	}
	delete(m.requested, "cat.png")
	cmds := m.imageCmds()
	if len(cmds) != 1 {
		t.Fatalf("expected one load command, got %d", len(cmds))
	}
	m.Update(cmds[0]())
	if len(loads) != 1 || loads[0] != "cat.png" {
		t.Fatalf("loads = %q", loads)
	}
	if imgs := m.Region().Images(); len(imgs) != 0 {
		t.Fatalf("image still pending: %q", imgs)
	}
}

func TestModelQuitClosesRegion(t *testing.T) {
	m, clock := newTestModel(t, Options{})
	m.Update(snapshot(events.EventSnapshot, "Hello"))
	m.Region().AnimationEnd(region.UnitRef{Leaf: "0/0", ID: 0})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !isQuit(cmd) {
		t.Fatalf("expected quit")
	}
	if !m.Region().Closed() || clock.Pending() != 0 {
		t.Fatalf("region not torn down: closed=%v pending=%d", m.Region().Closed(), clock.Pending())
	}
	if msg := m.listenSettles()(); msg != nil {
		t.Fatalf("listener should stop after close, got %T", msg)
	}
	if got := strings.Join(m.FinalLines(), "\n"); !strings.Contains(got, "Hello") {
		t.Fatalf("final lines = %q", got)
	}
}

func TestModelRespectsMaxWidth(t *testing.T) {
	m, _ := newTestModel(t, Options{Width: 12})
	if m.contentWidth() != 12 {
		t.Fatalf("contentWidth = %d", m.contentWidth())
	}
	m.Update(tea.WindowSizeMsg{Width: 8, Height: 5})
	if m.contentWidth() != 8 {
		t.Fatalf("contentWidth = %d", m.contentWidth())
	}
}

func TestNewRejectsUnknownSeparator(t *testing.T) {
	logger.Discard()
	if _, err := New(Options{Region: region.Options{Separator: "sentence"}}); err == nil {
		t.Fatalf("expected configuration error")
	}
}

func TestDefaultLoadImage(t *testing.T) {
	if !defaultLoadImage("https://example.com/a.png") {
		t.Fatalf("remote images count as loaded")
	}
	if defaultLoadImage("/definitely/not/here.png") {
		t.Fatalf("missing local file should not load")
	}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}
