package tui

import (
	"os"
	"strings"
	"time"

	"flowmark/internal/events"
	"flowmark/internal/logger"
	"flowmark/internal/region"
	"flowmark/internal/tui/render"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DefaultFrameInterval 约 30fps。
const DefaultFrameInterval = time.Second / 30

type Options struct {
	Region        region.Options
	Events        <-chan events.Event
	FrameInterval time.Duration
	// Width 为正数时限制内容宽度，否则跟随终端。
	Width int
	// ExitOnDone 在流结束且内容全部沉降后退出。
	ExitOnDone bool
	// LoadImage 报告图片是否可显示，默认本地路径用 os.Stat，http(s) 视为已加载。
	LoadImage func(src string) bool
	Now       func() time.Time
	AltScreen bool
	// PipedInput 表示 stdin 是数据源，键盘输入改从 TTY 读取。
	PipedInput bool
}

type frameMsg time.Time

type streamEventMsg struct {
	Event events.Event
}

type streamClosedMsg struct{}

type settleMsg struct {
	Msg region.SettleMsg
}

type imageLoadedMsg struct {
	Src string
	OK  bool
}

type Model struct {
	region    *region.Region
	viewport  render.Viewport
	status    *StatusIndicatorWidget
	eventsSub <-chan events.Event
	settles   chan region.SettleMsg
	stop      chan struct{}
	requested map[string]bool
	loadImage func(string) bool
	now       func() time.Time

	frame      time.Duration
	maxWidth   int
	width      int
	height     int
	exitOnDone bool
	ticking    bool
	done       bool
	closed     bool
	session    string
	err        error
}

func New(opts Options) (*Model, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	frame := opts.FrameInterval
	if frame <= 0 {
		frame = DefaultFrameInterval
	}
	loadImage := opts.LoadImage
	if loadImage == nil {
		loadImage = defaultLoadImage
	}
	m := &Model{
		viewport:   render.NewViewport(80, 20),
		eventsSub:  opts.Events,
		settles:    make(chan region.SettleMsg, 64),
		stop:       make(chan struct{}),
		requested:  map[string]bool{},
		loadImage:  loadImage,
		now:        now,
		frame:      frame,
		maxWidth:   opts.Width,
		width:      80,
		height:     21,
		exitOnDone: opts.ExitOnDone,
	}
	regionOpts := opts.Region
	regionOpts.Notify = m.notify
	r, err := region.New(regionOpts)
	if err != nil {
		return nil, err
	}
	m.region = r
	m.status = NewStatusIndicatorWidget(StatusIndicatorOptions{
		AnimationsEnabled: r.Descriptor().Enabled(),
		Clock:             now,
	})
	return m, nil
}

// Region 返回渲染中的内容区域。
func (m *Model) Region() *region.Region { return m.region }

// Err 返回生产者报告的错误。
func (m *Model) Err() error { return m.err }

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.listenSettles(), m.scheduleTick()}
	if cmd := m.listenEvents(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh(m.now())
	case frameMsg:
		m.ticking = false
		now := m.now()
		busy := m.region.Advance(now)
		m.refresh(now)
		if m.done && !busy && m.region.FullySettled() {
			if m.err == nil {
				m.status.SetState(StatusDone)
			}
			if m.exitOnDone {
				return m, tea.Quit
			}
			return m, nil
		}
		cmds = append(cmds, m.scheduleTick())
	case streamEventMsg:
		m.handleStreamEvent(msg.Event)
		m.refresh(m.now())
		cmds = append(cmds, m.imageCmds()...)
		cmds = append(cmds, m.listenEvents(), m.scheduleTick())
	case streamClosedMsg:
		m.eventsSub = nil
		m.finishStream()
		cmds = append(cmds, m.scheduleTick())
	case settleMsg:
		m.region.Settle(msg.Msg)
		cmds = append(cmds, m.listenSettles(), m.scheduleTick())
	case imageLoadedMsg:
		if msg.OK {
			m.region.ImageLoaded(msg.Src)
		} else {
			logger.Named("tui").Warnf("image %q not found, keeping placeholder", msg.Src)
		}
		cmds = append(cmds, m.scheduleTick())
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.Close()
			return m, tea.Quit
		}
		cmds = append(cmds, m.viewport.HandleUpdate(msg))
	case tea.MouseMsg:
		cmds = append(cmds, m.viewport.HandleUpdate(msg))
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) View() string {
	status := m.status.String(m.width)
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), status)
}

// FinalLines 返回当前内容按宽度绘制后的行，退出 TUI 后用于打印到终端。
func (m *Model) FinalLines() []string {
	return render.LinesToStrings(m.region.Render(m.contentWidth(), m.now()))
}

// Close 拆除区域并停止所有监听，可重复调用。
func (m *Model) Close() {
	if m.closed {
		return
	}
	m.closed = true
	close(m.stop)
	m.region.Close()
}

func (m *Model) handleStreamEvent(ev events.Event) {
	log := logger.Named("tui")
	if m.session != "" && ev.SessionID != "" && ev.SessionID != m.session {
		log.Debugf("session changed %s -> %s", m.session, ev.SessionID)
		m.region.Push("")
	}
	if ev.SessionID != "" {
		m.session = ev.SessionID
	}
	switch ev.Type {
	case events.EventReset:
		m.region.Push("")
		m.region.Push(ev.Text)
		m.done = false
		m.status.SetState(StatusStreaming)
	case events.EventSnapshot:
		m.region.Push(ev.Text)
		m.done = false
		m.status.SetState(StatusStreaming)
	case events.EventDone:
		m.region.Push(ev.Text)
		m.finishStream()
	case events.EventError:
		m.err = ev.Err
		logger.StreamLog.Error(m.region.ID(), ev.Err)
		if ev.Text != "" {
			m.region.Push(ev.Text)
		}
		m.done = true
		m.status.SetState(StatusError)
		if ev.Err != nil {
			m.status.UpdateHeader("Error: " + ev.Err.Error())
		}
	}
	m.status.SetDetail(fmtBytes(len(m.region.Text())))
}

func (m *Model) finishStream() {
	m.done = true
	if m.status.State() != StatusError {
		m.status.SetState(StatusSettling)
	}
}

func (m *Model) notify(msg region.SettleMsg) {
	select {
	case m.settles <- msg:
	case <-m.stop:
	}
}

func (m *Model) scheduleTick() tea.Cmd {
	if m.ticking || m.closed {
		return nil
	}
	m.ticking = true
	return tea.Tick(m.frame, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m *Model) listenEvents() tea.Cmd {
	if m.eventsSub == nil {
		return nil
	}
	sub := m.eventsSub
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return streamClosedMsg{}
		}
		return streamEventMsg{Event: ev}
	}
}

func (m *Model) listenSettles() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.settles:
			return settleMsg{Msg: msg}
		case <-m.stop:
			return nil
		}
	}
}

func (m *Model) imageCmds() []tea.Cmd {
	var cmds []tea.Cmd
	for _, src := range m.region.Images() {
		if m.requested[src] {
			continue
		}
		m.requested[src] = true
		load := m.loadImage
		cmds = append(cmds, func() tea.Msg {
			return imageLoadedMsg{Src: src, OK: load(src)}
		})
	}
	return cmds
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	viewHeight := height - 1 // status line
	if viewHeight < 1 {
		viewHeight = 1
	}
	m.viewport.Resize(width, viewHeight)
}

func (m *Model) contentWidth() int {
	width := m.width
	if width <= 0 {
		width = 80
	}
	if m.maxWidth > 0 && m.maxWidth < width {
		width = m.maxWidth
	}
	return width
}

func (m *Model) refresh(now time.Time) {
	m.viewport.SetLines(m.region.Render(m.contentWidth(), now))
}

func defaultLoadImage(src string) bool {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return true
	}
	_, err := os.Stat(src)
	return err == nil
}
