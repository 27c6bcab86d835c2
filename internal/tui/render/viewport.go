package render

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Viewport 包装 bubbles viewport，内容未变化时跳过 SetContent，贴底时随内容增长自动滚动。
type Viewport struct {
	viewport.Model
	lastLines []string
}

// NewViewport 创建视口。
func NewViewport(width, height int) Viewport {
	return Viewport{Model: viewport.New(width, height)}
}

// Resize 更新宽高，宽度变化时清空缓存。
func (v *Viewport) Resize(width, height int) {
	if v == nil {
		return
	}
	if v.Width != width {
		v.lastLines = nil
	}
	v.Width = width
	v.Height = height
	if v.PastBottom() {
		v.GotoBottom()
	}
}

// HandleUpdate 代理 bubbles 的 Update（键盘与鼠标滚动）。
func (v *Viewport) HandleUpdate(msg tea.Msg) tea.Cmd {
	if v == nil {
		return nil
	}
	var cmd tea.Cmd
	v.Model, cmd = v.Model.Update(msg)
	return cmd
}

// SetLines 设置已绘制的行，返回内容是否变化。
func (v *Viewport) SetLines(lines []Line) bool {
	if v == nil {
		return false
	}
	rendered := LinesToStrings(lines)
	if slices.Equal(rendered, v.lastLines) {
		return false
	}
	stickToBottom := v.AtBottom() || len(v.lastLines) == 0
	v.lastLines = rendered
	v.SetContent(strings.Join(rendered, "\n"))
	if stickToBottom {
		v.GotoBottom()
	}
	return true
}
