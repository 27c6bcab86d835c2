package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Result 返回 TUI 运行后的必要信息。
type Result struct {
	// Lines 是退出时的最终渲染结果。
	Lines []string
	Text  string
	Err   error
}

// Run 封装 Bubble Tea 入口，返回最终的 UI 结果。
func Run(opts Options) (Result, error) {
	model, err := New(opts)
	if err != nil {
		return Result{}, err
	}
	defer model.Close()

	programOptions := []tea.ProgramOption{}
	if opts.AltScreen {
		programOptions = append(programOptions, tea.WithAltScreen())
	}
	if opts.PipedInput {
		programOptions = append(programOptions, tea.WithInputTTY())
	}
	program := tea.NewProgram(model, programOptions...)
	if _, err := program.Run(); err != nil {
		return Result{}, err
	}
	return Result{
		Lines: model.FinalLines(),
		Text:  model.Region().Text(),
		Err:   model.Err(),
	}, nil
}
