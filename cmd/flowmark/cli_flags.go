package main

import (
	"flag"
	"fmt"
	"strings"

	"flowmark/internal/source"
)

// cliArgs 是 flowmark 的全部命令行参数。
type cliArgs struct {
	cfgPath         string
	configOverrides stringSlice
	animation       string
	separator       string
	duration        string
	timing          string
	tags            csvSlice
	speed           float64
	stall           bool
	logPath         string
	logLevel        string
	width           int
	altScreen       bool
	plain           bool
	stay            bool
	file            string
}

func newFlagSet(name string) (*flag.FlagSet, *cliArgs) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	args := &cliArgs{}

	fs.StringVar(&args.cfgPath, "config", "", "Path to config file (default ~/.flowmark/config.toml)")
	fs.Var(&args.configOverrides, "c", "Override config value key=value (repeatable)")
	fs.StringVar(&args.animation, "animation", "", "Entrance animation (fadeIn, blurIn, fadeAndScale, colorTransition, highlight, blurAndSharpen, typewriter, none)")
	fs.StringVar(&args.animation, "a", "", "Alias for --animation")
	fs.StringVar(&args.separator, "sep", "", "Segmentation mode (diff|word|char)")
	fs.StringVar(&args.duration, "duration", "", "Animation duration per segment, seconds or Go duration (e.g. 0.6, 600ms)")
	fs.StringVar(&args.timing, "timing", "", "Timing function (linear, ease, ease-in, ease-out, ease-in-out, spring)")
	fs.Var(&args.tags, "tag", "Register a custom tag Name[:Label[:color]] (comma separated or repeatable)")
	fs.Float64Var(&args.speed, "speed", source.DefaultSpeed, "Replay speed in tokens per second when rendering a file")
	fs.BoolVar(&args.stall, "stall", false, "Simulate network stalls while replaying a file")
	fs.StringVar(&args.logPath, "log", "", "Log file path (default logs/flowmark.log)")
	fs.StringVar(&args.logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	fs.IntVar(&args.width, "width", 0, "Maximum content width (0 follows the terminal)")
	fs.BoolVar(&args.altScreen, "alt-screen", false, "Render in the alternate screen and print the result on exit")
	fs.BoolVar(&args.plain, "plain", false, "Skip the TUI and print the rendered document once")
	fs.BoolVar(&args.stay, "stay", false, "Keep the TUI open after the stream has settled")

	return fs, args
}

func parseArgs(name string, argv []string) (*cliArgs, error) {
	fs, args := newFlagSet(name)
	if err := fs.Parse(argv); err != nil {
		return nil, err
	}
	switch fs.NArg() {
	case 0:
	case 1:
		args.file = fs.Arg(0)
	default:
		return nil, fmt.Errorf("expected at most one file argument, got %d", fs.NArg())
	}
	return args, nil
}

// overrides 把 -c 与显式 flag 合并成 key=value 列表，显式 flag 排在后面以便覆盖。
func (a *cliArgs) overrides() []string {
	out := append([]string{}, a.configOverrides...)
	add := func(key, val string) {
		if strings.TrimSpace(val) != "" {
			out = append(out, key+"="+val)
		}
	}
	add("animation", a.animation)
	add("separator", a.separator)
	add("duration_seconds", a.duration)
	add("timing_function", a.timing)
	add("log_path", a.logPath)
	add("log_level", a.logLevel)
	if a.width > 0 {
		add("width", fmt.Sprint(a.width))
	}
	for _, tag := range a.tags {
		add("custom_tag", tag)
	}
	return out
}
