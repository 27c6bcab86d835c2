package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"flowmark/internal/animate"
	"flowmark/internal/config"
	"flowmark/internal/events"
	"flowmark/internal/highlight"
	"flowmark/internal/logger"
	"flowmark/internal/region"
	"flowmark/internal/source"
	"flowmark/internal/tui"
	"flowmark/internal/tui/render"

	"github.com/mattn/go-isatty"
)

var log = logger.Named("cli")

func main() {
	logger.Configure()

	args, err := parseArgs("flowmark", os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := loadConfig(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flowmark: %v\n", err)
		os.Exit(2)
	}

	if logFile, path, err := logger.SetupFile(cfg.LogPath); err != nil {
		logger.Discard()
		fmt.Fprintf(os.Stderr, "flowmark: failed to initialize log file: %v\n", err)
	} else {
		defer logFile.Close()
		log.Infof("logging to %s (config %s)", path, cfg.Source)
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		log.Warnf("invalid log level %q: %v", cfg.LogLevel, err)
	}

	src, piped, err := openSource(args, os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flowmark: %v\n", err)
		os.Exit(2)
	}

	if args.plain || !isatty.IsTerminal(os.Stdout.Fd()) {
		if err := renderPlain(cfg, args, os.Stdout); err != nil {
			log.Errorf("plain render: %v", err)
			fmt.Fprintf(os.Stderr, "flowmark: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runTUI(cfg, args, src, piped); err != nil {
		log.Errorf("program exit: %v", err)
		fmt.Fprintf(os.Stderr, "flowmark: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(args *cliArgs) (config.Config, error) {
	cfg, err := config.Load(args.cfgPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	cfg = config.ApplyKVOverrides(cfg, args.overrides())
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openSource 选择数据源：给了文件则按节奏回放，否则读取管道输入。
func openSource(args *cliArgs, stdin *os.File) (source.Source, bool, error) {
	if args.file != "" {
		data, err := os.ReadFile(args.file)
		if err != nil {
			return nil, false, err
		}
		return source.NewReplay(string(data), source.ReplayOptions{Speed: args.speed, Stall: args.stall}), false, nil
	}
	if isatty.IsTerminal(stdin.Fd()) {
		return nil, false, errors.New("no input: pipe markdown on stdin or pass a file")
	}
	return source.NewReader(stdin), true, nil
}

func regionOptions(cfg config.Config) region.Options {
	theme := render.NewTheme(cfg.Palette())
	tags := make(map[string]render.RenderFunc, len(cfg.CustomTags))
	for _, tag := range cfg.CustomTags {
		label := tag.Label
		if label == "" {
			label = tag.Name
		}
		tags[strings.TrimSpace(tag.Name)] = render.Callout(label, tag.Color)
	}
	return region.Options{
		Animation:   cfg.Animation,
		Duration:    cfg.Duration(),
		Timing:      cfg.TimingFunction,
		Separator:   cfg.Separator,
		Tags:        tags,
		Theme:       &theme,
		Highlighter: highlight.New(cfg.CodeStyle),
		Debounce:    cfg.Debounce(),
	}
}

func runTUI(cfg config.Config, args *cliArgs, src source.Source, piped bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := events.NewEventQueue(0)
	sub := queue.Subscribe()
	go func() {
		if err := src.Run(ctx, queue); err != nil && !errors.Is(err, context.Canceled) {
			log.Warnf("source stopped: %v", err)
		}
	}()

	result, err := tui.Run(tui.Options{
		Region:        regionOptions(cfg),
		Events:        sub,
		FrameInterval: cfg.FrameInterval(),
		Width:         cfg.Width,
		ExitOnDone:    !args.stay,
		AltScreen:     args.altScreen,
		PipedInput:    piped,
	})
	cancel()
	queue.Close()
	if err != nil {
		return err
	}
	if args.altScreen {
		for _, line := range result.Lines {
			fmt.Println(line)
		}
	}
	return result.Err
}

// renderPlain 读完全部输入后一次性渲染，不播放动画。
func renderPlain(cfg config.Config, args *cliArgs, out io.Writer) error {
	var data []byte
	var err error
	if args.file != "" {
		data, err = os.ReadFile(args.file)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return err
	}
	logger.SetStreamLogger(logger.NoopStreamLogger{})
	defer logger.SetStreamLogger(nil)
	opts := regionOptions(cfg)
	opts.Animation = animate.None
	r, err := region.New(opts)
	if err != nil {
		return err
	}
	defer r.Close()
	r.Push(string(data))
	width := cfg.Width
	if width <= 0 {
		width = 80
	}
	for _, line := range render.LinesToStrings(r.Render(width, time.Now())) {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}
