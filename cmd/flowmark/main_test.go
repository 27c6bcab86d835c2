package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"flowmark/internal/config"
	"flowmark/internal/logger"
	"flowmark/internal/source"
)

func TestParseArgsDefaults(t *testing.T) {
	args, err := parseArgs("flowmark", nil)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if args.speed != source.DefaultSpeed || args.file != "" || len(args.overrides()) != 0 {
		t.Fatalf("unexpected defaults: %+v", args)
	}
}

func TestParseArgsBuildsOverrides(t *testing.T) {
	args, err := parseArgs("flowmark", []string{
		"-c", "fps=60",
		"--animation", "typewriter",
		"--sep", "word",
		"--duration", "600ms",
		"--tag", "Alert:Heads up,Badge",
		"--width", "72",
		"notes.md",
	})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	want := []string{
		"fps=60",
		"animation=typewriter",
		"separator=word",
		"duration_seconds=600ms",
		"width=72",
		"custom_tag=Alert:Heads up",
		"custom_tag=Badge",
	}
	if got := args.overrides(); !reflect.DeepEqual(got, want) {
		t.Fatalf("overrides = %q, want %q", got, want)
	}
	if args.file != "notes.md" {
		t.Fatalf("file = %q", args.file)
	}
}

func TestParseArgsRejectsExtraFiles(t *testing.T) {
	if _, err := parseArgs("flowmark", []string{"a.md", "b.md"}); err == nil {
		t.Fatalf("expected error for two files")
	}
}

func TestLoadConfigFailsFastOnUnknownSeparator(t *testing.T) {
	logger.Discard()
	args, _ := parseArgs("flowmark", []string{"--config", filepath.Join(t.TempDir(), "none.toml"), "--sep", "sentence"})
	if _, err := loadConfig(args); err == nil || !strings.Contains(err.Error(), "sentence") {
		t.Fatalf("expected separator error, got %v", err)
	}
}

func TestRegionOptionsRegistersTags(t *testing.T) {
	cfg := config.Default()
	cfg.CustomTags = []config.CustomTag{{Name: "Alert", Label: "Warning"}, {Name: "Note"}}
	opts := regionOptions(cfg)
	if len(opts.Tags) != 2 || opts.Tags["Alert"] == nil || opts.Tags["Note"] == nil {
		t.Fatalf("tags = %v", opts.Tags)
	}
	if opts.Duration != cfg.Duration() || opts.Theme == nil || opts.Highlighter == nil {
		t.Fatalf("opts = %+v", opts)
	}
}

func TestRenderPlainPrintsDocument(t *testing.T) {
	logger.Discard()
	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte("# Title\n\nHello <Alert>careful</Alert> world"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg := config.Default()
	cfg.CustomTags = []config.CustomTag{{Name: "Alert"}}
	var out bytes.Buffer
	if err := renderPlain(cfg, &cliArgs{file: path}, &out); err != nil {
		t.Fatalf("renderPlain: %v", err)
	}
	got := out.String()
	for _, want := range []string{"# Title", "Hello", "careful", "world"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestOpenSourceReplaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte("a b c"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	src, piped, err := openSource(&cliArgs{file: path, speed: 10}, os.Stdin)
	if err != nil {
		t.Fatalf("openSource: %v", err)
	}
	replay, ok := src.(*source.Replay)
	if !ok || piped || replay.Tokens() != 3 {
		t.Fatalf("src = %T piped=%v", src, piped)
	}
}
