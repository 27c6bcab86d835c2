package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"flowmark/internal/animate"
	"flowmark/internal/logger"
	"flowmark/internal/segment"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// CustomTag 描述一个注册的自定义标签，渲染为带标题的提示框。
type CustomTag struct {
	Name  string `toml:"name" yaml:"name"`
	Label string `toml:"label,omitempty" yaml:"label,omitempty"`
	Color string `toml:"color,omitempty" yaml:"color,omitempty"`
}

// Config is the only persisted config file schema.
type Config struct {
	Animation       string      `toml:"animation" yaml:"animation"`
	Separator       string      `toml:"separator" yaml:"separator"`
	DurationSeconds float64     `toml:"duration_seconds" yaml:"duration_seconds"`
	TimingFunction  string      `toml:"timing_function" yaml:"timing_function"`
	CustomTags      []CustomTag `toml:"custom_tags,omitempty" yaml:"custom_tags,omitempty"`

	DebounceMS int    `toml:"debounce_ms" yaml:"debounce_ms"`
	FPS        int    `toml:"fps" yaml:"fps"`
	LogPath    string `toml:"log_path,omitempty" yaml:"log_path,omitempty"`
	LogLevel   string `toml:"log_level,omitempty" yaml:"log_level,omitempty"`
	Width      int    `toml:"width,omitempty" yaml:"width,omitempty"`
	Accent     string `toml:"accent,omitempty" yaml:"accent,omitempty"`
	Background string `toml:"background,omitempty" yaml:"background,omitempty"`
	CodeStyle  string `toml:"code_style,omitempty" yaml:"code_style,omitempty"`

	Source string `toml:"-" yaml:"-"`
}

const (
	EnvAnimation = "FLOWMARK_ANIMATION"
	EnvSeparator = "FLOWMARK_SEPARATOR"
	EnvDuration  = "FLOWMARK_DURATION"
	EnvTiming    = "FLOWMARK_TIMING"
)

func Default() Config {
	return Config{
		Animation:       animate.FadeIn,
		Separator:       string(segment.ModeDiff),
		DurationSeconds: animate.DefaultDuration.Seconds(),
		TimingFunction:  animate.TimingEaseInOut,
		DebounceMS:      int(animate.DefaultDebounce / time.Millisecond),
		FPS:             30,
	}
}

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".flowmark", "config.toml")
}

// Load 读取配置文件并应用环境变量覆盖。文件不存在时返回默认值。
// .yaml/.yml 后缀按 YAML 解析，其余按 TOML。
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, errors.New("config path is empty and $HOME is not set")
	}
	cfg.Source = path

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return applyEnv(cfg), nil
		}
		return cfg, err
	}

	if isYAML(path) {
		err = yaml.Unmarshal(content, &cfg)
	} else {
		err = toml.Unmarshal(content, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	if env := strings.TrimSpace(os.Getenv(EnvAnimation)); env != "" {
		cfg.Animation = env
	}
	if env := strings.TrimSpace(os.Getenv(EnvSeparator)); env != "" {
		cfg.Separator = env
	}
	if env := strings.TrimSpace(os.Getenv(EnvTiming)); env != "" {
		cfg.TimingFunction = env
	}
	if env := strings.TrimSpace(os.Getenv(EnvDuration)); env != "" {
		if secs, ok := parseSeconds(env); ok {
			cfg.DurationSeconds = secs
		} else {
			logger.Named("config").Warnf("ignoring %s=%q: not a duration", EnvDuration, env)
		}
	}
	return cfg
}

// Validate 检查会导致启动失败的配置。未知切分模式返回 segment.ErrUnknownMode。
func (c Config) Validate() error {
	if _, err := segment.ParseMode(c.Separator); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.DurationSeconds < 0 {
		return fmt.Errorf("config: duration_seconds must not be negative, got %v", c.DurationSeconds)
	}
	if c.FPS < 0 || c.DebounceMS < 0 {
		return errors.New("config: fps and debounce_ms must not be negative")
	}
	seen := map[string]bool{}
	for i, tag := range c.CustomTags {
		name := strings.TrimSpace(tag.Name)
		if name == "" {
			return fmt.Errorf("config: custom_tags[%d] has no name", i)
		}
		if !validTagName(name) {
			return fmt.Errorf("config: custom tag %q must start with a letter and contain only letters, digits or '-'", name)
		}
		if seen[name] {
			return fmt.Errorf("config: custom tag %q registered twice", name)
		}
		seen[name] = true
	}
	return nil
}

// Duration 返回每个 Segment 的动画时长。
func (c Config) Duration() time.Duration {
	if c.DurationSeconds <= 0 {
		return animate.DefaultDuration
	}
	return time.Duration(c.DurationSeconds * float64(time.Second))
}

// Debounce 返回整体沉降前的防抖时长。
func (c Config) Debounce() time.Duration {
	if c.DebounceMS <= 0 {
		return animate.DefaultDebounce
	}
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// FrameInterval 返回按 fps 计算的帧间隔。
func (c Config) FrameInterval() time.Duration {
	fps := c.FPS
	if fps <= 0 {
		fps = 30
	}
	return time.Second / time.Duration(fps)
}

// TagNames 返回自定义标签名。
func (c Config) TagNames() []string {
	out := make([]string, 0, len(c.CustomTags))
	for _, tag := range c.CustomTags {
		out = append(out, strings.TrimSpace(tag.Name))
	}
	return out
}

// Palette 按配置覆盖默认配色。
func (c Config) Palette() animate.Palette {
	pal := animate.DefaultPalette()
	if c.Accent != "" {
		pal.Accent = c.Accent
	}
	if c.Background != "" {
		pal.Background = c.Background
	}
	return pal
}

// parseSeconds 接受 "1.5" 或 "1500ms" 这类写法。
func parseSeconds(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 {
		return v, true
	}
	if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
		return d.Seconds(), true
	}
	return 0, false
}

func validTagName(name string) bool {
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '-'):
		default:
			return false
		}
	}
	return name != ""
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
