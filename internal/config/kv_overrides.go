package config

import (
	"strconv"
	"strings"

	"flowmark/internal/logger"
)

// ApplyKVOverrides applies free-form -c key=value overrides.
// custom_tag 的值写作 Name[:Label[:color]]，可重复出现。
func ApplyKVOverrides(cfg Config, overrides []string) Config {
	if len(overrides) == 0 {
		return cfg
	}
	log := logger.Named("config")
	for _, raw := range overrides {
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			log.Warnf("ignoring override %q: expected key=value", raw)
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		switch key {
		case "animation":
			cfg.Animation = val
		case "separator", "sep":
			cfg.Separator = val
		case "timing_function", "timing":
			cfg.TimingFunction = val
		case "duration_seconds", "duration":
			if secs, ok := parseSeconds(val); ok {
				cfg.DurationSeconds = secs
			} else {
				log.Warnf("ignoring %s=%q: not a duration", key, val)
			}
		case "debounce_ms":
			setInt(&cfg.DebounceMS, key, val)
		case "fps":
			setInt(&cfg.FPS, key, val)
		case "width":
			setInt(&cfg.Width, key, val)
		case "log_path":
			cfg.LogPath = val
		case "log_level":
			cfg.LogLevel = val
		case "accent":
			cfg.Accent = val
		case "background":
			cfg.Background = val
		case "code_style":
			cfg.CodeStyle = val
		case "custom_tag":
			cfg.CustomTags = append(cfg.CustomTags, parseTag(val))
		default:
			log.Warnf("ignoring unknown override key %q", key)
		}
	}
	return cfg
}

func setInt(dst *int, key, val string) {
	n, err := strconv.Atoi(val)
	if err != nil {
		logger.Named("config").Warnf("ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = n
}

func parseTag(val string) CustomTag {
	parts := strings.SplitN(val, ":", 3)
	tag := CustomTag{Name: strings.TrimSpace(parts[0])}
	if len(parts) > 1 {
		tag.Label = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		tag.Color = strings.TrimSpace(parts[2])
	}
	return tag
}
