package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"markestedt/layoutfix/layout"
	"markestedt/layoutfix/platform"
)

// EnvPrefix prefixes every environment override, e.g.
// LAYOUTFIX_CONVERSION_MODE.
const EnvPrefix = "LAYOUTFIX_"

type Config struct {
	Hotkey     HotkeyConfig     `toml:"hotkey" envPrefix:"HOTKEY_"`
	Conversion ConversionConfig `toml:"conversion" envPrefix:"CONVERSION_"`
	Web        WebConfig        `toml:"web" envPrefix:"WEB_"`
	History    HistoryConfig    `toml:"history" envPrefix:"HISTORY_"`
	Tray       TrayConfig       `toml:"tray" envPrefix:"TRAY_"`
	Log        LogConfig        `toml:"log" envPrefix:"LOG_"`
}

type HotkeyConfig struct {
	Combo string `toml:"combo" env:"COMBO"`
}

type ConversionConfig struct {
	Mode                       string `toml:"mode" env:"MODE"`
	ReplaceCaps                bool   `toml:"replace_caps" env:"REPLACE_CAPS"`
	MaxCharacterLimit          int    `toml:"max_character_limit" env:"MAX_CHARACTER_LIMIT"` // 0 = unlimited
	SwitchLanguageAfterConvert bool   `toml:"switch_language_after_convert" env:"SWITCH_LANGUAGE"`
	OverlapPolicy              string `toml:"overlap_policy" env:"OVERLAP_POLICY"` // drop|coalesce
}

type WebConfig struct {
	Enabled bool `toml:"enabled" env:"ENABLED"`
	Port    int  `toml:"port" env:"PORT"`
}

type HistoryConfig struct {
	Enabled   bool `toml:"enabled" env:"ENABLED"`
	StoreText bool `toml:"store_text" env:"STORE_TEXT"`
}

type TrayConfig struct {
	Enabled bool `toml:"enabled" env:"ENABLED"`
}

type LogConfig struct {
	Level string `toml:"level" env:"LEVEL"`
}

// Defaults returns the configuration written on first run.
func Defaults() *Config {
	return &Config{
		Hotkey: HotkeyConfig{
			Combo: "ctrl+q",
		},
		Conversion: ConversionConfig{
			Mode:                       layout.ToggleAll.String(),
			ReplaceCaps:                true,
			MaxCharacterLimit:          0,
			SwitchLanguageAfterConvert: false,
			OverlapPolicy:              "drop",
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8923,
		},
		History: HistoryConfig{
			Enabled:   true,
			StoreText: false,
		},
		Tray: TrayConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Dir returns the configuration directory, creating it if needed.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	dir := filepath.Join(base, "layoutfix")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// ConfigPath returns the path to the configuration file
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads .env, then the configuration file at the default path. The
// returned Config is never nil: on error it holds the defaults, and path
// is empty when the config directory is unavailable.
func Load() (*Config, string, error) {
	_ = godotenv.Load()

	path, err := ConfigPath()
	if err != nil {
		return Defaults(), "", err
	}
	cfg, err := LoadOrDefaults(path)
	return cfg, path, err
}

// LoadOrDefaults is LoadFrom with the defaults substituted when path
// cannot be read or is invalid. The error is still returned so the
// caller can report it.
func LoadOrDefaults(path string) (*Config, error) {
	cfg, err := LoadFrom(path)
	if err != nil {
		return Defaults(), err
	}
	return cfg, nil
}

// LoadFrom reads path, creating it with defaults if it does not exist.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := Save(path, Defaults()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}
	return Read(path)
}

// Read decodes path over the defaults, applies environment overrides
// and validates the result.
func Read(path string) (*Config, error) {
	cfg := Defaults()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// ApplyEnv overrides fields from LAYOUTFIX_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	if _, err := ParseHotkey(c.Hotkey.Combo); err != nil {
		errs = append(errs, fmt.Errorf("hotkey.combo: %w", err))
	}
	if _, err := layout.ParseMode(c.Conversion.Mode); err != nil {
		errs = append(errs, fmt.Errorf("conversion.mode: %w", err))
	}
	if c.Conversion.MaxCharacterLimit < 0 {
		errs = append(errs, fmt.Errorf("conversion.max_character_limit: must be >= 0, got %d", c.Conversion.MaxCharacterLimit))
	}
	switch strings.ToLower(strings.TrimSpace(c.Conversion.OverlapPolicy)) {
	case "", "drop", "coalesce":
	default:
		errs = append(errs, fmt.Errorf("conversion.overlap_policy: unknown policy %q", c.Conversion.OverlapPolicy))
	}
	if c.Web.Enabled && (c.Web.Port < 1 || c.Web.Port > 65535) {
		errs = append(errs, fmt.Errorf("web.port: out of range: %d", c.Web.Port))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

// Binding returns the parsed hotkey.
func (c *Config) Binding() platform.Binding {
	b, _ := ParseHotkey(c.Hotkey.Combo)
	return b
}

// Mode returns the parsed conversion mode.
func (c *Config) Mode() layout.Mode {
	m, _ := layout.ParseMode(c.Conversion.Mode)
	return m
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level: %s", s)
}

// ParseHotkey parses a hotkey combo string like "ctrl+q" or "ctrl+alt+f5"
func ParseHotkey(combo string) (platform.Binding, error) {
	var b platform.Binding
	combo = strings.TrimSpace(strings.ToLower(combo))
	if combo == "" {
		return b, fmt.Errorf("empty hotkey combo")
	}
	parts := strings.Split(combo, "+")

	for i, part := range parts {
		part = strings.TrimSpace(part)

		switch part {
		case "ctrl", "control":
			b.Modifiers |= platform.ModCtrl
			continue
		case "shift":
			b.Modifiers |= platform.ModShift
			continue
		case "alt":
			b.Modifiers |= platform.ModAlt
			continue
		case "win", "windows", "super", "meta":
			b.Modifiers |= platform.ModWin
			continue
		}

		// Anything that is not a modifier must be the last part.
		if i != len(parts)-1 {
			return platform.Binding{}, fmt.Errorf("unknown modifier: %s", part)
		}
		key, err := platform.ParseKey(part)
		if err != nil {
			return platform.Binding{}, err
		}
		b.Key = key
	}

	if err := b.Validate(); err != nil {
		return platform.Binding{}, err
	}
	return b, nil
}
