// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/scribeworks/scribe/internal/logger"
)

// Config holds the application's combined configuration.
type Config struct {
	Logger    logger.Config   `toml:"logger"`    // Logger config under [logger] table
	Timing    TimingConfig    `toml:"timing"`    // Delays and debounce intervals
	Editor    EditorConfig    `toml:"editor"`    // Editor-surface settings
	Transform TransformConfig `toml:"transform"` // Transformation collaborator
	History   HistoryConfig   `toml:"history"`   // Edit-history log
}

// TimingConfig holds every delay the coordination engine uses, in
// milliseconds. The settle delay in particular is deliberately a tunable:
// the right value depends on how fast the host finalizes selections.
type TimingConfig struct {
	SettleDelayMs    int `toml:"settle_delay_ms"`
	HideGraceMs      int `toml:"hide_grace_ms"`
	GestureSettleMs  int `toml:"gesture_settle_ms"`
	ChangeDebounceMs int `toml:"change_debounce_ms"`
	NoticeDismissMs  int `toml:"notice_dismiss_ms"`
}

// EditorConfig holds editor-surface settings.
type EditorConfig struct {
	ChangeThreshold    int  `toml:"change_threshold"`
	TouchDragThreshold int  `toml:"touch_drag_threshold"`
	ViewportMargin     int  `toml:"viewport_margin"`
	WordLimit          int  `toml:"word_limit"`
	SystemClipboard    bool `toml:"system_clipboard"`
}

// TransformConfig holds settings for the transformation collaborator.
type TransformConfig struct {
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
	TimeoutMs int    `toml:"timeout_ms"`
}

// HistoryConfig holds settings for the edit-history log.
type HistoryConfig struct {
	LocalPath string `toml:"local_path"` // JSONL file; empty means config-dir default
	RemoteURL string `toml:"remote_url"` // best-effort mirror; empty disables
	MaxItems  int    `toml:"max_items"`  // in-memory ring capacity
}

var (
	loadedConfig *Config
	loadOnce     sync.Once
	loadErr      error
)

// NewDefaultConfig creates a Config struct with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Logger: logger.NewConfig(),
		Timing: TimingConfig{
			SettleDelayMs:    int(DefaultSettleDelay / time.Millisecond),
			HideGraceMs:      int(DefaultHideGrace / time.Millisecond),
			GestureSettleMs:  int(DefaultGestureSettle / time.Millisecond),
			ChangeDebounceMs: int(DefaultChangeDebounce / time.Millisecond),
			NoticeDismissMs:  int(DefaultNoticeDismiss / time.Millisecond),
		},
		Editor: EditorConfig{
			ChangeThreshold:    DefaultChangeThreshold,
			TouchDragThreshold: DefaultTouchDragThreshold,
			ViewportMargin:     DefaultViewportMargin,
			WordLimit:          DefaultWordLimit,
			SystemClipboard:    true,
		},
		Transform: TransformConfig{
			BaseURL:   "http://localhost:8790",
			Model:     "default",
			TimeoutMs: int(DefaultTransformTimeout / time.Millisecond),
		},
		History: HistoryConfig{
			MaxItems: DefaultHistorySize,
		},
	}
}

// SettleDelay returns the settle delay as a duration.
func (t TimingConfig) SettleDelay() time.Duration {
	return time.Duration(t.SettleDelayMs) * time.Millisecond
}

// HideGrace returns the hide grace period as a duration.
func (t TimingConfig) HideGrace() time.Duration {
	return time.Duration(t.HideGraceMs) * time.Millisecond
}

// GestureSettle returns the gesture settle delay as a duration.
func (t TimingConfig) GestureSettle() time.Duration {
	return time.Duration(t.GestureSettleMs) * time.Millisecond
}

// ChangeDebounce returns the change-tracker debounce as a duration.
func (t TimingConfig) ChangeDebounce() time.Duration {
	return time.Duration(t.ChangeDebounceMs) * time.Millisecond
}

// NoticeDismiss returns the notice auto-dismiss delay as a duration.
func (t TimingConfig) NoticeDismiss() time.Duration {
	return time.Duration(t.NoticeDismissMs) * time.Millisecond
}

// Timeout returns the transformation round-trip timeout as a duration.
func (t TransformConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutMs) * time.Millisecond
}

// loadFromFile attempts to load configuration from a TOML file.
// A missing file is not an error.
func loadFromFile(filePath string) (*Config, error) {
	cfg := &Config{}
	_, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("error checking config file '%s': %w", filePath, err)
	}

	metadata, err := toml.DecodeFile(filePath, cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config file '%s': %w", filePath, err)
	}
	if len(metadata.Undecoded()) > 0 {
		logger.Warnf("Config file '%s': Unrecognized keys: %v", filePath, metadata.Undecoded())
	}
	return cfg, nil
}

// validate checks config values and resets invalid ones to defaults.
func (c *Config) validate() {
	defaults := NewDefaultConfig()

	if c.Timing.SettleDelayMs <= 0 {
		c.Timing.SettleDelayMs = defaults.Timing.SettleDelayMs
	}
	if c.Timing.HideGraceMs <= 0 {
		c.Timing.HideGraceMs = defaults.Timing.HideGraceMs
	}
	if c.Timing.GestureSettleMs <= 0 {
		c.Timing.GestureSettleMs = defaults.Timing.GestureSettleMs
	}
	if c.Timing.ChangeDebounceMs <= 0 {
		c.Timing.ChangeDebounceMs = defaults.Timing.ChangeDebounceMs
	}
	if c.Timing.NoticeDismissMs <= 0 {
		c.Timing.NoticeDismissMs = defaults.Timing.NoticeDismissMs
	}

	if c.Editor.ChangeThreshold < 0 {
		c.Editor.ChangeThreshold = defaults.Editor.ChangeThreshold
	}
	if c.Editor.TouchDragThreshold <= 0 {
		c.Editor.TouchDragThreshold = defaults.Editor.TouchDragThreshold
	}
	if c.Editor.ViewportMargin < 0 {
		c.Editor.ViewportMargin = defaults.Editor.ViewportMargin
	}
	if c.Editor.WordLimit <= 0 {
		c.Editor.WordLimit = defaults.Editor.WordLimit
	}

	if c.Transform.TimeoutMs <= 0 {
		c.Transform.TimeoutMs = defaults.Transform.TimeoutMs
	}
	if c.Transform.Model == "" {
		c.Transform.Model = defaults.Transform.Model
	}

	if c.History.MaxItems <= 0 {
		c.History.MaxItems = defaults.History.MaxItems
	}
	if c.Logger.LogLevel == "" {
		c.Logger.LogLevel = defaults.Logger.LogLevel
	}
}

// LoadConfig orchestrates loading defaults, file, applying flags, and
// validation. It should be called only once, typically from main.
func LoadConfig(configFilePath string, flags *Flags) (*Config, error) {
	loadOnce.Do(func() {
		cfg := NewDefaultConfig()

		// Determine effective config file path
		effectivePath := configFilePath
		if effectivePath == "" {
			configDir, err := os.UserConfigDir()
			if err == nil {
				effectivePath = filepath.Join(configDir, ConfigDirName, DefaultConfigFileName)
			}
		}

		if effectivePath != "" {
			fileCfg, err := loadFromFile(effectivePath)
			if err != nil {
				loadErr = err
			} else if fileCfg != nil {
				cfg.merge(fileCfg)
			}
		}

		if flags != nil {
			flags.ApplyOverrides(cfg)
		}

		cfg.validate()
		loadedConfig = cfg
	})

	return loadedConfig, loadErr
}

// merge folds the set fields of a file-loaded config into the defaults.
func (c *Config) merge(file *Config) {
	if file.Logger.LogLevel != "" {
		c.Logger = file.Logger
	}
	if file.Timing.SettleDelayMs > 0 {
		c.Timing.SettleDelayMs = file.Timing.SettleDelayMs
	}
	if file.Timing.HideGraceMs > 0 {
		c.Timing.HideGraceMs = file.Timing.HideGraceMs
	}
	if file.Timing.GestureSettleMs > 0 {
		c.Timing.GestureSettleMs = file.Timing.GestureSettleMs
	}
	if file.Timing.ChangeDebounceMs > 0 {
		c.Timing.ChangeDebounceMs = file.Timing.ChangeDebounceMs
	}
	if file.Timing.NoticeDismissMs > 0 {
		c.Timing.NoticeDismissMs = file.Timing.NoticeDismissMs
	}
	if file.Editor.ChangeThreshold > 0 {
		c.Editor.ChangeThreshold = file.Editor.ChangeThreshold
	}
	if file.Editor.TouchDragThreshold > 0 {
		c.Editor.TouchDragThreshold = file.Editor.TouchDragThreshold
	}
	if file.Editor.ViewportMargin > 0 {
		c.Editor.ViewportMargin = file.Editor.ViewportMargin
	}
	if file.Editor.WordLimit > 0 {
		c.Editor.WordLimit = file.Editor.WordLimit
	}
	c.Editor.SystemClipboard = file.Editor.SystemClipboard
	if file.Transform.BaseURL != "" {
		c.Transform.BaseURL = file.Transform.BaseURL
	}
	if file.Transform.Model != "" {
		c.Transform.Model = file.Transform.Model
	}
	if file.Transform.TimeoutMs > 0 {
		c.Transform.TimeoutMs = file.Transform.TimeoutMs
	}
	if file.History.LocalPath != "" {
		c.History.LocalPath = file.History.LocalPath
	}
	if file.History.RemoteURL != "" {
		c.History.RemoteURL = file.History.RemoteURL
	}
	if file.History.MaxItems > 0 {
		c.History.MaxItems = file.History.MaxItems
	}
}

// Get returns the loaded application configuration. Panics if LoadConfig wasn't called.
func Get() *Config {
	if loadedConfig == nil {
		// This indicates a programming error - LoadConfig should be called in main.
		panic("config.Get() called before config.LoadConfig()")
	}
	return loadedConfig
}
