// internal/config/flags.go
package config

import (
	"flag"
	"fmt"
	"strings"
)

// Flags holds values parsed from command-line flags.
// Use pointers to distinguish between unset flags and zero-value flags.
type Flags struct {
	ConfigFilePath *string
	LogLevel       *string
	LogFilePath    *string
	SettleDelayMs  *int
	DebounceMs     *int
	TransformURL   *string
	Model          *string
	HistoryPath    *string
	HistoryRemote  *string
	WebListen      *string
	EnableTags     *string
	DisableTags    *string
	DebugLog       *bool
}

// DefineFlags sets up the command-line flags and associates them with the Flags struct fields.
func (f *Flags) DefineFlags() {
	f.ConfigFilePath = flag.String("config", "", fmt.Sprintf("Path to TOML configuration file (default ~/.config/%s/%s)", ConfigDirName, DefaultConfigFileName))
	f.LogLevel = flag.String("loglevel", "", "Log level (debug, info, warn, error) - Overrides config file")
	f.LogFilePath = flag.String("logfile", "", "Path to write log file (use '-' for stderr) - Overrides config file")
	f.SettleDelayMs = flag.Int("settle-delay", 0, "Selection settle delay in ms - Overrides config file")
	f.DebounceMs = flag.Int("change-debounce", 0, "Change tracker debounce in ms - Overrides config file")
	f.TransformURL = flag.String("transform-url", "", "Base URL of the transformation service - Overrides config file")
	f.Model = flag.String("model", "", "Model identifier for transformations - Overrides config file")
	f.HistoryPath = flag.String("history", "", "Path to the local edit-history log - Overrides config file")
	f.HistoryRemote = flag.String("history-remote", "", "URL of the remote history mirror - Overrides config file")
	f.WebListen = flag.String("listen", "", "Serve the browser bridge on this address instead of the TUI (e.g. :8791)")
	f.EnableTags = flag.String("log-tags", "", "Comma-separated list of log tags to enable - Overrides config file")
	f.DisableTags = flag.String("log-disable-tags", "", "Comma-separated list of log tags to disable - Overrides config file")
	f.DebugLog = flag.Bool("debug-log", false, "Enable verbose debug logging for the logger filtering system")
}

// ParseFlags parses the defined command-line flags into the Flags struct.
// It returns the remaining non-flag arguments (e.g., the document path).
func (f *Flags) ParseFlags() []string {
	f.DefineFlags()
	flag.Parse()
	return flag.Args()
}

// ApplyOverrides updates the Config struct with values from flags *if* they were set.
func (f *Flags) ApplyOverrides(cfg *Config) {
	// Visit only processes flags that were actually set
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "loglevel":
			if f.LogLevel != nil && *f.LogLevel != "" {
				cfg.Logger.LogLevel = *f.LogLevel
			}
		case "logfile":
			if f.LogFilePath != nil { // Empty string is valid ("-")
				cfg.Logger.LogFilePath = *f.LogFilePath
			}
		case "settle-delay":
			if f.SettleDelayMs != nil && *f.SettleDelayMs > 0 {
				cfg.Timing.SettleDelayMs = *f.SettleDelayMs
			}
		case "change-debounce":
			if f.DebounceMs != nil && *f.DebounceMs > 0 {
				cfg.Timing.ChangeDebounceMs = *f.DebounceMs
			}
		case "transform-url":
			if f.TransformURL != nil && *f.TransformURL != "" {
				cfg.Transform.BaseURL = *f.TransformURL
			}
		case "model":
			if f.Model != nil && *f.Model != "" {
				cfg.Transform.Model = *f.Model
			}
		case "history":
			if f.HistoryPath != nil && *f.HistoryPath != "" {
				cfg.History.LocalPath = *f.HistoryPath
			}
		case "history-remote":
			if f.HistoryRemote != nil && *f.HistoryRemote != "" {
				cfg.History.RemoteURL = *f.HistoryRemote
			}
		case "log-tags":
			if f.EnableTags != nil && *f.EnableTags != "" {
				cfg.Logger.EnabledTags = splitList(*f.EnableTags)
			}
		case "log-disable-tags":
			if f.DisableTags != nil && *f.DisableTags != "" {
				cfg.Logger.DisabledTags = splitList(*f.DisableTags)
			}
		}
	})
}

// splitList turns a comma-separated flag value into a trimmed slice.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
