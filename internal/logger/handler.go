package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const tagKey = "tag" // The slog attribute key used for filtering tags

// filteringHandler wraps a base slog.Handler to add custom filtering.
type filteringHandler struct {
	baseHandler slog.Handler
	cfg         *Config // Reference to processed config
}

// newFilteringHandler creates a handler with filtering capabilities.
func newFilteringHandler(base slog.Handler, cfg *Config) *filteringHandler {
	return &filteringHandler{
		baseHandler: base,
		cfg:         cfg,
	}
}

// Enabled checks if the level is enabled by the base handler.
func (h *filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.baseHandler.Enabled(ctx, level)
}

// Handle applies filtering logic before passing the record to the base handler.
func (h *filteringHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg == nil {
		return h.baseHandler.Handle(ctx, r)
	}

	if debugFilter {
		fmt.Fprintf(os.Stderr, "[FILTER] Message: Level=%s, Msg=%s\n", r.Level, r.Message)
	}

	// --- Extract Source Information ---
	var pkg string
	if r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		frame, _ := frames.Next()
		if frame.File != "" {
			pkg = filepath.Base(filepath.Dir(frame.File))
		}
	}

	// --- Apply Package Filtering ---
	if pkg != "" {
		pkgLower := strings.ToLower(pkg)

		if h.cfg.disabledPackagesSet != nil {
			if _, found := h.cfg.disabledPackagesSet[pkgLower]; found {
				if debugFilter {
					fmt.Fprintf(os.Stderr, "[FILTER] FILTERED OUT: Message from disabled package '%s'\n", pkg)
				}
				return nil
			}
		}
		if h.cfg.enabledPackagesSet != nil {
			if _, found := h.cfg.enabledPackagesSet[pkgLower]; !found {
				if debugFilter {
					fmt.Fprintf(os.Stderr, "[FILTER] FILTERED OUT: Package '%s' not in enabled list\n", pkg)
				}
				return nil
			}
		}
	}

	// --- Apply Tag Filtering ---
	var tagValue string
	var tagFound bool
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == tagKey {
			tagValue = strings.ToLower(a.Value.String())
			tagFound = true
			return false
		}
		return true
	})

	if tagFound {
		if h.cfg.disabledTagsSet != nil {
			if _, found := h.cfg.disabledTagsSet[tagValue]; found {
				if debugFilter {
					fmt.Fprintf(os.Stderr, "[FILTER] FILTERED OUT: Message with disabled tag '%s'\n", tagValue)
				}
				return nil
			}
		}
		if h.cfg.enabledTagsSet != nil {
			if _, found := h.cfg.enabledTagsSet[tagValue]; !found {
				if debugFilter {
					fmt.Fprintf(os.Stderr, "[FILTER] FILTERED OUT: Tag '%s' not in enabled list\n", tagValue)
				}
				return nil
			}
		}
	} else if h.cfg.enabledTagsSet != nil {
		// Filtering for specific tags but this message has none.
		if debugFilter {
			fmt.Fprintln(os.Stderr, "[FILTER] FILTERED OUT: Message has no tag but specific tags are enabled")
		}
		return nil
	}

	return h.baseHandler.Handle(ctx, r)
}

// WithAttrs returns a new handler with attributes added.
func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return newFilteringHandler(h.baseHandler.WithAttrs(attrs), h.cfg)
}

// WithGroup returns a new handler with a group added.
func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return newFilteringHandler(h.baseHandler.WithGroup(name), h.cfg)
}
