package config

import "time"

// Base application details
const AppName = "scribe"
const ConfigDirName = "scribe"
const DefaultConfigFileName = "config.toml"
const DefaultLogFileName = "scribe.log"

// Timing defaults. Every delay the coordination engine uses is a config
// value, not a scattered literal; these are only the fallbacks.
const (
	// DefaultSettleDelay is the grace period after a selection stabilizes
	// before the popup is shown.
	DefaultSettleDelay = 150 * time.Millisecond

	// DefaultHideGrace tolerates the gap between releasing the mouse over
	// the popup and focus landing inside one of its inputs.
	DefaultHideGrace = 120 * time.Millisecond

	// DefaultGestureSettle bridges the gap between a raw pointer-up and the
	// host finishing its asynchronous selection update.
	DefaultGestureSettle = 80 * time.Millisecond

	// DefaultChangeDebounce is how long the change tracker waits after the
	// last document mutation before evaluating the content delta.
	DefaultChangeDebounce = 700 * time.Millisecond

	// DefaultNoticeDismiss is how long transient status notices stay up.
	DefaultNoticeDismiss = 4 * time.Second

	// DefaultTransformTimeout bounds one transformation round trip.
	DefaultTransformTimeout = 30 * time.Second
)

// Behavior defaults
const (
	// DefaultChangeThreshold is the minimum absolute length delta the change
	// tracker considers a deliberate manual edit.
	DefaultChangeThreshold = 3

	// DefaultTouchDragThreshold is the movement (in cells/DIPs) separating a
	// tap from a drag-selection.
	DefaultTouchDragThreshold = 10

	// DefaultViewportMargin keeps the popup this far inside viewport edges.
	DefaultViewportMargin = 10

	// DefaultWordLimit drives the limit-threshold display in the status bar.
	DefaultWordLimit = 2000

	// DefaultHistorySize bounds the in-memory action history ring.
	DefaultHistorySize = 10
)
