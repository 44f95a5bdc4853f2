// internal/selection/observer.go
package selection

import (
	"sync"

	"github.com/scribeworks/scribe/internal/document"
	"github.com/scribeworks/scribe/internal/event"
	"github.com/scribeworks/scribe/internal/logger"
	"github.com/scribeworks/scribe/internal/types"
)

// GestureState is what the observer needs from the gesture tracker.
type GestureState interface {
	IsActive() bool
}

// Callback receives the normalized selection. nil means collapsed/absent,
// which is a normal outcome, not a failure.
type Callback func(r *types.Range)

// Observer normalizes the host's native selection-change notifications
// into a single logical signal, filtered by in-progress gesture state.
// While a gesture is active the signal is buffered and replayed once the
// gesture settles.
type Observer struct {
	mu        sync.Mutex
	doc       document.Document
	gestures  GestureState
	events    *event.Manager
	callbacks []Callback
	deferred  bool
}

// Config holds dependencies for the Observer.
type Config struct {
	Doc      document.Document
	Gestures GestureState
	Events   *event.Manager
}

// New creates a selection observer.
func New(cfg Config) *Observer {
	if cfg.Doc == nil || cfg.Gestures == nil || cfg.Events == nil {
		panic("selection.New: Missing required dependencies in Config")
	}
	return &Observer{
		doc:      cfg.Doc,
		gestures: cfg.Gestures,
		events:   cfg.Events,
	}
}

// Attach hooks the observer to the document and the gesture lifecycle.
func (o *Observer) Attach() {
	o.doc.OnSelectionChange(o.handleNativeChange)
	o.events.Subscribe(event.TypeGestureEnd, func(e event.Event) bool {
		o.replayDeferred()
		return false
	})
}

// Subscribe registers a callback invoked on every settled selection change.
func (o *Observer) Subscribe(cb Callback) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.callbacks = append(o.callbacks, cb)
}

// handleNativeChange runs on every native selection-changed signal.
func (o *Observer) handleNativeChange() {
	// Check the gesture gate synchronously at decision time, not against
	// any value remembered from when the event was queued.
	if o.gestures.IsActive() {
		o.mu.Lock()
		o.deferred = true
		o.mu.Unlock()
		logger.DebugTagf("selection", "change during active gesture, deferred")
		return
	}
	o.notify()
}

// replayDeferred re-evaluates a selection change that arrived mid-gesture.
func (o *Observer) replayDeferred() {
	o.mu.Lock()
	wasDeferred := o.deferred
	o.deferred = false
	o.mu.Unlock()

	if !wasDeferred {
		return
	}
	if o.gestures.IsActive() {
		// Another gesture began before this one's settle elapsed; keep
		// waiting for its end.
		o.mu.Lock()
		o.deferred = true
		o.mu.Unlock()
		return
	}
	logger.DebugTagf("selection", "replaying deferred selection change")
	o.notify()
}

// notify reads the current selection and fans it out.
func (o *Observer) notify() {
	var r *types.Range
	if sel := o.doc.Selection(); !sel.IsCollapsed() {
		normalized := types.NewRange(sel.From, sel.To)
		r = &normalized
	}

	o.mu.Lock()
	callbacks := append([]Callback(nil), o.callbacks...)
	o.mu.Unlock()

	o.events.Dispatch(event.TypeSelectionChanged, event.SelectionChangedData{Range: r})
	for _, cb := range callbacks {
		cb(r)
	}
}
