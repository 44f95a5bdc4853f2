// internal/gesture/tracker.go
package gesture

import (
	"sync"
	"time"

	"github.com/scribeworks/scribe/internal/event"
	"github.com/scribeworks/scribe/internal/logger"
	"github.com/scribeworks/scribe/internal/types"
)

// modalityState tracks one input channel's gesture lifecycle.
type modalityState struct {
	active    bool
	startedAt time.Time
	start     types.Point

	// pending is a touch-down that hasn't crossed the drag threshold yet;
	// a tap never becomes a gesture.
	pending bool

	// seq invalidates stale settle timers: a timer only ends the gesture
	// if no newer down/up superseded it.
	seq int
}

// Tracker owns the gesture state for every input modality. The raw "up"
// event does not end a gesture immediately: the host may still be mutating
// the selection asynchronously after release, so a settle delay runs first
// and IsActive() reports true until it elapses.
type Tracker struct {
	mu     sync.Mutex
	events *event.Manager

	settleDelay   time.Duration
	dragThreshold int

	states map[event.Modality]*modalityState
}

// Config holds dependencies for the Tracker.
type Config struct {
	Events        *event.Manager
	SettleDelay   time.Duration
	DragThreshold int
}

// New creates a gesture tracker.
func New(cfg Config) *Tracker {
	if cfg.Events == nil {
		panic("gesture.New: Missing event manager in Config")
	}
	t := &Tracker{
		events:        cfg.Events,
		settleDelay:   cfg.SettleDelay,
		dragThreshold: cfg.DragThreshold,
		states: map[event.Modality]*modalityState{
			event.ModalityMouse: {},
			event.ModalityTouch: {},
			event.ModalityDrag:  {},
		},
	}
	return t
}

// Attach subscribes the tracker to the raw input events on the bus.
func (t *Tracker) Attach() {
	t.events.Subscribe(event.TypePointerDown, func(e event.Event) bool {
		if data, ok := e.Data.(event.PointerEventData); ok {
			t.PointerDown(data)
		}
		return false
	})
	t.events.Subscribe(event.TypePointerUp, func(e event.Event) bool {
		if data, ok := e.Data.(event.PointerEventData); ok {
			t.PointerUp(data)
		}
		return false
	})
	t.events.Subscribe(event.TypeTouchStart, func(e event.Event) bool {
		if data, ok := e.Data.(event.TouchEventData); ok {
			t.TouchStart(data)
		}
		return false
	})
	t.events.Subscribe(event.TypeTouchMove, func(e event.Event) bool {
		if data, ok := e.Data.(event.TouchEventData); ok {
			t.TouchMove(data)
		}
		return false
	})
	t.events.Subscribe(event.TypeTouchEnd, func(e event.Event) bool {
		if data, ok := e.Data.(event.TouchEventData); ok {
			t.TouchEnd(data)
		}
		return false
	})
	t.events.Subscribe(event.TypeDragStart, func(e event.Event) bool {
		t.DragStart()
		return false
	})
	t.events.Subscribe(event.TypeDragEnd, func(e event.Event) bool {
		t.DragEnd()
		return false
	})
}

// IsActive reports whether any modality currently has an unsettled gesture.
// Downstream selection decisions must call this synchronously at decision
// time; there is no ordering guarantee between gesture-end and
// selection-changed events.
func (t *Tracker) IsActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, st := range t.states {
		if st.active {
			return true
		}
	}
	return false
}

// PointerDown begins a mouse gesture. Events targeting the popup's own
// controls are short-circuited and never touch document gesture state.
func (t *Tracker) PointerDown(data event.PointerEventData) {
	if data.InsidePopup {
		logger.DebugTagf("gesture", "pointer down inside popup, ignored")
		return
	}
	t.begin(event.ModalityMouse, data.Pos)
}

// PointerUp schedules the end of the mouse gesture after the settle delay.
func (t *Tracker) PointerUp(data event.PointerEventData) {
	// A release over the popup still ends a gesture that started on the
	// document; only starts are popup-filtered.
	t.scheduleEnd(event.ModalityMouse)
}

// TouchStart records a touch that may become a drag-selection gesture.
func (t *Tracker) TouchStart(data event.TouchEventData) {
	if data.InsidePopup {
		logger.DebugTagf("gesture", "touch start inside popup, ignored")
		return
	}
	t.mu.Lock()
	st := t.states[event.ModalityTouch]
	st.seq++
	st.pending = true
	st.start = data.Pos
	st.startedAt = time.Now()
	t.mu.Unlock()
}

// TouchMove promotes a pending touch to an active gesture once movement
// crosses the drag threshold; a tap never does.
func (t *Tracker) TouchMove(data event.TouchEventData) {
	t.mu.Lock()
	st := t.states[event.ModalityTouch]
	if !st.pending || st.active {
		t.mu.Unlock()
		return
	}
	if chebyshev(st.start, data.Pos) < t.dragThreshold {
		t.mu.Unlock()
		return
	}
	st.active = true
	t.mu.Unlock()

	logger.DebugTagf("gesture", "touch crossed drag threshold, gesture started")
	t.events.Dispatch(event.TypeGestureStart, event.GestureData{Modality: event.ModalityTouch})
}

// TouchEnd finishes a touch. An active gesture ends after the settle delay;
// a tap just clears the pending state.
func (t *Tracker) TouchEnd(data event.TouchEventData) {
	t.mu.Lock()
	st := t.states[event.ModalityTouch]
	st.pending = false
	active := st.active
	t.mu.Unlock()

	if active {
		t.scheduleEnd(event.ModalityTouch)
	}
}

// DragStart begins a native drag-and-drop text move.
func (t *Tracker) DragStart() {
	t.begin(event.ModalityDrag, types.Point{})
}

// DragEnd schedules the end of the drag gesture.
func (t *Tracker) DragEnd() {
	t.scheduleEnd(event.ModalityDrag)
}

// begin marks a modality active and announces the gesture start.
func (t *Tracker) begin(m event.Modality, pos types.Point) {
	t.mu.Lock()
	st := t.states[m]
	st.seq++ // invalidate any settle timer still in flight
	wasActive := st.active
	st.active = true
	st.startedAt = time.Now()
	st.start = pos
	t.mu.Unlock()

	if !wasActive {
		logger.DebugTagf("gesture", "%s gesture started", m)
		t.events.Dispatch(event.TypeGestureStart, event.GestureData{Modality: m})
	}
}

// scheduleEnd runs the settle delay before declaring the gesture over.
// The timer re-validates at fire time: if a new down superseded it, the
// fire is a no-op.
func (t *Tracker) scheduleEnd(m event.Modality) {
	t.mu.Lock()
	st := t.states[m]
	if !st.active {
		t.mu.Unlock()
		return
	}
	st.seq++
	seq := st.seq
	t.mu.Unlock()

	time.AfterFunc(t.settleDelay, func() {
		t.mu.Lock()
		st := t.states[m]
		if st.seq != seq || !st.active {
			// Superseded by a newer gesture; stale timers are a normal
			// race outcome, not an error.
			t.mu.Unlock()
			return
		}
		st.active = false
		st.pending = false
		t.mu.Unlock()

		logger.DebugTagf("gesture", "%s gesture settled", m)
		t.events.Dispatch(event.TypeGestureEnd, event.GestureData{Modality: m})
	})
}

// chebyshev is the movement metric used for the tap/drag threshold.
func chebyshev(a, b types.Point) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}
