// internal/popup/coordinator.go
package popup

import (
	"sync"
	"time"

	"github.com/scribeworks/scribe/internal/document"
	"github.com/scribeworks/scribe/internal/event"
	"github.com/scribeworks/scribe/internal/logger"
	"github.com/scribeworks/scribe/internal/overlay"
	"github.com/scribeworks/scribe/internal/types"
)

// State is the coordinator's visibility state.
type State int

const (
	StateHidden State = iota
	StatePending
	StateVisible
	StateSuppressed // visible, user interacting with popup-internal controls
)

// String returns a readable name, mostly for logs.
func (s State) String() string {
	switch s {
	case StateHidden:
		return "hidden"
	case StatePending:
		return "pending"
	case StateVisible:
		return "visible"
	case StateSuppressed:
		return "suppressed"
	}
	return "unknown"
}

// GestureState is what the coordinator needs from the gesture tracker.
type GestureState interface {
	IsActive() bool
}

// Coordinator is the central state machine. It consumes selection and
// gesture signals, decides popup visibility, computes the anchor, and owns
// the suppression logic for popup-internal interactions.
//
// Every timer-driven transition re-validates its preconditions at fire
// time; a stale timer firing after the world moved on is a no-op.
type Coordinator struct {
	mu sync.Mutex

	doc      document.Document
	events   *event.Manager
	gestures GestureState
	overlay  *overlay.Overlay
	geo      Geometry
	sched    *scheduler

	settleDelay time.Duration
	hideGrace   time.Duration
	noticeDelay time.Duration
	margin      int

	state       State
	anchor      types.Point
	text        string
	highlightID string
	notice      string

	// programmaticEdit is set by the action dispatcher around its own
	// document mutations so the resulting selection collapse and content
	// change are not treated as reasons to hide.
	programmaticEdit bool
}

// Config holds dependencies for the Coordinator.
type Config struct {
	Doc         document.Document
	Events      *event.Manager
	Gestures    GestureState
	Overlay     *overlay.Overlay
	Geometry    Geometry
	SettleDelay time.Duration
	HideGrace   time.Duration
	NoticeDelay time.Duration
	Margin      int
}

// New creates a popup coordinator in StateHidden.
func New(cfg Config) *Coordinator {
	if cfg.Doc == nil || cfg.Events == nil || cfg.Gestures == nil || cfg.Overlay == nil {
		panic("popup.New: Missing required dependencies in Config")
	}
	return &Coordinator{
		doc:         cfg.Doc,
		events:      cfg.Events,
		gestures:    cfg.Gestures,
		overlay:     cfg.Overlay,
		geo:         cfg.Geometry,
		sched:       newScheduler(),
		settleDelay: cfg.SettleDelay,
		hideGrace:   cfg.HideGrace,
		noticeDelay: cfg.NoticeDelay,
		margin:      cfg.Margin,
		state:       StateHidden,
	}
}

// SetGeometry attaches (or replaces) the host geometry provider.
func (c *Coordinator) SetGeometry(geo Geometry) {
	c.mu.Lock()
	c.geo = geo
	c.mu.Unlock()
}

// State returns the current visibility state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Visible reports whether the popup is currently drawn (visible or
// suppressed-by-interaction).
func (c *Coordinator) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateVisible || c.state == StateSuppressed
}

// Anchor returns the computed popup anchor.
func (c *Coordinator) Anchor() types.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.anchor
}

// SelectedText returns the text the popup is anchored to.
func (c *Coordinator) SelectedText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Notice returns the current inline notice (e.g. a transformation error).
func (c *Coordinator) Notice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notice
}

// CurrentHighlight returns the ID of the popup's selection highlight.
func (c *Coordinator) CurrentHighlight() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.highlightID, c.highlightID != ""
}

// HandleSelection is the selection observer's callback. nil means the
// selection collapsed or vanished.
func (c *Coordinator) HandleSelection(r *types.Range) {
	if r == nil {
		c.handleCollapsed()
		return
	}

	// Re-check the gesture gate here rather than trusting the caller:
	// there is no ordering guarantee between gesture-end and
	// selection-changed events.
	if c.gestures.IsActive() {
		logger.DebugTagf("popup", "selection signal during active gesture, ignored")
		return
	}

	c.mu.Lock()
	if c.state == StateSuppressed || c.programmaticEdit {
		// Outer selection state is irrelevant while the user works inside
		// the popup or while the dispatcher rewrites the document.
		c.mu.Unlock()
		return
	}
	c.sched.Cancel(purposeHideGrace)
	prev := c.state
	if c.state != StateVisible {
		// An already-visible popup stays up while the settle timer runs;
		// it re-anchors instead of flickering through hidden.
		c.state = StatePending
	}
	c.mu.Unlock()

	logger.DebugTagf("popup", "%s: settle timer %v", prev, c.settleDelay)

	// A new pending timer replaces any previous one; at most one settle
	// timer is ever in flight.
	c.sched.Schedule(purposeSettle, c.settleDelay, c.settleFired)
}

// handleCollapsed reacts to the selection collapsing.
func (c *Coordinator) handleCollapsed() {
	c.mu.Lock()
	switch c.state {
	case StatePending:
		c.sched.Cancel(purposeSettle)
		c.state = StateHidden
		c.mu.Unlock()
		logger.DebugTagf("popup", "pending -> hidden (selection collapsed)")
		return
	case StateSuppressed:
		// Popup-internal interaction in progress; outer selection state
		// is irrelevant until it ends.
		c.mu.Unlock()
		return
	case StateVisible:
		if c.programmaticEdit {
			// Collapse caused by our own replacement; the dispatcher will
			// restore the selection.
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		// Tolerate the moment between releasing the mouse over the popup
		// and focus landing inside one of its inputs.
		c.sched.Schedule(purposeHideGrace, c.hideGrace, c.hideGraceFired)
		return
	default:
		c.mu.Unlock()
	}
}

// settleFired runs when the settle delay elapses. All preconditions are
// re-validated; the world may have moved on since scheduling.
func (c *Coordinator) settleFired() {
	c.mu.Lock()
	st := c.state
	if st != StatePending && st != StateVisible {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	sel := c.doc.Selection()
	if sel.IsCollapsed() {
		if st == StateVisible {
			c.hide("selection collapsed")
			return
		}
		c.mu.Lock()
		if c.state == StatePending {
			c.state = StateHidden
		}
		c.mu.Unlock()
		logger.DebugTagf("popup", "settle fired but selection collapsed, staying hidden")
		return
	}
	if c.gestures.IsActive() {
		if st == StateVisible {
			// Keep the popup up; the gesture's own end will re-evaluate.
			return
		}
		c.mu.Lock()
		if c.state == StatePending {
			c.state = StateHidden
		}
		c.mu.Unlock()
		logger.DebugTagf("popup", "settle fired during new gesture, staying hidden")
		return
	}

	c.show(types.NewRange(sel.From, sel.To))
}

// hideGraceFired runs when the hide grace period elapses.
func (c *Coordinator) hideGraceFired() {
	c.mu.Lock()
	if c.state != StateVisible {
		// Interaction started or popup already gone; stale fire.
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if !c.doc.Selection().IsCollapsed() {
		// Selection came back before the grace elapsed.
		return
	}
	c.hide("selection collapsed")
}

// show makes the popup visible anchored to the given selection, replacing
// the current highlight.
func (c *Coordinator) show(sel types.Range) {
	text := c.doc.Text(sel)

	c.mu.Lock()
	geo := c.geo
	margin := c.margin
	c.mu.Unlock()

	anchor := types.Point{}
	if geo != nil {
		anchor = computeAnchor(geo, margin)
	}

	// Single current-selection highlight: clear before add.
	c.overlay.Clear()
	id := c.overlay.Add(sel, overlay.StyleSelection)

	c.mu.Lock()
	c.state = StateVisible
	c.anchor = anchor
	c.text = text
	c.highlightID = id
	c.mu.Unlock()

	logger.DebugTagf("popup", "visible at (%d,%d) for [%d,%d)", anchor.X, anchor.Y, sel.From, sel.To)
	c.events.Dispatch(event.TypePopupShown, event.PopupShownData{Anchor: anchor, Text: text})
}

// hide returns to StateHidden and clears the highlight.
func (c *Coordinator) hide(reason string) {
	c.mu.Lock()
	if c.state == StateHidden {
		c.mu.Unlock()
		return
	}
	c.sched.Cancel(purposeSettle)
	c.sched.Cancel(purposeHideGrace)
	c.state = StateHidden
	c.highlightID = ""
	c.text = ""
	c.notice = ""
	c.mu.Unlock()

	c.overlay.Clear()
	logger.DebugTagf("popup", "hidden (%s)", reason)
	c.events.Dispatch(event.TypePopupHidden, event.PopupHiddenData{Reason: reason})
}

// ForceShow shows the popup immediately for the current selection,
// bypassing the settle timer and the gesture gate. Programmatic selections
// never satisfy the gesture-based pending gate, so a keyboard shortcut
// needs this path.
func (c *Coordinator) ForceShow() {
	sel := c.doc.Selection()
	if sel.IsCollapsed() {
		logger.DebugTagf("popup", "force show ignored, no selection")
		return
	}
	c.sched.Cancel(purposeSettle)
	c.sched.Cancel(purposeHideGrace)
	c.show(types.NewRange(sel.From, sel.To))
}

// Cancel hides the popup explicitly (Escape).
func (c *Coordinator) Cancel() {
	c.hide("cancelled")
}

// Complete hides the popup after an explicit multi-step completion signal.
func (c *Coordinator) Complete() {
	c.hide("completed")
}

// InteractionStart marks the beginning of a popup-internal interaction
// (click or focus inside the popup's own controls). Detected purely by
// event-target containment, never by selection state.
func (c *Coordinator) InteractionStart() {
	c.sched.Cancel(purposeHideGrace)
	c.mu.Lock()
	if c.state == StateVisible {
		c.state = StateSuppressed
		logger.DebugTagf("popup", "visible -> suppressed (popup-internal interaction)")
	}
	c.mu.Unlock()
}

// InteractionEnd marks the end of a popup-internal interaction.
func (c *Coordinator) InteractionEnd() {
	c.mu.Lock()
	if c.state == StateSuppressed {
		c.state = StateVisible
		logger.DebugTagf("popup", "suppressed -> visible")
	}
	c.mu.Unlock()
}

// Interacting reports whether a popup-internal interaction is in progress.
func (c *Coordinator) Interacting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateSuppressed
}

// HandleDocChanged revalidates the stored highlight against the document
// after any content mutation. A highlight that became invalid hides the
// popup; the overlay must never draw invalid bounds.
func (c *Coordinator) HandleDocChanged() {
	c.mu.Lock()
	if c.programmaticEdit {
		// The dispatcher is mid-replacement and will re-anchor the
		// highlight itself.
		c.mu.Unlock()
		return
	}
	drawn := c.state == StateVisible || c.state == StateSuppressed
	c.mu.Unlock()

	if c.overlay.Prune(c.doc.Size()) && drawn {
		c.hide("highlight invalidated by edit")
	}
}

// BeginProgrammaticEdit suppresses collapse/invalidation reactions while
// the action dispatcher mutates the document.
func (c *Coordinator) BeginProgrammaticEdit() {
	c.mu.Lock()
	c.programmaticEdit = true
	c.mu.Unlock()
}

// EndProgrammaticEdit lifts the suppression.
func (c *Coordinator) EndProgrammaticEdit() {
	c.mu.Lock()
	c.programmaticEdit = false
	c.mu.Unlock()
}

// RefreshAfterAction re-reads the selection, re-anchors, and updates the
// displayed text after a successful transformation. The popup stays open
// so the user can immediately retry or chain another action.
func (c *Coordinator) RefreshAfterAction(newRange types.Range) {
	text := c.doc.Text(newRange)

	c.mu.Lock()
	geo := c.geo
	margin := c.margin
	visible := c.state == StateVisible || c.state == StateSuppressed
	c.mu.Unlock()

	if !visible {
		return
	}

	anchor := types.Point{}
	if geo != nil {
		anchor = computeAnchor(geo, margin)
	}

	c.mu.Lock()
	c.anchor = anchor
	c.text = text
	c.notice = ""
	c.mu.Unlock()
}

// ShowNotice displays an inline message in the popup (e.g. a
// transformation failure), auto-dismissed after the notice delay.
func (c *Coordinator) ShowNotice(msg string) {
	c.mu.Lock()
	c.notice = msg
	c.mu.Unlock()

	c.sched.Schedule(purposeNotice, c.noticeDelay, func() {
		c.mu.Lock()
		if c.notice == msg {
			c.notice = ""
		}
		c.mu.Unlock()
	})
}

// Shutdown cancels all pending timers.
func (c *Coordinator) Shutdown() {
	c.sched.CancelAll()
}
