// internal/event/event.go
package event

import (
	"github.com/scribeworks/scribe/internal/types"
)

// Type identifies the kind of event.
type Type int

// Define specific event types.
const (
	TypeUnknown Type = iota

	// Raw input events, forwarded by the host frontend.
	TypePointerDown
	TypePointerUp
	TypePointerMove
	TypeTouchStart
	TypeTouchMove
	TypeTouchEnd
	TypeDragStart
	TypeDragEnd

	// Gesture lifecycle, published by the gesture tracker once raw input
	// has been disambiguated and settled.
	TypeGestureStart
	TypeGestureEnd

	// Document events
	TypeSelectionChanged // Host's native selection changed
	TypeDocChanged       // Document content changed (any source)

	// Coordination events
	TypePopupShown
	TypePopupHidden
	TypeHighlightChanged
	TypeActionStarted
	TypeActionCompleted
	TypeActionFailed

	// Application lifecycle
	TypeAppReady
	TypeAppQuit
)

// Event is the structure passed through the event bus.
type Event struct {
	Type Type        // The kind of event
	Data interface{} // Payload carrying event-specific data
}

// Modality identifies which input channel a gesture came from.
type Modality int

const (
	ModalityMouse Modality = iota
	ModalityTouch
	ModalityDrag
)

// String returns a readable name, mostly for logs.
func (m Modality) String() string {
	switch m {
	case ModalityMouse:
		return "mouse"
	case ModalityTouch:
		return "touch"
	case ModalityDrag:
		return "drag"
	}
	return "unknown"
}

// --- Specific Event Data Structures ---

// PointerEventData carries a raw mouse press/release/motion.
// InsidePopup is computed by the host from event-target containment; a
// pointer event aimed at the popup's own controls must not count as a
// document gesture.
type PointerEventData struct {
	Pos         types.Point
	InsidePopup bool
}

// TouchEventData carries a raw touch start/move/end.
type TouchEventData struct {
	Pos         types.Point
	InsidePopup bool
}

// GestureData identifies which modality started or settled.
type GestureData struct {
	Modality Modality
}

// SelectionChangedData carries the new selection, nil when collapsed/absent.
type SelectionChangedData struct {
	Range *types.Range
}

// DocChangedData signals a content mutation.
type DocChangedData struct {
	NewSize int
}

// PopupShownData carries the computed anchor and the selected text.
type PopupShownData struct {
	Anchor types.Point
	Text   string
}

// PopupHiddenData carries the reason the popup went away.
type PopupHiddenData struct {
	Reason string
}

// HighlightChangedData signals that the overlay's set changed.
type HighlightChangedData struct{}

// ActionStartedData identifies an in-flight transformation.
type ActionStartedData struct {
	Kind string
}

// ActionCompletedData carries the outcome of a successful transformation.
type ActionCompletedData struct {
	Kind     string
	NewRange types.Range
	Result   string
}

// ActionFailedData carries the user-visible failure message.
type ActionFailedData struct {
	Kind    string
	Message string
}

// AppReadyData could carry initial state later.
type AppReadyData struct{}

// AppQuitData could carry an exit reason later.
type AppQuitData struct{}
