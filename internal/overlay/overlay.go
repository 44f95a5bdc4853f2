// internal/overlay/overlay.go
package overlay

import (
	"sync"

	"github.com/google/uuid"
	"github.com/scribeworks/scribe/internal/event"
	"github.com/scribeworks/scribe/internal/logger"
	"github.com/scribeworks/scribe/internal/types"
)

// Style classes for highlight decorations.
const (
	StyleSelection = "selection-highlight" // the current popup-eligible selection
	StylePreview   = "preview-highlight"   // freshly inserted transformation result
)

// Highlight is a non-destructive visual decoration over the character
// range [From, To), independent of document marks/formatting.
type Highlight struct {
	ID    string
	Range types.Range
	Style string
}

// Overlay maintains the set of highlighted ranges. Only the overlay itself
// mutates its internal list; every other component reads through List and
// requests changes through Add/Remove/Replace/Clear.
//
// The overlay does not adjust offsets across document edits. The component
// performing a mutation (typically the action dispatcher) replaces entries
// with corrected offsets; anything left invalid is dropped by Prune.
type Overlay struct {
	mu         sync.RWMutex
	events     *event.Manager
	highlights []Highlight
}

// New creates an empty overlay.
func New(events *event.Manager) *Overlay {
	return &Overlay{events: events}
}

// Add inserts a highlight and returns its ID.
func (o *Overlay) Add(r types.Range, style string) string {
	id := uuid.NewString()
	o.mu.Lock()
	o.highlights = append(o.highlights, Highlight{ID: id, Range: r, Style: style})
	o.mu.Unlock()

	logger.DebugTagf("overlay", "highlight %s added for [%d,%d)", id, r.From, r.To)
	o.notifyChanged()
	return id
}

// Remove deletes the highlight with the given ID. Unknown IDs are ignored.
func (o *Overlay) Remove(id string) {
	o.mu.Lock()
	removed := false
	for i, h := range o.highlights {
		if h.ID == id {
			o.highlights = append(o.highlights[:i], o.highlights[i+1:]...)
			removed = true
			break
		}
	}
	o.mu.Unlock()

	if removed {
		o.notifyChanged()
	}
}

// Replace updates the range of an existing highlight in place, keeping its
// ID and style. Returns false if the ID is unknown.
func (o *Overlay) Replace(id string, r types.Range) bool {
	o.mu.Lock()
	replaced := false
	for i := range o.highlights {
		if o.highlights[i].ID == id {
			o.highlights[i].Range = r
			replaced = true
			break
		}
	}
	o.mu.Unlock()

	if replaced {
		logger.DebugTagf("overlay", "highlight %s moved to [%d,%d)", id, r.From, r.To)
		o.notifyChanged()
	}
	return replaced
}

// Clear removes all highlights.
func (o *Overlay) Clear() {
	o.mu.Lock()
	hadAny := len(o.highlights) > 0
	o.highlights = o.highlights[:0]
	o.mu.Unlock()

	if hadAny {
		logger.DebugTagf("overlay", "cleared")
		o.notifyChanged()
	}
}

// List returns a snapshot of the current highlights.
func (o *Overlay) List() []Highlight {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Highlight, len(o.highlights))
	copy(out, o.highlights)
	return out
}

// Get returns the highlight with the given ID.
func (o *Overlay) Get(id string) (Highlight, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, h := range o.highlights {
		if h.ID == id {
			return h, true
		}
	}
	return Highlight{}, false
}

// Prune drops highlights whose range became degenerate or out-of-bounds
// after an external edit. A highlight must never be drawn with invalid
// bounds. Returns true if anything was dropped.
func (o *Overlay) Prune(docSize int) bool {
	o.mu.Lock()
	kept := o.highlights[:0]
	dropped := 0
	for _, h := range o.highlights {
		if h.Range.Valid(docSize) {
			kept = append(kept, h)
		} else {
			dropped++
		}
	}
	o.highlights = kept
	o.mu.Unlock()

	if dropped > 0 {
		logger.DebugTagf("overlay", "pruned %d invalid highlight(s) against doc size %d", dropped, docSize)
		o.notifyChanged()
		return true
	}
	return false
}

func (o *Overlay) notifyChanged() {
	if o.events != nil {
		o.events.Dispatch(event.TypeHighlightChanged, event.HighlightChangedData{})
	}
}
