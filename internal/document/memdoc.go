// internal/document/memdoc.go
package document

import (
	"fmt"
	"sync"

	"github.com/scribeworks/scribe/internal/types"
)

// MemDocument is an in-memory, rune-addressed Document. It backs the demo
// hosts and the tests; a real deployment substitutes the browser editor
// behind the same interface.
type MemDocument struct {
	mu        sync.RWMutex
	content   []rune
	selection types.Range

	onUpdate    []func()
	onSelection []func()
}

// Compile-time check.
var _ Document = (*MemDocument)(nil)

// NewMemDocument creates a document with the given initial content and a
// collapsed selection at offset 0.
func NewMemDocument(text string) *MemDocument {
	return &MemDocument{
		content: []rune(text),
	}
}

// Selection returns the current selection range.
func (d *MemDocument) Selection() types.Range {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.selection
}

// SetSelection updates the selection (clamped) and notifies observers.
func (d *MemDocument) SetSelection(r types.Range) {
	d.mu.Lock()
	d.selection = types.NewRange(r.From, r.To).Clamp(len(d.content))
	callbacks := append([]func()(nil), d.onSelection...)
	d.mu.Unlock()

	// Notify outside the lock; observers read back through the interface.
	for _, cb := range callbacks {
		cb()
	}
}

// Text returns the text covered by r, clamped to the document.
func (d *MemDocument) Text(r types.Range) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r = r.Clamp(len(d.content))
	return string(d.content[r.From:r.To])
}

// FullText returns the entire document content.
func (d *MemDocument) FullText() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return string(d.content)
}

// Size returns the document length in runes.
func (d *MemDocument) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.content)
}

// ReplaceRange deletes the content of r and inserts text at r.From.
// The selection collapses to the end of the inserted text.
func (d *MemDocument) ReplaceRange(r types.Range, text string) (int, error) {
	d.mu.Lock()
	size := len(d.content)
	if r.From < 0 || r.To < r.From || r.To > size {
		d.mu.Unlock()
		return 0, fmt.Errorf("replace range [%d,%d) out of bounds for document of size %d", r.From, r.To, size)
	}

	inserted := []rune(text)
	updated := make([]rune, 0, size-r.Len()+len(inserted))
	updated = append(updated, d.content[:r.From]...)
	updated = append(updated, inserted...)
	updated = append(updated, d.content[r.To:]...)
	d.content = updated

	newCursor := r.From + len(inserted)
	d.selection = types.Range{From: newCursor, To: newCursor}

	updateCbs := append([]func()(nil), d.onUpdate...)
	selectionCbs := append([]func()(nil), d.onSelection...)
	d.mu.Unlock()

	for _, cb := range updateCbs {
		cb()
	}
	for _, cb := range selectionCbs {
		cb()
	}
	return newCursor, nil
}

// Insert inserts text at the given offset, a convenience for typing in the
// demo hosts.
func (d *MemDocument) Insert(at int, text string) (int, error) {
	return d.ReplaceRange(types.Range{From: at, To: at}, text)
}

// Delete removes the content of r.
func (d *MemDocument) Delete(r types.Range) error {
	_, err := d.ReplaceRange(r, "")
	return err
}

// OnUpdate registers a callback fired after every content mutation.
func (d *MemDocument) OnUpdate(cb func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onUpdate = append(d.onUpdate, cb)
}

// OnSelectionChange registers a callback fired after every selection change.
func (d *MemDocument) OnSelectionChange(cb func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onSelection = append(d.onSelection, cb)
}
