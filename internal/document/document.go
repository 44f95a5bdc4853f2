// internal/document/document.go
package document

import "github.com/scribeworks/scribe/internal/types"

// Document is the command surface the host editor exposes to the
// coordination engine. Offsets are rune offsets into the document's flat
// text. The engine only ever reads selection ranges and issues
// replace-range commands; it never mutates content any other way.
type Document interface {
	// Selection returns the current selection. A collapsed range means no
	// selection.
	Selection() types.Range

	// SetSelection updates the selection and notifies observers.
	SetSelection(r types.Range)

	// Text returns the text covered by r, clamped to the document.
	Text(r types.Range) string

	// FullText returns the entire document content.
	FullText() string

	// ReplaceRange deletes the content of r and inserts text at r.From.
	// It returns the cursor position after the inserted text.
	ReplaceRange(r types.Range, text string) (newCursor int, err error)

	// Size returns the document length in runes.
	Size() int

	// OnUpdate registers a callback fired after every content mutation.
	OnUpdate(func())

	// OnSelectionChange registers a callback fired after every selection
	// change.
	OnSelectionChange(func())
}
