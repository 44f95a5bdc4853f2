// internal/types/range.go
package types

// Range is a span of characters in the document's flat addressing space.
// From and To are rune offsets; the range covers [From, To).
// A collapsed range (From == To) means "no selection".
type Range struct {
	From int
	To   int
}

// NewRange returns a normalized range with From <= To.
func NewRange(from, to int) Range {
	if from > to {
		from, to = to, from
	}
	return Range{From: from, To: to}
}

// IsCollapsed reports whether the range selects nothing.
func (r Range) IsCollapsed() bool {
	return r.From >= r.To
}

// Len returns the number of characters the range covers.
func (r Range) Len() int {
	if r.IsCollapsed() {
		return 0
	}
	return r.To - r.From
}

// Valid reports whether the range lies fully within a document of the
// given size and is non-degenerate.
func (r Range) Valid(docSize int) bool {
	return r.From >= 0 && r.From < r.To && r.To <= docSize
}

// Clamp returns the range constrained to [0, docSize].
func (r Range) Clamp(docSize int) Range {
	if r.From < 0 {
		r.From = 0
	}
	if r.To > docSize {
		r.To = docSize
	}
	if r.From > r.To {
		r.From = r.To
	}
	return r
}
