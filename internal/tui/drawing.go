// internal/tui/drawing.go
package tui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/scribeworks/scribe/internal/overlay"
	"github.com/scribeworks/scribe/internal/transform"
	"github.com/scribeworks/scribe/internal/types"
)

// --- Styles ---

var (
	styleDefault   = tcell.StyleDefault.Background(tcell.ColorReset).Foreground(tcell.ColorReset)
	styleSelection = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
	stylePreview   = tcell.StyleDefault.Background(tcell.ColorDarkGreen).Foreground(tcell.ColorWhite)
	stylePopup     = tcell.StyleDefault.Background(tcell.ColorDarkSlateGray).Foreground(tcell.ColorWhite)
	styleButton    = tcell.StyleDefault.Background(tcell.ColorDarkSlateGray).Foreground(tcell.ColorAqua).Bold(true)
	styleNotice    = tcell.StyleDefault.Background(tcell.ColorDarkSlateGray).Foreground(tcell.ColorOrange).Bold(true)
)

// Popup box dimensions. One row per action, plus snippet, instructions and
// notice rows.
const (
	popupWidth  = 34
	popupHeight = 7
)

// --- Text layout ---

// layout maps rune offsets to screen cells for a soft-wrapped monospace
// rendering of the document. It is rebuilt on every draw and doubles as
// the geometry source for popup anchoring and mouse hit-testing.
type layout struct {
	origin types.Point
	width  int
	height int
	pos    []types.Point // rune offset -> cell; len(text)+1 entries
}

// buildLayout computes cell positions for every rune offset, wrapping at
// the given width. Newlines force a new row.
func buildLayout(text string, origin types.Point, width, height int) *layout {
	if width < 1 {
		width = 1
	}
	l := &layout{origin: origin, width: width, height: height}

	x, y := 0, 0
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		runes := gr.Runes()
		w := gr.Width()
		if w < 1 {
			w = 1
		}
		if len(runes) == 1 && runes[0] == '\n' {
			for range runes {
				l.pos = append(l.pos, types.Point{X: origin.X + x, Y: origin.Y + y})
			}
			x = 0
			y++
			continue
		}
		if x+w > width {
			x = 0
			y++
		}
		for range runes {
			l.pos = append(l.pos, types.Point{X: origin.X + x, Y: origin.Y + y})
		}
		x += w
	}
	l.pos = append(l.pos, types.Point{X: origin.X + x, Y: origin.Y + y})
	return l
}

// point returns the cell for a rune offset, clamped.
func (l *layout) point(offset int) types.Point {
	if len(l.pos) == 0 {
		return l.origin
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(l.pos) {
		offset = len(l.pos) - 1
	}
	return l.pos[offset]
}

// offsetAt returns the rune offset closest to a screen cell, used for
// mouse hit-testing. Cells past the end of a row map to the row's end.
func (l *layout) offsetAt(p types.Point) int {
	best := len(l.pos) - 1
	if best < 0 {
		return 0
	}
	bestDist := -1
	for i, cell := range l.pos {
		if cell.Y != p.Y {
			continue
		}
		d := cell.X - p.X
		if d < 0 {
			d = -d
		}
		if bestDist == -1 || d < bestDist {
			bestDist = d
			best = i
		}
	}
	if bestDist == -1 {
		// No cell on that row; clamp to start or end of text.
		if len(l.pos) > 0 && p.Y < l.pos[0].Y {
			return 0
		}
		return len(l.pos) - 1
	}
	return best
}

// rangeRect returns the bounding rectangle of a range's cells.
func (l *layout) rangeRect(r types.Range) (types.Rect, bool) {
	if r.IsCollapsed() || r.From >= len(l.pos) {
		return types.Rect{}, false
	}
	to := r.To
	if to >= len(l.pos) {
		to = len(l.pos) - 1
	}
	minX, minY := l.pos[r.From].X, l.pos[r.From].Y
	maxX, maxY := minX, minY
	for i := r.From; i <= to && i < len(l.pos); i++ {
		p := l.pos[i]
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return types.Rect{X: minX, Y: minY, W: maxX - minX + 1, H: maxY - minY + 1}, true
}

// --- Drawing ---

// drawText renders a string at a position with a style, clipped to maxW.
func drawText(screen tcell.Screen, x, y, maxW int, style tcell.Style, text string) {
	cx := x
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		w := gr.Width()
		if cx+w > x+maxW {
			break
		}
		runes := gr.Runes()
		if len(runes) > 0 {
			var comb []rune
			if len(runes) > 1 {
				comb = runes[1:]
			}
			screen.SetContent(cx, y, runes[0], comb, style)
		}
		cx += w
	}
}

// DrawDocument renders the document text through the layout, applying
// highlight styles per rune offset.
func DrawDocument(tuiManager *TUI, lay *layout, text string, highlights []overlay.Highlight) {
	screen := tuiManager.GetScreen()

	styleFor := func(offset int) tcell.Style {
		for _, h := range highlights {
			if offset >= h.Range.From && offset < h.Range.To {
				if h.Style == overlay.StylePreview {
					return stylePreview
				}
				return styleSelection
			}
		}
		return styleDefault
	}

	offset := 0
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		runes := gr.Runes()
		if !(len(runes) == 1 && runes[0] == '\n') {
			p := lay.point(offset)
			var comb []rune
			if len(runes) > 1 {
				comb = runes[1:]
			}
			screen.SetContent(p.X, p.Y, runes[0], comb, styleFor(offset))
		}
		offset += len(runes)
	}
}

// DrawCursor places the terminal cursor at the selection focus.
func DrawCursor(tuiManager *TUI, lay *layout, sel types.Range) {
	p := lay.point(sel.To)
	tuiManager.GetScreen().ShowCursor(p.X, p.Y)
}

// popupContent is everything the popup box renders.
type popupContent struct {
	Snippet      string
	Instructions string
	Notice       string
	Loading      bool
	Interacting  bool
}

// DrawPopup renders the floating action box at the given rectangle.
func DrawPopup(tuiManager *TUI, rect types.Rect, content popupContent) {
	screen := tuiManager.GetScreen()

	for y := rect.Y; y < rect.Bottom(); y++ {
		for x := rect.X; x < rect.Right(); x++ {
			screen.SetContent(x, y, ' ', nil, stylePopup)
		}
	}

	inner := rect.W - 2
	row := rect.Y
	snippet := content.Snippet
	if content.Loading {
		snippet = "working..."
	}
	drawText(screen, rect.X+1, row, inner, stylePopup.Bold(true), snippet)
	row++

	for i, kind := range transform.Kinds() {
		label := fmt.Sprintf("[%d] %s", i+1, kind)
		drawText(screen, rect.X+1, row, inner, styleButton, label)
		row++
	}

	prompt := "> " + content.Instructions
	if content.Interacting {
		prompt += "_"
	}
	drawText(screen, rect.X+1, row, inner, stylePopup, prompt)
	row++

	if content.Notice != "" {
		drawText(screen, rect.X+1, row, inner, styleNotice, content.Notice)
	} else {
		drawText(screen, rect.X+1, row, inner, stylePopup.Dim(true), "Esc close  Ctrl+Y copy")
	}
}

// popupRect converts the coordinator's anchor to the box rectangle.
func popupRect(anchor types.Point) types.Rect {
	return types.Rect{X: anchor.X, Y: anchor.Y, W: popupWidth, H: popupHeight}
}

// buttonAt maps a click inside the popup to an action kind. Row 0 is the
// snippet; rows 1..len(kinds) are the action buttons.
func buttonAt(rect types.Rect, p types.Point) (transform.Kind, bool) {
	if !rect.Contains(p) {
		return "", false
	}
	row := p.Y - rect.Y
	kinds := transform.Kinds()
	if row >= 1 && row <= len(kinds) {
		return kinds[row-1], true
	}
	return "", false
}

// instructionsRowAt reports whether the click landed on the instructions
// input row.
func instructionsRowAt(rect types.Rect, p types.Point) bool {
	if !rect.Contains(p) {
		return false
	}
	return p.Y-rect.Y == 1+len(transform.Kinds())
}
