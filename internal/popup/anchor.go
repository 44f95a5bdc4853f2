// internal/popup/anchor.go
package popup

import (
	"github.com/scribeworks/scribe/internal/logger"
	"github.com/scribeworks/scribe/internal/types"
)

// Geometry is what the coordinator needs from the host to place the popup.
// Hosts report screen-space rectangles; the engine never measures anything
// itself.
type Geometry interface {
	// SelectionRect returns the bounding rectangle of the current
	// selection. ok is false when no usable rectangle is available.
	SelectionRect() (r types.Rect, ok bool)

	// ContainerRect returns the editor container's bounding rectangle,
	// used as the fallback anchor origin.
	ContainerRect() types.Rect

	// ViewportSize returns the visible width and height.
	ViewportSize() (w, h int)

	// PopupSize returns the popup box dimensions the host will draw.
	PopupSize() (w, h int)
}

// fallbackOffset places the fallback anchor just inside the container.
const fallbackOffset = 2

// computeAnchor picks the popup's top-left corner: below the selection
// rectangle if vertical space permits, else above, else on the side with
// the most horizontal room, finally clamped fully inside the viewport with
// the configured margin. A degenerate or missing rectangle degrades to a
// fixed offset from the container; a panicking host measurement is logged
// and degrades the same way. Positioning can never fail to produce an
// anchor.
func computeAnchor(geo Geometry, margin int) (anchor types.Point) {
	vw, vh := 0, 0
	pw, ph := 0, 0

	defer func() {
		if rec := recover(); rec != nil {
			logger.Warnf("Popup: anchor computation panicked (%v), using fallback anchor", rec)
			anchor = fallbackAnchor(geo, margin, vw, vh, pw, ph)
		}
	}()

	vw, vh = geo.ViewportSize()
	pw, ph = geo.PopupSize()

	rect, ok := geo.SelectionRect()
	if !ok || rect.IsDegenerate() {
		logger.DebugTagf("popup", "selection rect unavailable/degenerate, using fallback anchor")
		return fallbackAnchor(geo, margin, vw, vh, pw, ph)
	}

	switch {
	case rect.Bottom()+ph+margin <= vh:
		// Below the selection.
		anchor = types.Point{X: rect.X, Y: rect.Bottom() + 1}
	case rect.Y-ph-margin >= 0:
		// Above the selection.
		anchor = types.Point{X: rect.X, Y: rect.Y - ph - 1}
	default:
		// Side with the most horizontal room.
		roomLeft := rect.X
		roomRight := vw - rect.Right()
		if roomRight >= roomLeft {
			anchor = types.Point{X: rect.Right() + 1, Y: rect.Y}
		} else {
			anchor = types.Point{X: rect.X - pw - 1, Y: rect.Y}
		}
	}

	return clampAnchor(anchor, vw, vh, pw, ph, margin)
}

// fallbackAnchor derives a position from the container's own bounding box.
func fallbackAnchor(geo Geometry, margin, vw, vh, pw, ph int) types.Point {
	container := geo.ContainerRect()
	p := types.Point{X: container.X + fallbackOffset, Y: container.Y + fallbackOffset}
	if vw > 0 && vh > 0 {
		p = clampAnchor(p, vw, vh, pw, ph, margin)
	}
	return p
}

// clampAnchor keeps the whole popup box inside the viewport with a margin
// on all sides.
func clampAnchor(p types.Point, vw, vh, pw, ph, margin int) types.Point {
	maxX := vw - pw - margin
	maxY := vh - ph - margin
	if p.X > maxX {
		p.X = maxX
	}
	if p.Y > maxY {
		p.Y = maxY
	}
	if p.X < margin {
		p.X = margin
	}
	if p.Y < margin {
		p.Y = margin
	}
	return p
}
