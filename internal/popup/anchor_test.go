package popup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scribeworks/scribe/internal/types"
)

type anchorGeo struct {
	selection types.Rect
	selOK     bool
	container types.Rect
	vw, vh    int
	pw, ph    int
	panics    bool
}

func (g *anchorGeo) SelectionRect() (types.Rect, bool) {
	if g.panics {
		panic("host measurement exploded")
	}
	return g.selection, g.selOK
}
func (g *anchorGeo) ContainerRect() types.Rect { return g.container }
func (g *anchorGeo) ViewportSize() (int, int)  { return g.vw, g.vh }
func (g *anchorGeo) PopupSize() (int, int)     { return g.pw, g.ph }

func baseGeo() *anchorGeo {
	return &anchorGeo{
		selection: types.Rect{X: 50, Y: 20, W: 60, H: 10},
		selOK:     true,
		container: types.Rect{X: 10, Y: 5, W: 180, H: 90},
		vw:        200, vh: 100,
		pw: 30, ph: 8,
	}
}

func TestAnchorPrefersBelowSelection(t *testing.T) {
	geo := baseGeo()
	p := computeAnchor(geo, 4)
	assert.Equal(t, types.Point{X: 50, Y: 31}, p)
}

func TestAnchorFlipsAboveWhenNoRoomBelow(t *testing.T) {
	geo := baseGeo()
	geo.selection.Y = 85 // bottom at 95, popup would overflow vh=100
	p := computeAnchor(geo, 4)
	assert.Equal(t, types.Point{X: 50, Y: 85 - 8 - 1}, p)
}

func TestAnchorFallsBackToSideWithMostRoom(t *testing.T) {
	geo := baseGeo()
	// Tall selection: no room below or above.
	geo.selection = types.Rect{X: 20, Y: 5, W: 40, H: 90}
	p := computeAnchor(geo, 4)
	// More room to the right of x=60 than to the left of x=20.
	assert.Equal(t, 61, p.X)
	assert.Equal(t, 5, p.Y)
}

func TestAnchorClampedInsideViewport(t *testing.T) {
	geo := baseGeo()
	geo.selection = types.Rect{X: 190, Y: 88, W: 8, H: 4}
	p := computeAnchor(geo, 4)
	assert.LessOrEqual(t, p.X, geo.vw-geo.pw-4)
	assert.LessOrEqual(t, p.Y, geo.vh-geo.ph-4)
	assert.GreaterOrEqual(t, p.X, 4)
	assert.GreaterOrEqual(t, p.Y, 4)
}

func TestAnchorDegenerateRectUsesFallback(t *testing.T) {
	geo := baseGeo()
	geo.selection = types.Rect{X: 50, Y: 20, W: 0, H: 0}
	p := computeAnchor(geo, 4)
	assert.Equal(t, types.Point{X: geo.container.X + fallbackOffset, Y: geo.container.Y + fallbackOffset}, p)
}

func TestAnchorMissingRectUsesFallback(t *testing.T) {
	geo := baseGeo()
	geo.selOK = false
	p := computeAnchor(geo, 4)
	assert.Equal(t, types.Point{X: 12, Y: 7}, p)
}

func TestAnchorSurvivesPanickingHost(t *testing.T) {
	geo := baseGeo()
	geo.panics = true
	assert.NotPanics(t, func() {
		p := computeAnchor(geo, 4)
		assert.GreaterOrEqual(t, p.X, 0)
		assert.GreaterOrEqual(t, p.Y, 0)
	})
}
