package popup

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribeworks/scribe/internal/document"
	"github.com/scribeworks/scribe/internal/event"
	"github.com/scribeworks/scribe/internal/overlay"
	"github.com/scribeworks/scribe/internal/types"
)

// Short real delays keep these tests fast while still exercising the
// actual timer paths.
const (
	testSettle = 25 * time.Millisecond
	testGrace  = 25 * time.Millisecond
	testNotice = 40 * time.Millisecond
)

const waitFor = 2 * time.Second
const tick = 2 * time.Millisecond

type stubGestures struct{ active atomic.Bool }

func (s *stubGestures) IsActive() bool { return s.active.Load() }

type stubGeometry struct {
	mu        sync.Mutex
	selection types.Rect
	selOK     bool
}

func (s *stubGeometry) SelectionRect() (types.Rect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection, s.selOK
}
func (s *stubGeometry) ContainerRect() types.Rect { return types.Rect{X: 0, Y: 0, W: 200, H: 100} }
func (s *stubGeometry) ViewportSize() (int, int)  { return 200, 100 }
func (s *stubGeometry) PopupSize() (int, int)     { return 30, 8 }

type fixture struct {
	doc      *document.MemDocument
	events   *event.Manager
	gestures *stubGestures
	overlay  *overlay.Overlay
	geo      *stubGeometry
	coord    *Coordinator

	mu     sync.Mutex
	shown  int
	hidden int
}

func newFixture(t *testing.T, text string) *fixture {
	t.Helper()
	f := &fixture{
		doc:      document.NewMemDocument(text),
		events:   event.NewManager(),
		gestures: &stubGestures{},
		geo:      &stubGeometry{selection: types.Rect{X: 10, Y: 10, W: 40, H: 5}, selOK: true},
	}
	f.overlay = overlay.New(f.events)
	f.coord = New(Config{
		Doc:         f.doc,
		Events:      f.events,
		Gestures:    f.gestures,
		Overlay:     f.overlay,
		Geometry:    f.geo,
		SettleDelay: testSettle,
		HideGrace:   testGrace,
		NoticeDelay: testNotice,
		Margin:      4,
	})
	t.Cleanup(f.coord.Shutdown)

	f.events.Subscribe(event.TypePopupShown, func(event.Event) bool {
		f.mu.Lock()
		f.shown++
		f.mu.Unlock()
		return false
	})
	f.events.Subscribe(event.TypePopupHidden, func(event.Event) bool {
		f.mu.Lock()
		f.hidden++
		f.mu.Unlock()
		return false
	})
	return f
}

func (f *fixture) shownCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shown
}

// selectRange mirrors what a host does: update the document selection and
// feed the observer signal to the coordinator.
func (f *fixture) selectRange(from, to int) {
	f.doc.SetSelection(types.Range{From: from, To: to})
	r := types.NewRange(from, to)
	f.coord.HandleSelection(&r)
}

func (f *fixture) collapse() {
	f.doc.SetSelection(types.Range{From: 0, To: 0})
	f.coord.HandleSelection(nil)
}

func TestSelectionShowsPopupAfterSettle(t *testing.T) {
	f := newFixture(t, "the quick brown fox")

	f.selectRange(4, 9)
	assert.Equal(t, StatePending, f.coord.State())
	assert.False(t, f.coord.Visible())

	require.Eventually(t, f.coord.Visible, waitFor, tick)
	assert.Equal(t, "quick", f.coord.SelectedText())

	list := f.overlay.List()
	require.Len(t, list, 1)
	assert.Equal(t, types.Range{From: 4, To: 9}, list[0].Range)
	assert.Equal(t, overlay.StyleSelection, list[0].Style)
	assert.Equal(t, 1, f.shownCount())
}

func TestCollapseDuringPendingCancelsShow(t *testing.T) {
	f := newFixture(t, "the quick brown fox")

	f.selectRange(4, 9)
	f.collapse()
	assert.Equal(t, StateHidden, f.coord.State())

	time.Sleep(3 * testSettle)
	assert.Equal(t, StateHidden, f.coord.State())
	assert.Zero(t, f.shownCount())
}

func TestRapidReselectionShowsOnce(t *testing.T) {
	f := newFixture(t, "the quick brown fox jumps")

	for i := 0; i < 5; i++ {
		f.selectRange(i, i+6)
	}
	require.Eventually(t, f.coord.Visible, waitFor, tick)

	// Only the final pending timer may fire.
	time.Sleep(3 * testSettle)
	assert.Equal(t, 1, f.shownCount())
	assert.Equal(t, "quick ", f.coord.SelectedText())
}

func TestSettleRevalidatesSelection(t *testing.T) {
	f := newFixture(t, "the quick brown fox")

	f.selectRange(4, 9)
	// The selection collapses underneath without a new observer signal
	// (e.g. the host mutated it directly). The timer must notice.
	f.doc.SetSelection(types.Range{From: 2, To: 2})

	time.Sleep(3 * testSettle)
	assert.Equal(t, StateHidden, f.coord.State())
	assert.Zero(t, f.shownCount())
}

func TestSettleRevalidatesGesture(t *testing.T) {
	f := newFixture(t, "the quick brown fox")

	f.selectRange(4, 9)
	f.gestures.active.Store(true)

	time.Sleep(3 * testSettle)
	assert.Equal(t, StateHidden, f.coord.State())
	assert.Zero(t, f.shownCount())
}

func TestSelectionDuringGestureIgnored(t *testing.T) {
	f := newFixture(t, "the quick brown fox")

	f.gestures.active.Store(true)
	f.selectRange(4, 9)
	assert.Equal(t, StateHidden, f.coord.State())
}

func TestCollapseWhileVisibleHidesAfterGrace(t *testing.T) {
	f := newFixture(t, "the quick brown fox")

	f.selectRange(4, 9)
	require.Eventually(t, f.coord.Visible, waitFor, tick)

	f.collapse()
	// Still up during the grace period.
	assert.True(t, f.coord.Visible())

	require.Eventually(t, func() bool {
		return f.coord.State() == StateHidden
	}, waitFor, tick)
	assert.Empty(t, f.overlay.List())
}

func TestReselectionWithinGraceKeepsPopupUp(t *testing.T) {
	f := newFixture(t, "the quick brown fox")

	f.selectRange(4, 9)
	require.Eventually(t, f.coord.Visible, waitFor, tick)

	f.collapse()
	f.selectRange(10, 15)

	// The popup must never blink out while the grace and the new settle
	// run their course.
	deadline := time.Now().Add(3 * testSettle)
	for time.Now().Before(deadline) {
		assert.True(t, f.coord.Visible())
		time.Sleep(tick)
	}
	require.Eventually(t, func() bool {
		return f.coord.SelectedText() == "brown"
	}, waitFor, tick)
}

func TestInteractionSuppressesCollapse(t *testing.T) {
	f := newFixture(t, "the quick brown fox")

	f.selectRange(4, 9)
	require.Eventually(t, f.coord.Visible, waitFor, tick)

	f.coord.InteractionStart()
	assert.Equal(t, StateSuppressed, f.coord.State())

	// Clicking into the popup's input collapses the document selection;
	// that must not hide anything.
	f.collapse()
	time.Sleep(3 * testGrace)
	assert.True(t, f.coord.Visible())

	f.coord.InteractionEnd()
	assert.Equal(t, StateVisible, f.coord.State())
}

func TestInteractionCancelsPendingHideGrace(t *testing.T) {
	f := newFixture(t, "the quick brown fox")

	f.selectRange(4, 9)
	require.Eventually(t, f.coord.Visible, waitFor, tick)

	// Mouse released over the popup: collapse arrives first, focus next.
	f.collapse()
	f.coord.InteractionStart()

	time.Sleep(3 * testGrace)
	assert.True(t, f.coord.Visible())
}

func TestForceShowBypassesSettle(t *testing.T) {
	f := newFixture(t, "the quick brown fox")

	f.doc.SetSelection(types.Range{From: 4, To: 9})
	f.coord.ForceShow()
	assert.True(t, f.coord.Visible())
	assert.Equal(t, 1, f.shownCount())
}

func TestForceShowRequiresSelection(t *testing.T) {
	f := newFixture(t, "the quick brown fox")

	f.coord.ForceShow()
	assert.Equal(t, StateHidden, f.coord.State())
	assert.Zero(t, f.shownCount())
}

func TestCancelHidesImmediately(t *testing.T) {
	f := newFixture(t, "the quick brown fox")

	f.selectRange(4, 9)
	require.Eventually(t, f.coord.Visible, waitFor, tick)

	f.coord.Cancel()
	assert.Equal(t, StateHidden, f.coord.State())
	assert.Empty(t, f.overlay.List())
}

func TestDocChangeInvalidatingHighlightHides(t *testing.T) {
	f := newFixture(t, "the quick brown fox")

	f.selectRange(10, 19)
	require.Eventually(t, f.coord.Visible, waitFor, tick)

	// Shrink the document so the highlight range is out of bounds.
	_, err := f.doc.ReplaceRange(types.Range{From: 5, To: 19}, "")
	require.NoError(t, err)
	f.coord.HandleDocChanged()

	assert.Equal(t, StateHidden, f.coord.State())
	assert.Empty(t, f.overlay.List())
}

func TestProgrammaticEditDoesNotHide(t *testing.T) {
	f := newFixture(t, "the quick brown fox")

	f.selectRange(4, 9)
	require.Eventually(t, f.coord.Visible, waitFor, tick)

	f.coord.BeginProgrammaticEdit()
	// The replacement collapses the selection and fires a doc change;
	// neither may hide the popup while the bracket is open.
	f.coord.HandleSelection(nil)
	f.coord.HandleDocChanged()
	f.coord.EndProgrammaticEdit()

	time.Sleep(3 * testGrace)
	assert.True(t, f.coord.Visible())
}

func TestRefreshAfterActionUpdatesTextAndClearsNotice(t *testing.T) {
	f := newFixture(t, "the quick brown fox")

	f.selectRange(4, 9)
	require.Eventually(t, f.coord.Visible, waitFor, tick)

	f.coord.ShowNotice("service unavailable")
	assert.Equal(t, "service unavailable", f.coord.Notice())

	f.coord.RefreshAfterAction(types.Range{From: 4, To: 15})
	assert.Equal(t, "quick brown", f.coord.SelectedText())
	assert.Empty(t, f.coord.Notice())
	assert.True(t, f.coord.Visible())
}

func TestNoticeAutoDismisses(t *testing.T) {
	f := newFixture(t, "the quick brown fox")

	f.coord.ShowNotice("boom")
	assert.Equal(t, "boom", f.coord.Notice())
	require.Eventually(t, func() bool {
		return f.coord.Notice() == ""
	}, waitFor, tick)
}

func TestDegenerateSelectionRectStillShows(t *testing.T) {
	f := newFixture(t, "the quick brown fox")
	f.geo.mu.Lock()
	f.geo.selOK = false
	f.geo.mu.Unlock()

	f.selectRange(4, 9)
	require.Eventually(t, f.coord.Visible, waitFor, tick)

	// Fallback anchor sits just inside the container, never (0,0) off-screen.
	anchor := f.coord.Anchor()
	assert.GreaterOrEqual(t, anchor.X, 0)
	assert.GreaterOrEqual(t, anchor.Y, 0)
}
