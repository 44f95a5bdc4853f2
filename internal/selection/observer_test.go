package selection

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribeworks/scribe/internal/document"
	"github.com/scribeworks/scribe/internal/event"
	"github.com/scribeworks/scribe/internal/types"
)

type stubGestures struct{ active atomic.Bool }

func (s *stubGestures) IsActive() bool { return s.active.Load() }

type recorder struct {
	mu    sync.Mutex
	calls []*types.Range
}

func (r *recorder) record(rng *types.Range) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rng == nil {
		r.calls = append(r.calls, nil)
		return
	}
	cp := *rng
	r.calls = append(r.calls, &cp)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recorder) last() *types.Range {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func setup(t *testing.T) (*document.MemDocument, *stubGestures, *event.Manager, *recorder) {
	t.Helper()
	doc := document.NewMemDocument("hello wonderful world")
	gestures := &stubGestures{}
	events := event.NewManager()

	obs := New(Config{Doc: doc, Gestures: gestures, Events: events})
	obs.Attach()

	rec := &recorder{}
	obs.Subscribe(rec.record)
	return doc, gestures, events, rec
}

func TestSelectionNotifiesImmediatelyWithoutGesture(t *testing.T) {
	doc, _, _, rec := setup(t)

	doc.SetSelection(types.Range{From: 6, To: 15})
	require.Equal(t, 1, rec.len())
	require.NotNil(t, rec.last())
	assert.Equal(t, types.Range{From: 6, To: 15}, *rec.last())
}

func TestCollapsedSelectionNotifiesNil(t *testing.T) {
	doc, _, _, rec := setup(t)

	doc.SetSelection(types.Range{From: 3, To: 3})
	require.Equal(t, 1, rec.len())
	assert.Nil(t, rec.last())
}

func TestReversedSelectionNormalized(t *testing.T) {
	doc, _, _, rec := setup(t)

	// Hosts may report focus before anchor.
	doc.SetSelection(types.Range{From: 15, To: 6})
	require.NotNil(t, rec.last())
	assert.Equal(t, types.Range{From: 6, To: 15}, *rec.last())
}

func TestSelectionDeferredDuringGesture(t *testing.T) {
	doc, gestures, events, rec := setup(t)

	gestures.active.Store(true)
	doc.SetSelection(types.Range{From: 0, To: 5})
	doc.SetSelection(types.Range{From: 0, To: 11})
	assert.Zero(t, rec.len())

	// Gesture settles: exactly one replay with the final selection.
	gestures.active.Store(false)
	events.Dispatch(event.TypeGestureEnd, event.GestureData{Modality: event.ModalityMouse})

	require.Equal(t, 1, rec.len())
	require.NotNil(t, rec.last())
	assert.Equal(t, types.Range{From: 0, To: 11}, *rec.last())
}

func TestReplayRedefersWhenNewGestureStarted(t *testing.T) {
	doc, gestures, events, rec := setup(t)

	gestures.active.Store(true)
	doc.SetSelection(types.Range{From: 0, To: 5})

	// The end event for the first gesture arrives while a second one is
	// already running.
	events.Dispatch(event.TypeGestureEnd, event.GestureData{Modality: event.ModalityMouse})
	assert.Zero(t, rec.len())

	gestures.active.Store(false)
	events.Dispatch(event.TypeGestureEnd, event.GestureData{Modality: event.ModalityTouch})
	assert.Equal(t, 1, rec.len())
}

func TestGestureEndWithoutDeferredIsQuiet(t *testing.T) {
	_, _, events, rec := setup(t)

	events.Dispatch(event.TypeGestureEnd, event.GestureData{Modality: event.ModalityMouse})
	assert.Zero(t, rec.len())
}

func TestSelectionChangedEventCarriesRange(t *testing.T) {
	doc, _, events, _ := setup(t)

	var got *types.Range
	var mu sync.Mutex
	events.Subscribe(event.TypeSelectionChanged, func(e event.Event) bool {
		if data, ok := e.Data.(event.SelectionChangedData); ok {
			mu.Lock()
			got = data.Range
			mu.Unlock()
		}
		return false
	})

	doc.SetSelection(types.Range{From: 6, To: 15})
	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, got)
	assert.Equal(t, types.Range{From: 6, To: 15}, *got)
}
