package action

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribeworks/scribe/internal/document"
	"github.com/scribeworks/scribe/internal/event"
	"github.com/scribeworks/scribe/internal/overlay"
	"github.com/scribeworks/scribe/internal/transform"
	"github.com/scribeworks/scribe/internal/types"
)

// fakeTransformer returns a canned result or error, optionally blocking
// until released to exercise the in-flight guard.
type fakeTransformer struct {
	mu      sync.Mutex
	result  string
	err     error
	block   chan struct{}
	calls   int
	lastReq transform.Request
}

func (f *fakeTransformer) Transform(ctx context.Context, req transform.Request) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	block := f.block
	result, err := f.result, f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return result, err
}

// fakeCoord records the calls the dispatcher makes on the coordinator.
type fakeCoord struct {
	mu          sync.Mutex
	highlightID string
	beginCount  int
	endCount    int
	refreshed   []types.Range
	notices     []string
}

func (f *fakeCoord) BeginProgrammaticEdit() {
	f.mu.Lock()
	f.beginCount++
	f.mu.Unlock()
}

func (f *fakeCoord) EndProgrammaticEdit() {
	f.mu.Lock()
	f.endCount++
	f.mu.Unlock()
}

func (f *fakeCoord) CurrentHighlight() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.highlightID, f.highlightID != ""
}

func (f *fakeCoord) RefreshAfterAction(r types.Range) {
	f.mu.Lock()
	f.refreshed = append(f.refreshed, r)
	f.mu.Unlock()
}

func (f *fakeCoord) ShowNotice(msg string) {
	f.mu.Lock()
	f.notices = append(f.notices, msg)
	f.mu.Unlock()
}

type suppressCounter struct{ n atomic.Int32 }

func (s *suppressCounter) SuppressNext() { s.n.Add(1) }

type testRig struct {
	doc        *document.MemDocument
	events     *event.Manager
	overlay    *overlay.Overlay
	coord      *fakeCoord
	trans      *fakeTransformer
	suppressor *suppressCounter
	disp       *Dispatcher

	completed atomic.Int32
	failed    atomic.Int32
}

func newRig(t *testing.T, text string) *testRig {
	t.Helper()
	rig := &testRig{
		doc:        document.NewMemDocument(text),
		events:     event.NewManager(),
		coord:      &fakeCoord{},
		trans:      &fakeTransformer{},
		suppressor: &suppressCounter{},
	}
	rig.overlay = overlay.New(rig.events)
	rig.disp = New(Config{
		Doc:         rig.doc,
		Events:      rig.events,
		Overlay:     rig.overlay,
		Coordinator: rig.coord,
		Transformer: rig.trans,
		Suppressor:  rig.suppressor,
		HistorySize: 3,
		Model:       "test-model",
	})
	rig.events.Subscribe(event.TypeActionCompleted, func(event.Event) bool {
		rig.completed.Add(1)
		return false
	})
	rig.events.Subscribe(event.TypeActionFailed, func(event.Event) bool {
		rig.failed.Add(1)
		return false
	})
	return rig
}

func TestInvokeReplacesTextAndReanchorsHighlight(t *testing.T) {
	rig := newRig(t, "please fix this sentence for me")
	rig.trans.result = "a far better sentence"
	rig.coord.highlightID = rig.overlay.Add(types.Range{From: 7, To: 24}, overlay.StyleSelection)

	err := rig.disp.Invoke(context.Background(), transform.KindRevise, types.Range{From: 7, To: 24}, "keep it short")
	require.NoError(t, err)

	assert.Equal(t, "please a far better sentence for me", rig.doc.FullText())

	wantRange := types.Range{From: 7, To: 7 + len([]rune("a far better sentence"))}
	assert.Equal(t, wantRange, rig.doc.Selection())

	h, ok := rig.overlay.Get(rig.coord.highlightID)
	require.True(t, ok)
	assert.Equal(t, wantRange, h.Range)

	rig.coord.mu.Lock()
	assert.Equal(t, 1, rig.coord.beginCount)
	assert.Equal(t, 1, rig.coord.endCount)
	require.Len(t, rig.coord.refreshed, 1)
	assert.Equal(t, wantRange, rig.coord.refreshed[0])
	rig.coord.mu.Unlock()

	assert.Equal(t, int32(1), rig.suppressor.n.Load())
	assert.Equal(t, int32(1), rig.completed.Load())
	assert.Equal(t, "a far better sentence", rig.disp.LastResult())

	// The service saw the selected text and the surrounding document.
	rig.trans.mu.Lock()
	assert.Equal(t, "fix this sentence", rig.trans.lastReq.Text)
	assert.Equal(t, "keep it short", rig.trans.lastReq.Instructions)
	assert.Equal(t, transform.KindRevise, rig.trans.lastReq.Kind)
	rig.trans.mu.Unlock()
}

func TestInvokeFailureLeavesDocumentUntouched(t *testing.T) {
	rig := newRig(t, "some original text")
	rig.trans.err = fmt.Errorf("service unavailable")

	err := rig.disp.Invoke(context.Background(), transform.KindSummarize, types.Range{From: 0, To: 4}, "")
	require.Error(t, err)

	assert.Equal(t, "some original text", rig.doc.FullText())
	assert.Empty(t, rig.disp.History())
	assert.Equal(t, int32(1), rig.failed.Load())
	assert.Zero(t, rig.completed.Load())

	rig.coord.mu.Lock()
	require.Len(t, rig.coord.notices, 1)
	assert.Contains(t, rig.coord.notices[0], "service unavailable")
	assert.Zero(t, rig.coord.beginCount)
	rig.coord.mu.Unlock()

	assert.Equal(t, int32(0), rig.suppressor.n.Load())
}

func TestInvokeRejectsInvalidRange(t *testing.T) {
	rig := newRig(t, "short")

	err := rig.disp.Invoke(context.Background(), transform.KindExpand, types.Range{From: 2, To: 99}, "")
	require.Error(t, err)
	assert.Equal(t, "short", rig.doc.FullText())
	assert.Zero(t, rig.trans.calls)
}

func TestInvokeRejectsOverlap(t *testing.T) {
	rig := newRig(t, "some original text")
	rig.trans.result = "replaced"
	rig.trans.block = make(chan struct{})

	errs := make(chan error, 1)
	go func() {
		errs <- rig.disp.Invoke(context.Background(), transform.KindExpand, types.Range{From: 0, To: 4}, "")
	}()

	require.Eventually(t, rig.disp.IsLoading, 2*time.Second, 2*time.Millisecond)

	err := rig.disp.Invoke(context.Background(), transform.KindRephrase, types.Range{From: 0, To: 4}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in progress")

	close(rig.trans.block)
	require.NoError(t, <-errs)
	assert.Equal(t, 1, rig.trans.calls)
	assert.False(t, rig.disp.IsLoading())
}

func TestHistoryRingEvictsOldest(t *testing.T) {
	rig := newRig(t, "abcdefghij")
	rig.trans.result = "xxx"

	kinds := []transform.Kind{
		transform.KindExpand, transform.KindSummarize,
		transform.KindRephrase, transform.KindRevise,
	}
	for _, k := range kinds {
		require.NoError(t, rig.disp.Invoke(context.Background(), k, types.Range{From: 0, To: 3}, ""))
	}

	items := rig.disp.History()
	require.Len(t, items, 3) // capacity from the rig
	assert.Equal(t, transform.KindSummarize, items[0].Kind)
	assert.Equal(t, transform.KindRevise, items[2].Kind)
	assert.Equal(t, "test-model", items[0].Model)
}

func TestInvokeWithoutHighlightCreatesOne(t *testing.T) {
	rig := newRig(t, "hello world")
	rig.trans.result = "goodbye"

	require.NoError(t, rig.disp.Invoke(context.Background(), transform.KindRephrase, types.Range{From: 0, To: 5}, ""))

	list := rig.overlay.List()
	require.Len(t, list, 1)
	assert.Equal(t, types.Range{From: 0, To: 7}, list[0].Range)
	assert.Equal(t, overlay.StyleSelection, list[0].Style)
}
