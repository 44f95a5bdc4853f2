package overlay

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribeworks/scribe/internal/event"
	"github.com/scribeworks/scribe/internal/types"
)

func setup(t *testing.T) (*Overlay, *atomic.Int32) {
	t.Helper()
	events := event.NewManager()
	var changed atomic.Int32
	events.Subscribe(event.TypeHighlightChanged, func(event.Event) bool {
		changed.Add(1)
		return false
	})
	return New(events), &changed
}

func TestAddAndGet(t *testing.T) {
	o, changed := setup(t)

	id := o.Add(types.Range{From: 2, To: 8}, StyleSelection)
	require.NotEmpty(t, id)
	assert.Equal(t, int32(1), changed.Load())

	h, ok := o.Get(id)
	require.True(t, ok)
	assert.Equal(t, types.Range{From: 2, To: 8}, h.Range)
	assert.Equal(t, StyleSelection, h.Style)
}

func TestDistinctIDs(t *testing.T) {
	o, _ := setup(t)

	a := o.Add(types.Range{From: 0, To: 1}, StyleSelection)
	b := o.Add(types.Range{From: 1, To: 2}, StylePreview)
	assert.NotEqual(t, a, b)
	assert.Len(t, o.List(), 2)
}

func TestRemoveUnknownIDIsNoop(t *testing.T) {
	o, changed := setup(t)

	o.Add(types.Range{From: 0, To: 4}, StyleSelection)
	before := changed.Load()
	o.Remove("no-such-id")
	assert.Equal(t, before, changed.Load())
	assert.Len(t, o.List(), 1)
}

func TestReplaceKeepsIDAndStyle(t *testing.T) {
	o, _ := setup(t)

	id := o.Add(types.Range{From: 2, To: 8}, StyleSelection)
	ok := o.Replace(id, types.Range{From: 2, To: 20})
	require.True(t, ok)

	h, found := o.Get(id)
	require.True(t, found)
	assert.Equal(t, types.Range{From: 2, To: 20}, h.Range)
	assert.Equal(t, StyleSelection, h.Style)

	assert.False(t, o.Replace("gone", types.Range{From: 0, To: 1}))
}

func TestClear(t *testing.T) {
	o, _ := setup(t)

	o.Add(types.Range{From: 0, To: 4}, StyleSelection)
	o.Add(types.Range{From: 5, To: 9}, StylePreview)
	o.Clear()
	assert.Empty(t, o.List())
}

func TestPruneDropsOutOfBoundsHighlights(t *testing.T) {
	o, _ := setup(t)

	keep := o.Add(types.Range{From: 0, To: 5}, StyleSelection)
	o.Add(types.Range{From: 8, To: 20}, StylePreview)

	dropped := o.Prune(10)
	assert.True(t, dropped)

	list := o.List()
	require.Len(t, list, 1)
	assert.Equal(t, keep, list[0].ID)

	// Nothing left to drop.
	assert.False(t, o.Prune(10))
}
