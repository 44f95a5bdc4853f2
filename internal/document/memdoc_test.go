package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribeworks/scribe/internal/types"
)

func TestReplaceRangeCollapsesSelectionToEnd(t *testing.T) {
	doc := NewMemDocument("hello world")

	cursor, err := doc.ReplaceRange(types.Range{From: 6, To: 11}, "scribe")
	require.NoError(t, err)
	assert.Equal(t, "hello scribe", doc.FullText())
	assert.Equal(t, 12, cursor)
	assert.Equal(t, types.Range{From: 12, To: 12}, doc.Selection())
}

func TestReplaceRangeRejectsOutOfBounds(t *testing.T) {
	doc := NewMemDocument("short")

	_, err := doc.ReplaceRange(types.Range{From: 2, To: 42}, "x")
	require.Error(t, err)
	assert.Equal(t, "short", doc.FullText())
}

func TestRuneAddressingWithMultibyteText(t *testing.T) {
	doc := NewMemDocument("héllo wörld")

	assert.Equal(t, 11, doc.Size())
	assert.Equal(t, "wörld", doc.Text(types.Range{From: 6, To: 11}))

	_, err := doc.ReplaceRange(types.Range{From: 0, To: 5}, "ciao")
	require.NoError(t, err)
	assert.Equal(t, "ciao wörld", doc.FullText())
}

func TestSetSelectionClampsAndNotifies(t *testing.T) {
	doc := NewMemDocument("hello")

	var notified int
	doc.OnSelectionChange(func() { notified++ })

	doc.SetSelection(types.Range{From: 30, To: 2})
	assert.Equal(t, types.Range{From: 2, To: 5}, doc.Selection())
	assert.Equal(t, 1, notified)
}

func TestUpdateCallbacksFireAfterMutation(t *testing.T) {
	doc := NewMemDocument("hello")

	var sawText string
	doc.OnUpdate(func() { sawText = doc.FullText() })

	_, err := doc.Insert(5, "!")
	require.NoError(t, err)
	assert.Equal(t, "hello!", sawText)
}
