package histlog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribeworks/scribe/internal/transform"
)

func tempLog(t *testing.T, remote string) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.jsonl")
	log, err := New(Config{LocalPath: path, RemoteURL: remote})
	require.NoError(t, err)
	return log, path
}

func TestAppendAndRead(t *testing.T) {
	log, _ := tempLog(t, "")

	require.NoError(t, log.Append(context.Background(), Entry{
		Action:       AIAction(transform.KindSummarize),
		OriginalText: "a very long paragraph",
		NewText:      "short",
		Model:        "test-model",
	}))
	require.NoError(t, log.Append(context.Background(), Entry{
		Action: ManualEdit(DirectionDeletion),
		Delta:  -12,
	}))

	got, err := log.Read()
	require.NoError(t, err)
	require.Len(t, got, 2)

	kind, ok := got[0].Action.IsAI()
	require.True(t, ok)
	assert.Equal(t, transform.KindSummarize, kind)
	assert.Equal(t, "short", got[0].NewText)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())

	dir, ok := got[1].Action.IsManual()
	require.True(t, ok)
	assert.Equal(t, DirectionDeletion, dir)
	assert.Equal(t, -12, got[1].Delta)
}

func TestReadMissingFileIsEmpty(t *testing.T) {
	log, _ := tempLog(t, "")
	got, err := log.Read()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadSkipsMalformedLines(t *testing.T) {
	log, path := tempLog(t, "")
	require.NoError(t, log.Append(context.Background(), Entry{Action: AIAction(transform.KindExpand)}))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json at all\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, log.Append(context.Background(), Entry{Action: AIAction(transform.KindRevise)}))

	got, err := log.Read()
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRemoteMirrorReceivesEntries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	log, _ := tempLog(t, srv.URL)
	require.NoError(t, log.Append(context.Background(), Entry{Action: AIAction(transform.KindExpand)}))
	assert.Equal(t, int32(1), hits.Load())
}

func TestRemoteMirrorFailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	log, _ := tempLog(t, srv.URL)
	// Local write is authoritative; the mirror failing must not surface.
	require.NoError(t, log.Append(context.Background(), Entry{Action: AIAction(transform.KindExpand)}))

	got, err := log.Read()
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestActionWireForm(t *testing.T) {
	cases := []struct {
		action Action
		want   string
	}{
		{AIAction(transform.KindSummarize), "ai.summarize"},
		{AIAction(transform.KindRephrase), "ai.rephrase"},
		{ManualEdit(DirectionAddition), "manual.addition"},
		{ManualEdit(DirectionDeletion), "manual.deletion"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.action.String())

		parsed, err := ParseAction(tc.want)
		require.NoError(t, err)
		assert.Equal(t, tc.action, parsed)
	}

	_, err := ParseAction("ai.hallucinate")
	assert.Error(t, err)
	_, err = ParseAction("gibberish")
	assert.Error(t, err)
}
