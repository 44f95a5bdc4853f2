// internal/action/dispatcher.go
package action

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/scribeworks/scribe/internal/document"
	"github.com/scribeworks/scribe/internal/event"
	"github.com/scribeworks/scribe/internal/histlog"
	"github.com/scribeworks/scribe/internal/logger"
	"github.com/scribeworks/scribe/internal/overlay"
	"github.com/scribeworks/scribe/internal/transform"
	"github.com/scribeworks/scribe/internal/types"
)

// Coordinator is what the dispatcher needs from the popup coordinator.
type Coordinator interface {
	BeginProgrammaticEdit()
	EndProgrammaticEdit()
	CurrentHighlight() (string, bool)
	RefreshAfterAction(newRange types.Range)
	ShowNotice(msg string)
}

// Suppressor is what the dispatcher needs from the change tracker.
type Suppressor interface {
	SuppressNext()
}

// Dispatcher invokes transformations on the highlighted range, replaces
// the content, and re-anchors the highlight to the result. One invocation
// at a time: overlapping document mutations racing each other are not
// safe, so the UI disables action controls while IsLoading reports true.
type Dispatcher struct {
	doc         document.Document
	events      *event.Manager
	overlay     *overlay.Overlay
	coord       Coordinator
	transformer transform.Transformer
	suppressor  Suppressor
	histLog     *histlog.Log
	history     *ring
	model       string
	useClipbrd  bool

	mu         sync.Mutex
	loading    bool
	lastResult string
}

// Config holds dependencies for the Dispatcher.
type Config struct {
	Doc             document.Document
	Events          *event.Manager
	Overlay         *overlay.Overlay
	Coordinator     Coordinator
	Transformer     transform.Transformer
	Suppressor      Suppressor
	HistoryLog      *histlog.Log // optional
	HistorySize     int
	Model           string
	SystemClipboard bool
}

// New creates an action dispatcher.
func New(cfg Config) *Dispatcher {
	if cfg.Doc == nil || cfg.Events == nil || cfg.Overlay == nil || cfg.Coordinator == nil || cfg.Transformer == nil {
		panic("action.New: Missing required dependencies in Config")
	}
	return &Dispatcher{
		doc:         cfg.Doc,
		events:      cfg.Events,
		overlay:     cfg.Overlay,
		coord:       cfg.Coordinator,
		transformer: cfg.Transformer,
		suppressor:  cfg.Suppressor,
		histLog:     cfg.HistoryLog,
		history:     newRing(cfg.HistorySize),
		model:       cfg.Model,
		useClipbrd:  cfg.SystemClipboard,
	}
}

// IsLoading reports whether an invocation is in flight.
func (d *Dispatcher) IsLoading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}

// History returns a snapshot of the recent-action ring.
func (d *Dispatcher) History() []Item {
	return d.history.Items()
}

// LastResult returns the most recent successful transformation text.
func (d *Dispatcher) LastResult() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastResult
}

// Invoke transforms the text in r and replaces it with the result. On
// success the highlight spans exactly the inserted text and one history
// item is appended. On failure the document is untouched, nothing is
// logged to history, and the error is surfaced as an inline popup notice.
// The popup stays open either way so the user can retry or chain actions.
func (d *Dispatcher) Invoke(ctx context.Context, kind transform.Kind, r types.Range, instructions string) error {
	d.mu.Lock()
	if d.loading {
		d.mu.Unlock()
		return fmt.Errorf("a transformation is already in progress")
	}
	d.loading = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.loading = false
		d.mu.Unlock()
	}()

	if !r.Valid(d.doc.Size()) {
		return fmt.Errorf("selection [%d,%d) no longer valid", r.From, r.To)
	}

	original := d.doc.Text(r)
	d.events.Dispatch(event.TypeActionStarted, event.ActionStartedData{Kind: string(kind)})
	logger.DebugTagf("action", "invoking %s on [%d,%d) (%d chars)", kind, r.From, r.To, len(original))

	result, err := d.transformer.Transform(ctx, transform.Request{
		Text:            original,
		Kind:            kind,
		Instructions:    instructions,
		DocumentContext: d.doc.FullText(),
	})
	if err != nil {
		// Recovered locally: no document mutation, no history entry.
		logger.Warnf("Action: %s failed: %v", kind, err)
		d.coord.ShowNotice(err.Error())
		d.events.Dispatch(event.TypeActionFailed, event.ActionFailedData{Kind: string(kind), Message: err.Error()})
		return err
	}

	newRange := types.Range{From: r.From, To: r.From + len([]rune(result))}

	// The replacement must not look like a manual edit to the change
	// tracker, and must not look like a hide/invalidate reason to the
	// coordinator.
	if d.suppressor != nil {
		d.suppressor.SuppressNext()
	}
	d.coord.BeginProgrammaticEdit()

	// Re-anchor the highlight before mutating so its range is coherent
	// with the post-edit document the moment observers run.
	if id, ok := d.coord.CurrentHighlight(); ok {
		d.overlay.Replace(id, newRange)
	} else {
		d.overlay.Clear()
		d.overlay.Add(newRange, overlay.StyleSelection)
	}

	if _, err := d.doc.ReplaceRange(r, result); err != nil {
		d.coord.EndProgrammaticEdit()
		d.overlay.Prune(d.doc.Size())
		d.coord.ShowNotice(err.Error())
		d.events.Dispatch(event.TypeActionFailed, event.ActionFailedData{Kind: string(kind), Message: err.Error()})
		return fmt.Errorf("replace range: %w", err)
	}

	// Keep the result selected so the user can chain another action.
	d.doc.SetSelection(newRange)
	d.coord.EndProgrammaticEdit()
	d.coord.RefreshAfterAction(newRange)

	d.mu.Lock()
	d.lastResult = result
	d.mu.Unlock()

	d.recordSuccess(ctx, kind, instructions, original, result)
	d.events.Dispatch(event.TypeActionCompleted, event.ActionCompletedData{
		Kind:     string(kind),
		NewRange: newRange,
		Result:   result,
	})
	return nil
}

// recordSuccess appends exactly one history item per successful invocation.
func (d *Dispatcher) recordSuccess(ctx context.Context, kind transform.Kind, instructions, original, result string) {
	d.history.Append(Item{
		Kind:         kind,
		Instructions: instructions,
		Timestamp:    time.Now(),
		Model:        d.model,
	})

	if d.histLog == nil {
		return
	}
	err := d.histLog.Append(ctx, histlog.Entry{
		Action:       histlog.AIAction(kind),
		OriginalText: original,
		NewText:      result,
		Instructions: instructions,
		Model:        d.model,
	})
	if err != nil {
		// History persistence failure must not undo a successful action.
		logger.Warnf("Action: history append failed: %v", err)
	}
}

// CopyResult pushes the last successful result to the system clipboard.
func (d *Dispatcher) CopyResult() error {
	d.mu.Lock()
	text := d.lastResult
	enabled := d.useClipbrd
	d.mu.Unlock()

	if text == "" {
		return fmt.Errorf("no transformation result to copy")
	}
	if !enabled {
		return fmt.Errorf("system clipboard is disabled")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}
