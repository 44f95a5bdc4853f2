// internal/change/tracker.go
package change

import (
	"context"
	"sync"
	"time"

	"github.com/scribeworks/scribe/internal/document"
	"github.com/scribeworks/scribe/internal/histlog"
	"github.com/scribeworks/scribe/internal/logger"
)

// Tracker observes document content after mutations, debounced so it never
// evaluates on every keystroke, and logs manual edits by a length-delta
// heuristic. It does not attempt to locate which characters changed.
//
// Changes that immediately follow a programmatic replacement are
// suppressed: the action dispatcher calls SuppressNext around its own
// mutations so AI-driven edits are never misclassified as manual ones.
type Tracker struct {
	mu sync.Mutex

	doc       document.Document
	histLog   *histlog.Log // optional
	debounce  time.Duration
	threshold int

	timer         *time.Timer
	suppressTimer *time.Timer
	previous      string
	suppressNext  bool
	tracking      bool
}

// Config holds dependencies for the Tracker.
type Config struct {
	Doc        document.Document
	HistoryLog *histlog.Log
	Debounce   time.Duration
	Threshold  int
}

// New creates a change tracker. Call Start to begin observing.
func New(cfg Config) *Tracker {
	if cfg.Doc == nil {
		panic("change.New: Missing document in Config")
	}
	return &Tracker{
		doc:       cfg.Doc,
		histLog:   cfg.HistoryLog,
		debounce:  cfg.Debounce,
		threshold: cfg.Threshold,
	}
}

// Attach hooks the tracker to document updates.
func (t *Tracker) Attach() {
	t.doc.OnUpdate(t.NoteChange)
}

// Start snapshots the current content and begins tracking.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.previous = t.doc.FullText()
	t.tracking = true
}

// Stop halts tracking and cancels any pending evaluation.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracking = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.suppressTimer != nil {
		t.suppressTimer.Stop()
		t.suppressTimer = nil
	}
}

// NoteChange resets the debounce timer. The single persistent timer is
// reset rather than re-created per call, so every evaluation sees the
// tracker's current previousContent rather than a stale capture.
func (t *Tracker) NoteChange() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.tracking {
		return
	}
	if t.timer != nil {
		t.timer.Reset(t.debounce)
		return
	}
	t.timer = time.AfterFunc(t.debounce, t.runCheck)
}

// SuppressNext marks the next debounced evaluation as programmatic. The
// flag clears on the next observed change or after a timeout, so a
// suppression with no following change cannot leak into a later manual
// edit.
func (t *Tracker) SuppressNext() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.suppressNext = true

	if t.suppressTimer != nil {
		t.suppressTimer.Stop()
	}
	t.suppressTimer = time.AfterFunc(2*t.debounce, func() {
		t.mu.Lock()
		if t.suppressNext {
			t.suppressNext = false
			t.previous = t.doc.FullText()
			logger.DebugTagf("change", "suppression expired without a change")
		}
		t.mu.Unlock()
	})
}

// runCheck evaluates the net content delta since the last check.
func (t *Tracker) runCheck() {
	current := t.doc.FullText()

	t.mu.Lock()
	t.timer = nil
	if !t.tracking {
		t.mu.Unlock()
		return
	}
	if t.suppressNext {
		// Programmatic replacement; update the baseline silently.
		t.suppressNext = false
		if t.suppressTimer != nil {
			t.suppressTimer.Stop()
			t.suppressTimer = nil
		}
		t.previous = current
		t.mu.Unlock()
		logger.DebugTagf("change", "suppressed programmatic change")
		return
	}

	delta := len([]rune(current)) - len([]rune(t.previous))
	abs := delta
	if abs < 0 {
		abs = -abs
	}
	if abs <= t.threshold {
		// Sub-threshold noise (autocorrect jitter); keep the baseline so
		// slow accumulation still registers eventually.
		t.mu.Unlock()
		return
	}
	t.previous = current
	histLog := t.histLog
	t.mu.Unlock()

	dir := histlog.DirectionAddition
	if delta < 0 {
		dir = histlog.DirectionDeletion
	}
	logger.DebugTagf("change", "manual %s of %d chars", dir, abs)

	if histLog != nil {
		err := histLog.Append(context.Background(), histlog.Entry{
			Action: histlog.ManualEdit(dir),
			Delta:  delta,
		})
		if err != nil {
			logger.Warnf("Change: history append failed: %v", err)
		}
	}
}
