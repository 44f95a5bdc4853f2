// internal/engine/engine.go
package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/scribeworks/scribe/internal/action"
	"github.com/scribeworks/scribe/internal/change"
	"github.com/scribeworks/scribe/internal/config"
	"github.com/scribeworks/scribe/internal/document"
	"github.com/scribeworks/scribe/internal/event"
	"github.com/scribeworks/scribe/internal/gesture"
	"github.com/scribeworks/scribe/internal/histlog"
	"github.com/scribeworks/scribe/internal/logger"
	"github.com/scribeworks/scribe/internal/overlay"
	"github.com/scribeworks/scribe/internal/popup"
	"github.com/scribeworks/scribe/internal/selection"
	"github.com/scribeworks/scribe/internal/transform"
)

// Engine assembles the coordination components around a document and wires
// them to the shared event bus. It is host-agnostic: a host (terminal demo
// or browser bridge) feeds raw input events in, provides geometry, and
// redraws when the engine signals.
type Engine struct {
	cfg *config.Config

	events      *event.Manager
	doc         document.Document
	gestures    *gesture.Tracker
	observer    *selection.Observer
	overlay     *overlay.Overlay
	coordinator *popup.Coordinator
	dispatcher  *action.Dispatcher
	changes     *change.Tracker
	histLog     *histlog.Log
	transformer transform.Transformer

	redrawRequest chan struct{}
}

// Config holds dependencies for the Engine. Only App is required; the
// rest default to the standard production components.
type Config struct {
	App *config.Config

	// Doc substitutes the document implementation (defaults to an empty
	// in-memory document).
	Doc document.Document

	// Transformer substitutes the transformation collaborator (defaults
	// to the HTTP client from the app config).
	Transformer transform.Transformer

	// HistoryLog substitutes the edit-history log. When nil one is built
	// from the app config; set DisableHistory to run without one.
	HistoryLog     *histlog.Log
	DisableHistory bool
}

// New creates and wires an engine instance.
func New(cfg Config) (*Engine, error) {
	if cfg.App == nil {
		panic("engine.New: Missing app config in Config")
	}
	appCfg := cfg.App

	// --- Create Core Components ---
	events := event.NewManager()

	doc := cfg.Doc
	if doc == nil {
		doc = document.NewMemDocument("")
	}

	gestures := gesture.New(gesture.Config{
		Events:        events,
		SettleDelay:   appCfg.Timing.GestureSettle(),
		DragThreshold: appCfg.Editor.TouchDragThreshold,
	})

	observer := selection.New(selection.Config{
		Doc:      doc,
		Gestures: gestures,
		Events:   events,
	})

	highlights := overlay.New(events)

	coordinator := popup.New(popup.Config{
		Doc:         doc,
		Events:      events,
		Gestures:    gestures,
		Overlay:     highlights,
		SettleDelay: appCfg.Timing.SettleDelay(),
		HideGrace:   appCfg.Timing.HideGrace(),
		NoticeDelay: appCfg.Timing.NoticeDismiss(),
		Margin:      appCfg.Editor.ViewportMargin,
	})

	transformer := cfg.Transformer
	if transformer == nil {
		transformer = transform.NewClient(transform.ClientConfig{
			BaseURL: appCfg.Transform.BaseURL,
			Model:   appCfg.Transform.Model,
			Timeout: appCfg.Transform.Timeout(),
		})
	}

	histLog := cfg.HistoryLog
	if histLog == nil && !cfg.DisableHistory {
		localPath := appCfg.History.LocalPath
		if localPath == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return nil, fmt.Errorf("resolve history path: %w", err)
			}
			localPath = filepath.Join(configDir, config.ConfigDirName, "history.jsonl")
		}
		var err error
		histLog, err = histlog.New(histlog.Config{
			LocalPath: localPath,
			RemoteURL: appCfg.History.RemoteURL,
		})
		if err != nil {
			return nil, fmt.Errorf("history log init failed: %w", err)
		}
	}

	changes := change.New(change.Config{
		Doc:        doc,
		HistoryLog: histLog,
		Debounce:   appCfg.Timing.ChangeDebounce(),
		Threshold:  appCfg.Editor.ChangeThreshold,
	})

	dispatcher := action.New(action.Config{
		Doc:             doc,
		Events:          events,
		Overlay:         highlights,
		Coordinator:     coordinator,
		Transformer:     transformer,
		Suppressor:      changes,
		HistoryLog:      histLog,
		HistorySize:     appCfg.History.MaxItems,
		Model:           appCfg.Transform.Model,
		SystemClipboard: appCfg.Editor.SystemClipboard,
	})

	e := &Engine{
		cfg:           appCfg,
		events:        events,
		doc:           doc,
		gestures:      gestures,
		observer:      observer,
		overlay:       highlights,
		coordinator:   coordinator,
		dispatcher:    dispatcher,
		changes:       changes,
		histLog:       histLog,
		transformer:   transformer,
		redrawRequest: make(chan struct{}, 1),
	}

	// --- Subscribe Core Components (Engine level wiring) ---
	gestures.Attach()
	observer.Attach()
	observer.Subscribe(coordinator.HandleSelection)
	changes.Attach()

	doc.OnUpdate(func() {
		coordinator.HandleDocChanged()
		events.Dispatch(event.TypeDocChanged, event.DocChangedData{NewSize: doc.Size()})
	})

	// Anything that changes what a host would draw requests a redraw.
	for _, t := range []event.Type{
		event.TypeSelectionChanged,
		event.TypeDocChanged,
		event.TypePopupShown,
		event.TypePopupHidden,
		event.TypeHighlightChanged,
		event.TypeActionStarted,
		event.TypeActionCompleted,
		event.TypeActionFailed,
	} {
		events.Subscribe(t, func(event.Event) bool {
			e.RequestRedraw()
			return false
		})
	}

	logger.Debugf("Engine: components wired")
	return e, nil
}

// Start begins change tracking and announces readiness.
func (e *Engine) Start() {
	e.changes.Start()
	e.events.Dispatch(event.TypeAppReady, event.AppReadyData{})
}

// Shutdown stops timers and tracking.
func (e *Engine) Shutdown() {
	e.changes.Stop()
	e.coordinator.Shutdown()
	e.events.Dispatch(event.TypeAppQuit, event.AppQuitData{})
}

// SetGeometry attaches the host's geometry provider for popup placement.
func (e *Engine) SetGeometry(geo popup.Geometry) {
	e.coordinator.SetGeometry(geo)
}

// RequestRedraw signals the host non-blockingly.
func (e *Engine) RequestRedraw() {
	select {
	case e.redrawRequest <- struct{}{}:
	default: // Don't block if a redraw is already pending
	}
}

// RedrawRequests is the channel hosts drain to know when to repaint.
func (e *Engine) RedrawRequests() <-chan struct{} {
	return e.redrawRequest
}

// --- Component accessors for hosts ---

func (e *Engine) Events() *event.Manager          { return e.events }
func (e *Engine) Doc() document.Document          { return e.doc }
func (e *Engine) Gestures() *gesture.Tracker      { return e.gestures }
func (e *Engine) Observer() *selection.Observer   { return e.observer }
func (e *Engine) Overlay() *overlay.Overlay       { return e.overlay }
func (e *Engine) Coordinator() *popup.Coordinator { return e.coordinator }
func (e *Engine) Dispatcher() *action.Dispatcher  { return e.dispatcher }
func (e *Engine) Changes() *change.Tracker        { return e.changes }
func (e *Engine) History() *histlog.Log           { return e.histLog }
func (e *Engine) Config() *config.Config          { return e.cfg }
