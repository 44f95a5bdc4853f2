// internal/tui/host.go
package tui

import (
	"context"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/scribeworks/scribe/internal/engine"
	"github.com/scribeworks/scribe/internal/event"
	"github.com/scribeworks/scribe/internal/logger"
	"github.com/scribeworks/scribe/internal/statusbar"
	"github.com/scribeworks/scribe/internal/transform"
	"github.com/scribeworks/scribe/internal/types"
)

// Host runs the coordination engine in a terminal: it renders the document
// and the floating action box with tcell, and translates terminal mouse and
// key events into the raw input events the engine consumes.
type Host struct {
	tuiManager *TUI
	eng        *engine.Engine
	statusBar  *statusbar.StatusBar

	quit chan struct{}

	mu           sync.Mutex
	lay          *layout
	popupBox     types.Rect
	popupDrawn   bool
	instructions []rune
	dragAnchor   int
	dragging     bool
	prevButtons  tcell.ButtonMask
}

// NewHost creates a terminal host around an engine.
func NewHost(eng *engine.Engine) (*Host, error) {
	tuiManager, err := New()
	if err != nil {
		return nil, err
	}

	sbConfig := statusbar.DefaultConfig()
	sbConfig.WordLimit = eng.Config().Editor.WordLimit
	sbConfig.MessageTimeout = eng.Config().Timing.NoticeDismiss()

	h := &Host{
		tuiManager: tuiManager,
		eng:        eng,
		statusBar:  statusbar.New(sbConfig),
		quit:       make(chan struct{}),
	}

	// The layout built during drawing doubles as the geometry source.
	eng.SetGeometry(h)

	eng.Events().Subscribe(event.TypeActionFailed, func(e event.Event) bool {
		if data, ok := e.Data.(event.ActionFailedData); ok {
			h.statusBar.SetTemporaryMessage("%s failed: %s", data.Kind, data.Message)
		}
		return false
	})
	eng.Events().Subscribe(event.TypeActionCompleted, func(e event.Event) bool {
		if data, ok := e.Data.(event.ActionCompletedData); ok {
			h.statusBar.SetTemporaryMessage("%s done", data.Kind)
		}
		return false
	})

	return h, nil
}

// Run starts the host's event and drawing loops and blocks until quit.
func (h *Host) Run() error {
	defer h.tuiManager.Close()
	defer h.eng.Shutdown()

	go h.eventLoop()

	h.eng.Start()
	h.statusBar.SetTemporaryMessage("Select text to see actions - Ctrl+Q quits")
	h.draw()

	for {
		select {
		case <-h.quit:
			logger.Infof("Exiting terminal host.")
			return nil
		case <-h.eng.RedrawRequests():
			h.draw()
		}
	}
}

// eventLoop handles TUI events until the screen is closed.
func (h *Host) eventLoop() {
	for {
		ev := h.tuiManager.PollEvent()
		if ev == nil {
			return
		}

		needsRedraw := false

		switch eventData := ev.(type) {
		case *tcell.EventResize:
			h.tuiManager.GetScreen().Sync()
			needsRedraw = true
		case *tcell.EventKey:
			needsRedraw = h.handleKey(eventData)
		case *tcell.EventMouse:
			needsRedraw = h.handleMouse(eventData)
		}

		if needsRedraw {
			h.eng.RequestRedraw()
		}
	}
}

// --- Input handling ---

// handleKey routes keys: popup-internal editing while interacting,
// engine shortcuts, then plain document typing.
func (h *Host) handleKey(ev *tcell.EventKey) bool {
	coord := h.eng.Coordinator()

	switch {
	case ev.Key() == tcell.KeyCtrlQ:
		close(h.quit)
		return false
	case ev.Key() == tcell.KeyEscape:
		if coord.Interacting() {
			coord.InteractionEnd()
		} else {
			coord.Cancel()
		}
		return true
	case ev.Key() == tcell.KeyCtrlSpace:
		coord.ForceShow()
		return true
	case ev.Key() == tcell.KeyCtrlY:
		if err := h.eng.Dispatcher().CopyResult(); err != nil {
			h.statusBar.SetTemporaryMessage("copy failed: %v", err)
		} else {
			h.statusBar.SetTemporaryMessage("result copied")
		}
		return true
	}

	// Keys go to the instructions field while the user works inside the
	// popup.
	if coord.Interacting() {
		switch ev.Key() {
		case tcell.KeyRune:
			h.mu.Lock()
			h.instructions = append(h.instructions, ev.Rune())
			h.mu.Unlock()
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			h.mu.Lock()
			if len(h.instructions) > 0 {
				h.instructions = h.instructions[:len(h.instructions)-1]
			}
			h.mu.Unlock()
		case tcell.KeyEnter:
			coord.InteractionEnd()
		}
		return true
	}

	// Number keys invoke actions while the popup is up.
	if coord.Visible() && ev.Key() == tcell.KeyRune {
		if r := ev.Rune(); r >= '1' && r <= '9' {
			kinds := transform.Kinds()
			if idx := int(r - '1'); idx < len(kinds) {
				h.invoke(kinds[idx])
				return true
			}
		}
	}

	// Plain typing edits the document.
	doc := h.eng.Doc()
	switch ev.Key() {
	case tcell.KeyRune:
		doc.ReplaceRange(doc.Selection(), string(ev.Rune()))
		return true
	case tcell.KeyEnter:
		doc.ReplaceRange(doc.Selection(), "\n")
		return true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		sel := doc.Selection()
		if sel.IsCollapsed() && sel.From > 0 {
			sel = types.Range{From: sel.From - 1, To: sel.From}
		}
		if !sel.IsCollapsed() {
			doc.ReplaceRange(sel, "")
		}
		return true
	}
	return false
}

// handleMouse translates button transitions into the engine's raw pointer
// events and drives drag-selection on the document.
func (h *Host) handleMouse(ev *tcell.EventMouse) bool {
	x, y := ev.Position()
	pos := types.Point{X: x, Y: y}
	buttons := ev.Buttons()

	h.mu.Lock()
	prev := h.prevButtons
	h.prevButtons = buttons
	lay := h.lay
	box := h.popupBox
	boxDrawn := h.popupDrawn
	h.mu.Unlock()

	pressed := buttons&tcell.Button1 != 0 && prev&tcell.Button1 == 0
	released := buttons&tcell.Button1 == 0 && prev&tcell.Button1 != 0
	held := buttons&tcell.Button1 != 0 && prev&tcell.Button1 != 0

	coord := h.eng.Coordinator()
	events := h.eng.Events()

	switch {
	case pressed:
		inside := boxDrawn && box.Contains(pos)
		events.Dispatch(event.TypePointerDown, event.PointerEventData{Pos: pos, InsidePopup: inside})

		if inside {
			coord.InteractionStart()
			if kind, ok := buttonAt(box, pos); ok {
				h.invoke(kind)
			}
			// Clicking the instructions row just keeps the suppression so
			// subsequent keys land in the field.
			return true
		}
		if coord.Interacting() {
			coord.InteractionEnd()
		}
		if lay != nil {
			anchor := lay.offsetAt(pos)
			h.mu.Lock()
			h.dragAnchor = anchor
			h.dragging = true
			h.mu.Unlock()
			h.eng.Doc().SetSelection(types.Range{From: anchor, To: anchor})
		}
		return true

	case held:
		h.mu.Lock()
		dragging := h.dragging
		anchor := h.dragAnchor
		h.mu.Unlock()
		if dragging && lay != nil {
			h.eng.Doc().SetSelection(types.NewRange(anchor, lay.offsetAt(pos)))
		}
		return true

	case released:
		h.mu.Lock()
		h.dragging = false
		h.mu.Unlock()
		events.Dispatch(event.TypePointerUp, event.PointerEventData{Pos: pos, InsidePopup: boxDrawn && box.Contains(pos)})
		return true
	}
	return false
}

// invoke runs a transformation on the popup's highlighted range.
func (h *Host) invoke(kind transform.Kind) {
	r := h.eng.Doc().Selection()
	if id, ok := h.eng.Coordinator().CurrentHighlight(); ok {
		if hl, found := h.eng.Overlay().Get(id); found {
			r = hl.Range
		}
	}

	h.mu.Lock()
	instructions := string(h.instructions)
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), h.eng.Config().Transform.Timeout())
	go func() {
		defer cancel()
		if err := h.eng.Dispatcher().Invoke(ctx, kind, r, instructions); err != nil {
			logger.DebugTagf("tui", "invoke %s: %v", kind, err)
		}
		h.eng.RequestRedraw()
	}()
	h.eng.RequestRedraw()
}

// --- Drawing ---

// draw clears the screen and redraws the document, popup and status bar.
func (h *Host) draw() {
	screen := h.tuiManager.GetScreen()
	width, height := h.tuiManager.Size()

	doc := h.eng.Doc()
	coord := h.eng.Coordinator()
	text := doc.FullText()

	lay := buildLayout(text, types.Point{X: 2, Y: 1}, width-4, height-2)

	h.mu.Lock()
	h.lay = lay
	instructions := string(h.instructions)
	h.mu.Unlock()

	h.tuiManager.Clear()
	DrawDocument(h.tuiManager, lay, text, h.eng.Overlay().List())
	DrawCursor(h.tuiManager, lay, doc.Selection())

	drawn := false
	var box types.Rect
	if coord.Visible() {
		box = popupRect(coord.Anchor())
		DrawPopup(h.tuiManager, box, popupContent{
			Snippet:      coord.SelectedText(),
			Instructions: instructions,
			Notice:       coord.Notice(),
			Loading:      h.eng.Dispatcher().IsLoading(),
			Interacting:  coord.Interacting(),
		})
		drawn = true
	}

	h.mu.Lock()
	h.popupBox = box
	h.popupDrawn = drawn
	h.mu.Unlock()

	h.statusBar.SetWordCount(statusbar.CountWords(text))
	h.statusBar.SetPopupState(coord.State().String())
	h.statusBar.SetLoading(h.eng.Dispatcher().IsLoading())
	h.statusBar.Draw(screen, width, height)

	h.tuiManager.Show()
}

// --- Geometry (popup placement) ---

// SelectionRect returns the bounding rectangle of the highlighted range in
// the last-drawn layout.
func (h *Host) SelectionRect() (types.Rect, bool) {
	h.mu.Lock()
	lay := h.lay
	h.mu.Unlock()
	if lay == nil {
		return types.Rect{}, false
	}
	sel := h.eng.Doc().Selection()
	if sel.IsCollapsed() {
		if id, ok := h.eng.Coordinator().CurrentHighlight(); ok {
			if hl, found := h.eng.Overlay().Get(id); found {
				sel = hl.Range
			}
		}
	}
	return lay.rangeRect(sel)
}

// ContainerRect returns the text area rectangle.
func (h *Host) ContainerRect() types.Rect {
	w, hgt := h.tuiManager.Size()
	return types.Rect{X: 2, Y: 1, W: w - 4, H: hgt - 2}
}

// ViewportSize returns the terminal dimensions.
func (h *Host) ViewportSize() (int, int) {
	return h.tuiManager.Size()
}

// PopupSize returns the action box dimensions.
func (h *Host) PopupSize() (int, int) {
	return popupWidth, popupHeight
}
