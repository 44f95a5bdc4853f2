// internal/web/server.go
package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/scribeworks/scribe/internal/engine"
	"github.com/scribeworks/scribe/internal/event"
	"github.com/scribeworks/scribe/internal/logger"
	"github.com/scribeworks/scribe/internal/transform"
	"github.com/scribeworks/scribe/internal/types"
)

//go:embed static/*
var staticFS embed.FS

// Server bridges a browser editor surface to the coordination engine over
// a WebSocket. The browser reports raw input events and measured
// rectangles; the engine decides, and the server broadcasts popup and
// highlight state back.
type Server struct {
	eng      *engine.Engine
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  []*wsClient

	geo hostGeometry
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

type rpcRequest struct {
	ID     any             `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	ID     any       `json:"id"`
	Result any       `json:"result,omitempty"`
	Error  *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// wireRect is the browser's DOMRect, rounded to ints.
type wireRect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func (r wireRect) rect() types.Rect {
	return types.Rect{X: r.X, Y: r.Y, W: r.W, H: r.H}
}

// hostGeometry holds the rectangles the browser last reported. The
// engine never measures anything itself.
type hostGeometry struct {
	mu        sync.Mutex
	selection types.Rect
	selOK     bool
	container types.Rect
	viewportW int
	viewportH int
	popupW    int
	popupH    int
}

func (g *hostGeometry) SelectionRect() (types.Rect, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.selOK || g.selection.IsDegenerate() {
		return types.Rect{}, false
	}
	return g.selection, true
}

func (g *hostGeometry) ContainerRect() types.Rect {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.container
}

func (g *hostGeometry) ViewportSize() (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.viewportW, g.viewportH
}

func (g *hostGeometry) PopupSize() (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.popupW, g.popupH
}

// NewServer creates a web bridge around an engine and subscribes it to
// the engine's outbound notifications.
func NewServer(eng *engine.Engine) *Server {
	s := &Server{
		eng: eng,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	eng.SetGeometry(&s.geo)

	events := eng.Events()
	events.Subscribe(event.TypePopupShown, func(e event.Event) bool {
		if data, ok := e.Data.(event.PopupShownData); ok {
			s.Broadcast("popupShown", map[string]any{
				"anchor": map[string]int{"x": data.Anchor.X, "y": data.Anchor.Y},
				"text":   data.Text,
			})
		}
		return false
	})
	events.Subscribe(event.TypePopupHidden, func(e event.Event) bool {
		if data, ok := e.Data.(event.PopupHiddenData); ok {
			s.Broadcast("popupHidden", map[string]string{"reason": data.Reason})
		}
		return false
	})
	events.Subscribe(event.TypeHighlightChanged, func(e event.Event) bool {
		s.Broadcast("highlights", s.currentHighlights())
		return false
	})
	events.Subscribe(event.TypeDocChanged, func(e event.Event) bool {
		s.Broadcast("document", s.documentState())
		return false
	})
	events.Subscribe(event.TypeActionStarted, func(e event.Event) bool {
		if data, ok := e.Data.(event.ActionStartedData); ok {
			s.Broadcast("actionStarted", map[string]string{"kind": string(data.Kind)})
		}
		return false
	})
	events.Subscribe(event.TypeActionCompleted, func(e event.Event) bool {
		if data, ok := e.Data.(event.ActionCompletedData); ok {
			s.Broadcast("actionCompleted", map[string]any{
				"kind": string(data.Kind),
				"from": data.NewRange.From,
				"to":   data.NewRange.To,
			})
		}
		return false
	})
	events.Subscribe(event.TypeActionFailed, func(e event.Event) bool {
		if data, ok := e.Data.(event.ActionFailedData); ok {
			s.Broadcast("actionFailed", map[string]string{
				"kind":    string(data.Kind),
				"message": data.Message,
			})
		}
		return false
	})

	return s
}

// Run starts the HTTP server and blocks.
func (s *Server) Run(addr string) error {
	logger.Infof("Web bridge listening on %s", addr)
	s.eng.Start()
	defer s.eng.Shutdown()
	return http.ListenAndServe(addr, s)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/ws" {
		s.handleWebSocket(w, r)
		return
	}
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		http.Error(w, "static files unavailable", 500)
		return
	}
	http.FileServer(http.FS(sub)).ServeHTTP(w, r)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("websocket upgrade: %v", err)
		return
	}
	client := &wsClient{conn: conn}
	s.mu.Lock()
	s.clients = append(s.clients, client)
	s.mu.Unlock()

	defer func() {
		conn.Close()
		s.mu.Lock()
		for i, c := range s.clients {
			if c == client {
				s.clients = append(s.clients[:i], s.clients[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req rpcRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			continue
		}
		resp := s.handleRPC(req)
		data, _ := json.Marshal(resp)
		client.mu.Lock()
		_ = conn.WriteMessage(websocket.TextMessage, data)
		client.mu.Unlock()
	}
}

func (s *Server) handleRPC(req rpcRequest) rpcResponse {
	switch req.Method {
	case "pointerDown":
		return s.rpcPointer(req, event.TypePointerDown)
	case "pointerUp":
		return s.rpcPointer(req, event.TypePointerUp)
	case "touchStart":
		return s.rpcTouch(req, event.TypeTouchStart)
	case "touchMove":
		return s.rpcTouch(req, event.TypeTouchMove)
	case "touchEnd":
		return s.rpcTouch(req, event.TypeTouchEnd)
	case "dragStart":
		s.eng.Events().Dispatch(event.TypeDragStart, event.GestureData{Modality: event.ModalityDrag})
		return ok(req)
	case "dragEnd":
		s.eng.Events().Dispatch(event.TypeDragEnd, event.GestureData{Modality: event.ModalityDrag})
		return ok(req)
	case "selectionChanged":
		return s.rpcSelectionChanged(req)
	case "geometry":
		return s.rpcGeometry(req)
	case "replaceRange":
		return s.rpcReplaceRange(req)
	case "interactionStart":
		s.eng.Coordinator().InteractionStart()
		return ok(req)
	case "interactionEnd":
		s.eng.Coordinator().InteractionEnd()
		return ok(req)
	case "forceShow":
		s.eng.Coordinator().ForceShow()
		return ok(req)
	case "cancel":
		s.eng.Coordinator().Cancel()
		return ok(req)
	case "complete":
		s.eng.Coordinator().Complete()
		return ok(req)
	case "invoke":
		return s.rpcInvoke(req)
	case "copyResult":
		if err := s.eng.Dispatcher().CopyResult(); err != nil {
			return fail(req, err)
		}
		return ok(req)
	case "getDocument":
		return rpcResponse{ID: req.ID, Result: s.documentState()}
	case "history":
		return rpcResponse{ID: req.ID, Result: s.eng.Dispatcher().History()}
	default:
		return rpcResponse{
			ID:    req.ID,
			Error: &rpcError{Code: -32601, Message: fmt.Sprintf("unknown method: %s", req.Method)},
		}
	}
}

func ok(req rpcRequest) rpcResponse {
	return rpcResponse{ID: req.ID, Result: map[string]string{"status": "ok"}}
}

func fail(req rpcRequest, err error) rpcResponse {
	return rpcResponse{ID: req.ID, Error: &rpcError{Code: -32000, Message: err.Error()}}
}

func badParams(req rpcRequest, err error) rpcResponse {
	return rpcResponse{ID: req.ID, Error: &rpcError{Code: -32602, Message: err.Error()}}
}

func (s *Server) rpcPointer(req rpcRequest, t event.Type) rpcResponse {
	var p struct {
		X           int  `json:"x"`
		Y           int  `json:"y"`
		InsidePopup bool `json:"insidePopup"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return badParams(req, err)
	}
	s.eng.Events().Dispatch(t, event.PointerEventData{
		Pos:         types.Point{X: p.X, Y: p.Y},
		InsidePopup: p.InsidePopup,
	})
	return ok(req)
}

func (s *Server) rpcTouch(req rpcRequest, t event.Type) rpcResponse {
	var p struct {
		X           int  `json:"x"`
		Y           int  `json:"y"`
		InsidePopup bool `json:"insidePopup"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return badParams(req, err)
	}
	s.eng.Events().Dispatch(t, event.TouchEventData{
		Pos:         types.Point{X: p.X, Y: p.Y},
		InsidePopup: p.InsidePopup,
	})
	return ok(req)
}

// rpcSelectionChanged mirrors the browser's selection into the document,
// which feeds the selection observer through its native callback.
func (s *Server) rpcSelectionChanged(req rpcRequest) rpcResponse {
	var p struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return badParams(req, err)
	}
	s.eng.Doc().SetSelection(types.NewRange(p.From, p.To))
	return ok(req)
}

// rpcGeometry stores the browser's measured rectangles for popup placement.
func (s *Server) rpcGeometry(req rpcRequest) rpcResponse {
	var p struct {
		Selection *wireRect `json:"selection"`
		Container wireRect  `json:"container"`
		ViewportW int       `json:"viewportW"`
		ViewportH int       `json:"viewportH"`
		PopupW    int       `json:"popupW"`
		PopupH    int       `json:"popupH"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return badParams(req, err)
	}
	s.geo.mu.Lock()
	s.geo.selOK = p.Selection != nil
	if p.Selection != nil {
		s.geo.selection = p.Selection.rect()
	}
	s.geo.container = p.Container.rect()
	s.geo.viewportW = p.ViewportW
	s.geo.viewportH = p.ViewportH
	s.geo.popupW = p.PopupW
	s.geo.popupH = p.PopupH
	s.geo.mu.Unlock()
	return ok(req)
}

// rpcReplaceRange applies a browser-driven edit to the document.
func (s *Server) rpcReplaceRange(req rpcRequest) rpcResponse {
	var p struct {
		From int    `json:"from"`
		To   int    `json:"to"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return badParams(req, err)
	}
	newCursor, err := s.eng.Doc().ReplaceRange(types.NewRange(p.From, p.To), p.Text)
	if err != nil {
		return fail(req, err)
	}
	return rpcResponse{ID: req.ID, Result: map[string]int{"cursor": newCursor}}
}

// rpcInvoke runs a transformation asynchronously; the outcome arrives as
// an actionCompleted/actionFailed broadcast.
func (s *Server) rpcInvoke(req rpcRequest) rpcResponse {
	var p struct {
		Kind         string `json:"kind"`
		From         int    `json:"from"`
		To           int    `json:"to"`
		Instructions string `json:"instructions"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return badParams(req, err)
	}
	kind := transform.Kind(p.Kind)
	if !kind.Valid() {
		return fail(req, fmt.Errorf("unknown action kind %q", p.Kind))
	}

	r := types.NewRange(p.From, p.To)
	if r.IsCollapsed() {
		if id, found := s.eng.Coordinator().CurrentHighlight(); found {
			if hl, have := s.eng.Overlay().Get(id); have {
				r = hl.Range
			}
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.eng.Config().Transform.Timeout())
		defer cancel()
		if err := s.eng.Dispatcher().Invoke(ctx, kind, r, p.Instructions); err != nil {
			logger.DebugTagf("web", "invoke %s: %v", kind, err)
		}
	}()
	return ok(req)
}

// documentState is the full document payload for broadcasts and getDocument.
func (s *Server) documentState() map[string]any {
	doc := s.eng.Doc()
	sel := doc.Selection()
	return map[string]any{
		"text": doc.FullText(),
		"selection": map[string]int{
			"from": sel.From,
			"to":   sel.To,
		},
	}
}

func (s *Server) currentHighlights() []map[string]any {
	list := s.eng.Overlay().List()
	out := make([]map[string]any, 0, len(list))
	for _, h := range list {
		out = append(out, map[string]any{
			"id":    h.ID,
			"from":  h.Range.From,
			"to":    h.Range.To,
			"style": h.Style,
		})
	}
	return out
}

// Broadcast sends a notification to all connected WebSocket clients.
func (s *Server) Broadcast(method string, params any) {
	msg, err := json.Marshal(map[string]any{
		"method": method,
		"params": params,
	})
	if err != nil {
		return
	}
	s.mu.Lock()
	clients := append([]*wsClient(nil), s.clients...)
	s.mu.Unlock()

	for _, c := range clients {
		c.mu.Lock()
		_ = c.conn.WriteMessage(websocket.TextMessage, msg)
		c.mu.Unlock()
	}
}
