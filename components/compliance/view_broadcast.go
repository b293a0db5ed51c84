package compliance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// ViewEvent is one repaint delivered to subscribers.
type ViewEvent struct {
	WorkspaceID string `json:"workspace_id"`
	View        View   `json:"view"`
}

type viewSubscriber struct {
	workspaceID string
	all         bool
	ch          chan ViewEvent
}

// ViewBroadcaster fans repaints out to in-process subscribers. Slow
// subscribers miss events instead of blocking the controller.
type ViewBroadcaster struct {
	mu   sync.RWMutex
	subs map[int]viewSubscriber
	next int

	origins  []string
	upgrader websocket.Upgrader
}

// BroadcastOption customizes a ViewBroadcaster.
type BroadcastOption func(*ViewBroadcaster)

// WithAllowedOrigins lists the cross-site origins allowed to open the
// websocket stream. "*" allows any origin.
func WithAllowedOrigins(origins ...string) BroadcastOption {
	return func(b *ViewBroadcaster) {
		for _, origin := range origins {
			if origin = strings.TrimSpace(origin); origin != "" {
				b.origins = append(b.origins, origin)
			}
		}
	}
}

// NewViewBroadcaster creates a broadcaster. Without allowed origins only
// same-host browsers may open the websocket stream.
func NewViewBroadcaster(options ...BroadcastOption) *ViewBroadcaster {
	b := &ViewBroadcaster{subs: make(map[int]viewSubscriber)}
	for _, opt := range options {
		opt(b)
	}
	b.upgrader = websocket.Upgrader{CheckOrigin: b.CheckOrigin}
	return b
}

// CheckOrigin reports whether r may open a stream. Requests without an
// Origin header come from non-browser clients and are accepted.
func (b *ViewBroadcaster) CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range b.origins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

var _ ViewSink = (*ViewBroadcaster)(nil)

// ViewUpdated implements ViewSink.
func (b *ViewBroadcaster) ViewUpdated(_ context.Context, workspaceID string, view View) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	event := ViewEvent{WorkspaceID: workspaceID, View: view}
	for _, sub := range b.subs {
		if !sub.all && sub.workspaceID != workspaceID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
}

// Subscribe returns a channel of repaints for workspaceID and a cancel func.
// An empty id is rejected with ErrMissingWorkspaceID.
func (b *ViewBroadcaster) Subscribe(workspaceID string) (<-chan ViewEvent, func(), error) {
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return nil, func() {}, ErrMissingWorkspaceID
	}
	ch, cancel := b.subscribe(viewSubscriber{workspaceID: workspaceID})
	return ch, cancel, nil
}

// SubscribeAll receives the repaints of every workspace. It is meant for
// in-process consumers such as audit logs, never for browser streams.
func (b *ViewBroadcaster) SubscribeAll() (<-chan ViewEvent, func()) {
	return b.subscribe(viewSubscriber{all: true})
}

func (b *ViewBroadcaster) subscribe(sub viewSubscriber) (<-chan ViewEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan ViewEvent, 16)
	sub.ch = ch
	b.subs[id] = sub
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub.ch)
		}
	}
	return ch, cancel
}

// Subscribers reports the number of live subscriptions.
func (b *ViewBroadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// ServeWebSocket upgrades the request and streams repaints of the workspace
// named by the `workspace` query parameter as JSON.
func (b *ViewBroadcaster) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	events, cancel, err := b.Subscribe(r.URL.Query().Get("workspace"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer cancel()

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

// ServeSSE streams repaints as Server-Sent Events.
func (b *ViewBroadcaster) ServeSSE(w http.ResponseWriter, r *http.Request) {
	events, cancel, err := b.Subscribe(r.URL.Query().Get("workspace"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer cancel()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	encoder := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			w.Write([]byte("data: "))
			if err := encoder.Encode(event); err != nil {
				return
			}
			w.Write([]byte("\n"))
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
