// internal/adapters/in/http/handler/events_handler.go
package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	usecase "cartsync/internal/application/usecase"
)

// NoticeHub fans user-facing notices out to connected event streams.
// Implements usecase.Notifier; Notify never blocks the mutation path.
type NoticeHub struct {
	mu      sync.Mutex
	subs    map[int]chan usecase.Notice
	nextSub int
}

func NewNoticeHub() *NoticeHub {
	return &NoticeHub{subs: map[int]chan usecase.Notice{}}
}

func (h *NoticeHub) Notify(n usecase.Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

func (h *NoticeHub) subscribe() (<-chan usecase.Notice, func()) {
	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	ch := make(chan usecase.Notice, 16)
	h.subs[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if cur, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(cur)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// EventsHandler streams cart snapshots and notices over SSE so page badges
// and availability indicators update passively.
//
// Events:
// - event: cart    data: [lines...]
// - event: notice  data: {notice}
type EventsHandler struct {
	engine  *usecase.CartEngine
	notices *NoticeHub
}

func NewEventsHandler(engine *usecase.CartEngine, notices *NoticeHub) http.Handler {
	return &EventsHandler{engine: engine, notices: notices}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.engine == nil {
		writeErr(w, http.StatusInternalServerError, "cart engine is not configured")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	carts, cancelCarts := h.engine.Subscribe()
	defer cancelCarts()

	var noticeCh <-chan usecase.Notice
	if h.notices != nil {
		ch, cancelNotices := h.notices.subscribe()
		defer cancelNotices()
		noticeCh = ch
	}

	log.Printf("[events_handler] stream open remote=%s", r.RemoteAddr)
	defer log.Printf("[events_handler] stream closed remote=%s", r.RemoteAddr)

	// Initial snapshot so a fresh subscriber renders without waiting for the
	// next mutation.
	writeSSE(w, "cart", h.engine.Lines())
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot, ok := <-carts:
			if !ok {
				return
			}
			writeSSE(w, "cart", snapshot)
			flusher.Flush()
		case n, ok := <-noticeCh:
			if !ok {
				return
			}
			writeSSE(w, "notice", n)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
}
