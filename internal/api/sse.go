package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/events"
)

// sseKeepAlive is how often an idle stream gets a comment line, so proxies
// do not time the connection out.
var sseKeepAlive = 15 * time.Second

// handleSSE streams run lifecycle events until the client disconnects or
// the bus closes. Repeated ?type= parameters narrow the stream; an unknown
// type is rejected before the stream starts.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	types := r.URL.Query()["type"]
	for _, t := range types {
		if !events.IsKnownType(t) {
			s.respondError(w, http.StatusBadRequest,
				fmt.Sprintf("unknown event type %q (known: %s)", t, strings.Join(events.KnownTypes(), ", ")))
			return
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	eventCh := s.eventBus.Subscribe(types...)
	defer s.eventBus.Unsubscribe(eventCh)

	stream := &sseStream{w: w, flusher: flusher}
	s.logger.Info("SSE client connected", "remote_addr", r.RemoteAddr, "types", types)
	s.writeSSE(stream, "connected", map[string]any{"status": "connected", "types": types})

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("SSE client disconnected", "remote_addr", r.RemoteAddr)
			return
		case <-ticker.C:
			stream.comment("keepalive")
		case event, ok := <-eventCh:
			if !ok {
				s.logger.Info("event bus closed, ending SSE stream", "remote_addr", r.RemoteAddr)
				return
			}
			s.writeSSE(stream, event.EventType(), event)
		}
	}
}

// sseStream numbers the events it writes so clients can tell gaps from
// reconnects.
type sseStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	nextID  int
}

func (s *Server) writeSSE(stream *sseStream, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to marshal SSE data", "event_type", eventType, "error", err)
		return
	}
	stream.nextID++
	fmt.Fprintf(stream.w, "id: %d\nevent: %s\ndata: %s\n\n", stream.nextID, eventType, payload)
	stream.flusher.Flush()
}

func (st *sseStream) comment(text string) {
	fmt.Fprintf(st.w, ": %s\n\n", text)
	st.flusher.Flush()
}
