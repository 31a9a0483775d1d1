package stream

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/bus"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/observability"
)

// sseSink writes text/event-stream frames.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) Send(_ context.Context, f Frame) error {
	var buf bytes.Buffer
	buf.WriteString("event: ")
	buf.WriteString(f.Event)
	buf.WriteByte('\n')
	for _, line := range bytes.Split(f.Data, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')

	if _, err := s.w.Write(buf.Bytes()); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Ping writes an SSE comment line, which clients ignore.
func (s *sseSink) Ping(context.Context) error {
	if _, err := s.w.Write([]byte(": ping\n\n")); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// SSEHandler serves GET /stream/{channel} as server-sent events.
type SSEHandler struct {
	fanout *Fanout
}

// NewSSEHandler creates an SSE handler.
func NewSSEHandler(f *Fanout) *SSEHandler {
	return &SSEHandler{fanout: f}
}

// ServeHTTP streams the channel named by the {channel} path value.
func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	channel := r.PathValue("channel")
	if !h.fanout.bus.HasChannel(channel) {
		http.Error(w, "unknown channel", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	defer observability.StreamOpened("sse")()

	err := h.fanout.Serve(r.Context(), channel, &sseSink{w: w, flusher: flusher})
	if err != nil && !errors.Is(err, bus.ErrUnknownChannel) {
		h.fanout.logger.Printf("sse stream %s ended: %v", channel, err)
	}
}
