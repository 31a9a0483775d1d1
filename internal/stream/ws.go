package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/bus"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/observability"
)

// Envelope is the JSON text frame sent over WebSocket connections.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WSOptions configures the WebSocket handler.
type WSOptions struct {
	WriteTimeout time.Duration // default 10s
	PingInterval time.Duration // default 30s
	PongTimeout  time.Duration // default 60s
	CheckOrigin  func(r *http.Request) bool
}

func (o *WSOptions) defaults() {
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 60 * time.Second
	}
	if o.CheckOrigin == nil {
		o.CheckOrigin = func(*http.Request) bool { return true }
	}
}

type wsSink struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (s *wsSink) Send(_ context.Context, f Frame) error {
	data := f.Data
	if len(data) == 0 {
		data = []byte("null")
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.conn.WriteJSON(Envelope{Event: f.Event, Data: data})
}

// WSHandler serves GET /ws/{channel} over WebSocket.
type WSHandler struct {
	fanout   *Fanout
	opts     WSOptions
	upgrader websocket.Upgrader
}

// NewWSHandler creates a WebSocket handler.
func NewWSHandler(f *Fanout, opts WSOptions) *WSHandler {
	opts.defaults()
	return &WSHandler{
		fanout: f,
		opts:   opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     opts.CheckOrigin,
		},
	}
}

// ServeHTTP upgrades the connection and streams the channel named by the
// {channel} path value. Client messages are read and discarded; a read error
// ends the stream.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	channel := r.PathValue("channel")
	if !h.fanout.bus.HasChannel(channel) {
		http.Error(w, "unknown channel", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.fanout.logger.Printf("ws upgrade %s: %v", channel, err)
		return
	}
	defer conn.Close()
	defer observability.StreamOpened("ws")()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(h.opts.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.opts.PongTimeout))
	})

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go h.pingLoop(ctx, conn)

	err = h.fanout.Serve(ctx, channel, &wsSink{conn: conn, writeTimeout: h.opts.WriteTimeout})
	if err != nil && !errors.Is(err, bus.ErrUnknownChannel) {
		h.fanout.logger.Printf("ws stream %s ended: %v", channel, err)
	}

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

// pingLoop uses WriteControl, which may run concurrently with the frame writer.
func (h *WSHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(h.opts.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
