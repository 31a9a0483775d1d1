package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// ClientConfig configures a stream Client.
type ClientConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential backoff.
	MaxReconnectDelay time.Duration
	// ReadTimeout is the longest a connection may stay silent. Server pings
	// count as activity.
	ReadTimeout time.Duration
	// Buffer is the capacity of the returned frame channel.
	Buffer int
}

// DefaultClientConfig returns the default client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       90 * time.Second,
		Buffer:            256,
	}
}

// Client follows a /ws/{channel} endpoint and reconnects on failure.
type Client struct {
	url    string
	config ClientConfig
	logger *log.Logger
}

// NewClient creates a client for a full ws:// URL. A nil config uses defaults.
func NewClient(url string, config *ClientConfig, logger *log.Logger) *Client {
	cfg := DefaultClientConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{url: url, config: cfg, logger: logger}
}

// Run streams frames until ctx is done. The returned channel is closed when
// Run exits. Every reconnect yields a fresh connected frame.
func (c *Client) Run(ctx context.Context) <-chan Frame {
	out := make(chan Frame, c.config.Buffer)

	go func() {
		defer close(out)

		delay := c.config.ReconnectDelay
		for ctx.Err() == nil {
			received, err := c.session(ctx, out)
			if ctx.Err() != nil {
				return
			}
			if received {
				delay = c.config.ReconnectDelay
			}
			c.logger.Printf("stream %s: %v, reconnecting in %s", c.url, err, delay)

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			delay *= 2
			if delay > c.config.MaxReconnectDelay {
				delay = c.config.MaxReconnectDelay
			}
		}
	}()

	return out
}

// session holds one connection open and reports whether any frame arrived.
func (c *Client) session(ctx context.Context, out chan<- Frame) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return false, fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	received := false
	for {
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return received, fmt.Errorf("read: %w", err)
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.logger.Printf("stream %s: skipping malformed frame: %v", c.url, err)
			continue
		}
		received = true

		select {
		case out <- Frame{Event: env.Event, Data: env.Data}:
		case <-ctx.Done():
			return received, ctx.Err()
		}
	}
}
