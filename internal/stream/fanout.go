// Package stream forwards bus messages to long-lived client connections.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/bus"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/observability"
)

// EventConnected is the name of the acknowledgement frame sent first on every stream.
const EventConnected = "connected"

// DefaultPollInterval bounds how long Serve waits on the bus before
// re-checking client liveness.
const DefaultPollInterval = 250 * time.Millisecond

// DefaultKeepAlive is how long a stream may stay silent before Serve pings.
const DefaultKeepAlive = 15 * time.Second

// Frame is one named event written to a client.
type Frame struct {
	Event string
	Data  []byte // JSON
}

// Sink writes frames to one client.
type Sink interface {
	Send(ctx context.Context, f Frame) error
}

// Pinger is implemented by sinks that need traffic on an idle connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EventName maps a bus channel to the frame name clients see.
func EventName(channel string) string {
	switch channel {
	case bus.ChannelSales:
		return "sales"
	case bus.ChannelAlerts:
		return "alert"
	case bus.ChannelInventory:
		return "inventory_update"
	default:
		return channel
	}
}

// Fanout serves bus channels to clients. One Serve call per client.
type Fanout struct {
	bus       *bus.Bus
	poll      time.Duration
	keepAlive time.Duration
	now       func() time.Time
	logger    *log.Logger
}

// Options configures a Fanout.
type Options struct {
	PollInterval time.Duration // default 250ms
	KeepAlive    time.Duration // default 15s, applies to sinks implementing Pinger
	Logger       *log.Logger
}

// NewFanout creates a fan-out over b.
func NewFanout(b *bus.Bus, opts Options) *Fanout {
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	keepAlive := opts.KeepAlive
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Fanout{bus: b, poll: poll, keepAlive: keepAlive, now: time.Now, logger: logger}
}

type connectedPayload struct {
	Message   string    `json:"message"`
	Channel   string    `json:"channel"`
	Timestamp time.Time `json:"timestamp"`
}

func (f *Fanout) connectedFrame(channel string) Frame {
	data, _ := json.Marshal(connectedPayload{
		Message:   fmt.Sprintf("Connected to %s stream", channel),
		Channel:   channel,
		Timestamp: f.now().UTC(),
	})
	return Frame{Event: EventConnected, Data: data}
}

// Serve writes one connected frame, subscribes to channel and forwards every
// message until ctx is done, the subscription is closed, or a write fails.
// The subscription is always released before Serve returns. A cancelled
// context is a normal exit and returns nil.
func (f *Fanout) Serve(ctx context.Context, channel string, sink Sink) error {
	if !f.bus.HasChannel(channel) {
		return fmt.Errorf("%w: %q", bus.ErrUnknownChannel, channel)
	}

	if err := sink.Send(ctx, f.connectedFrame(channel)); err != nil {
		return fmt.Errorf("send connected frame: %w", err)
	}
	observability.RecordFrame(EventConnected)

	sub, err := f.bus.Subscribe(channel)
	if err != nil {
		return err
	}
	defer f.bus.Unsubscribe(sub)

	pinger, _ := sink.(Pinger)
	lastSent := f.now()

	event := EventName(channel)
	for {
		msg, err := sub.Receive(ctx, f.poll)
		switch {
		case err == nil:
		case errors.Is(err, bus.ErrTimeout):
			if ctx.Err() != nil {
				return nil
			}
			if pinger != nil && f.now().Sub(lastSent) >= f.keepAlive {
				if err := pinger.Ping(ctx); err != nil {
					return fmt.Errorf("send keep-alive: %w", err)
				}
				lastSent = f.now()
			}
			continue
		case errors.Is(err, bus.ErrClosed):
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			return err
		}

		if err := sink.Send(ctx, Frame{Event: event, Data: msg.Data}); err != nil {
			return fmt.Errorf("send %s frame: %w", event, err)
		}
		lastSent = f.now()
		observability.RecordFrame(event)
	}
}
