// Package bus is an in-process named-channel publish/subscribe hub.
//
// Each subscription owns a bounded ring buffer. When a subscriber falls
// behind, the oldest undelivered message is evicted so the publisher never
// blocks. Delivery is best-effort and in-memory: there is no replay, and a
// subscription only sees messages published after it was created.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/observability"
)

// Channel names.
const (
	ChannelSales     = "sales"
	ChannelAlerts    = "alerts"
	ChannelInventory = "inventory"
)

// DefaultChannels are registered when Options.Channels is empty.
var DefaultChannels = []string{ChannelSales, ChannelAlerts, ChannelInventory}

var (
	// ErrTimeout is returned by Receive when no message arrived in time.
	ErrTimeout = errors.New("bus: receive timeout")

	// ErrClosed is returned by Receive after the subscription was removed.
	ErrClosed = errors.New("bus: subscription closed")

	// ErrUnknownChannel is returned by Subscribe for unregistered channels.
	ErrUnknownChannel = errors.New("bus: unknown channel")
)

// Message is one published payload. Data must not be modified after publishing.
type Message struct {
	Channel     string
	Data        []byte
	Seq         uint64 // per-bus publish sequence
	PublishedAt time.Time
}

// Options configures a Bus.
type Options struct {
	Channels   []string // default: sales, alerts, inventory
	BufferSize int      // per-subscription capacity, default 256
}

// Bus routes messages from publishers to subscriptions.
type Bus struct {
	mu         sync.RWMutex
	subs       map[string]map[uint64]*Subscription
	bufferSize int
	nextID     atomic.Uint64
	seq        atomic.Uint64
}

// New creates a bus with the given channels registered.
func New(opts Options) *Bus {
	channels := opts.Channels
	if len(channels) == 0 {
		channels = DefaultChannels
	}
	size := opts.BufferSize
	if size <= 0 {
		size = 256
	}

	b := &Bus{
		subs:       make(map[string]map[uint64]*Subscription, len(channels)),
		bufferSize: size,
	}
	for _, ch := range channels {
		b.subs[ch] = make(map[uint64]*Subscription)
	}
	return b
}

// HasChannel reports whether channel is registered.
func (b *Bus) HasChannel(channel string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.subs[channel]
	return ok
}

// Publish delivers data to every current subscription on channel and returns
// how many accepted it. It never blocks on a slow subscriber.
func (b *Bus) Publish(channel string, data []byte) int {
	msg := Message{
		Channel:     channel,
		Data:        data,
		Seq:         b.seq.Add(1),
		PublishedAt: time.Now(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered, dropped := 0, 0
	for _, sub := range b.subs[channel] {
		accepted, evicted := sub.deliver(msg)
		if accepted {
			delivered++
		}
		if evicted {
			dropped++
		}
	}
	observability.RecordPublish(channel, dropped)
	return delivered
}

// Subscribe creates an independent delivery queue on channel.
func (b *Bus) Subscribe(channel string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subs[channel]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}

	sub := &Subscription{
		id:      b.nextID.Add(1),
		channel: channel,
		queue:   newRing(b.bufferSize),
		notify:  make(chan struct{}, 1),
	}
	subs[sub.id] = sub
	observability.SetSubscribers(channel, len(subs))
	return sub, nil
}

// Unsubscribe removes sub and wakes any pending Receive. Safe to call twice.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	if subs, ok := b.subs[sub.channel]; ok {
		if _, present := subs[sub.id]; present {
			delete(subs, sub.id)
			observability.SetSubscribers(sub.channel, len(subs))
		}
	}
	b.mu.Unlock()

	sub.close()
}

// Subscribers returns the number of live subscriptions on channel.
func (b *Bus) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

// Subscription is a single subscriber's queue.
type Subscription struct {
	id      uint64
	channel string

	mu      sync.Mutex
	queue   *ring
	closed  bool
	dropped uint64

	notify chan struct{}
}

// Channel returns the subscribed channel name.
func (s *Subscription) Channel() string {
	return s.channel
}

// Dropped returns how many messages were evicted from this subscription.
func (s *Subscription) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Pending returns the number of queued messages not yet received.
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.len()
}

func (s *Subscription) deliver(msg Message) (accepted, evicted bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, false
	}
	evicted = s.queue.push(msg)
	if evicted {
		s.dropped++
	}
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return true, evicted
}

func (s *Subscription) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Receive waits up to timeout for the next message. Queued messages are
// drained before ErrClosed is reported.
func (s *Subscription) Receive(ctx context.Context, timeout time.Duration) (Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		s.mu.Lock()
		if msg, ok := s.queue.pop(); ok {
			s.mu.Unlock()
			return msg, nil
		}
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return Message{}, ErrClosed
		}

		select {
		case <-s.notify:
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-timer.C:
			return Message{}, ErrTimeout
		}
	}
}
