package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gin-contrib/sse"
	"go.uber.org/zap"
)

// ErrHubStopped is returned once Run has exited.
var ErrHubStopped = errors.New("hub stopped")

const subscriberBuffer = 16

// Subscriber receives framed server-sent events on C. C is closed when the
// subscriber is dropped.
type Subscriber struct {
	C chan []byte
}

// Hub fans events out to every connected stream.
type Hub struct {
	register   chan *Subscriber
	unregister chan *Subscriber
	broadcast  chan []byte
	done       chan struct{}
	count      atomic.Int64
	log        *zap.Logger
}

// NewHub returns a hub; call Run to start it.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		register:   make(chan *Subscriber),
		unregister: make(chan *Subscriber),
		broadcast:  make(chan []byte),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run serves registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	subs := make(map[*Subscriber]struct{})
	defer func() {
		for s := range subs {
			close(s.C)
		}
		h.count.Store(0)
		close(h.done)
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-h.register:
			subs[s] = struct{}{}
			h.count.Store(int64(len(subs)))
			h.log.Debug("stream connected", zap.Int("subscribers", len(subs)))
		case s := <-h.unregister:
			if _, ok := subs[s]; ok {
				delete(subs, s)
				close(s.C)
				h.count.Store(int64(len(subs)))
				h.log.Debug("stream disconnected", zap.Int("subscribers", len(subs)))
			}
		case msg := <-h.broadcast:
			for s := range subs {
				select {
				case s.C <- msg:
				default:
					// slow reader
					delete(subs, s)
					close(s.C)
					h.log.Warn("dropped slow stream")
				}
			}
			h.count.Store(int64(len(subs)))
		}
	}
}

// Subscribe registers a new stream.
func (h *Hub) Subscribe(ctx context.Context) (*Subscriber, error) {
	s := &Subscriber{C: make(chan []byte, subscriberBuffer)}
	select {
	case h.register <- s:
		return s, nil
	case <-h.done:
		return nil, ErrHubStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Unsubscribe drops s. It is safe to call after the hub stopped.
func (h *Hub) Unsubscribe(s *Subscriber) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

// Subscribers reports how many streams are connected.
func (h *Hub) Subscribers() int { return int(h.count.Load()) }

// Publish sends v as JSON under the given event name to every stream.
func (h *Hub) Publish(ctx context.Context, event string, v any) error {
	msg, err := Frame(event, v)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- msg:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Frame encodes one server-sent event.
func Frame(event string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event, err)
	}
	var b bytes.Buffer
	if err := sse.Encode(&b, sse.Event{Event: event, Data: string(data)}); err != nil {
		return nil, fmt.Errorf("frame %s event: %w", event, err)
	}
	return b.Bytes(), nil
}
