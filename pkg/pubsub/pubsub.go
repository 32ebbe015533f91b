// Package pubsub provides in-process pub/sub messaging for stepform.
//
// The form session controller is the single producer: it publishes progress
// updates whenever a value or branch selection changes. Any number of
// consumers (live sockets, progress chrome) subscribe to the session's topic.
package pubsub

import (
	"errors"
	"strconv"
	"sync"
)

// ErrClosed is returned by operations on a closed bus.
var ErrClosed = errors.New("pubsub: bus is closed")

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe removes this subscription.
	Unsubscribe()

	// Topic returns the subscribed topic.
	Topic() string
}

// Bus is an in-memory publish/subscribe bus. Handlers run on a dedicated
// goroutine per subscription, fed by a buffered channel; a slow consumer
// drops messages rather than blocking publishers.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[string]*subscriber
	nextID int
	closed bool
}

type subscriber struct {
	ch        chan []byte
	closeOnce sync.Once
}

func (s *subscriber) close() {
	s.closeOnce.Do(func() { close(s.ch) })
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{topics: make(map[string]map[string]*subscriber)}
}

// Subscribe registers a handler for a topic. The handler runs until
// Unsubscribe or Close.
func (b *Bus) Subscribe(topic string, handler func(msg []byte)) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[string]*subscriber)
	}

	b.nextID++
	id := topic + "#" + strconv.Itoa(b.nextID)
	sub := &subscriber{ch: make(chan []byte, 64)}
	b.topics[topic][id] = sub

	go func() {
		for msg := range sub.ch {
			handler(msg)
		}
	}()

	return &busSubscription{bus: b, topic: topic, id: id}, nil
}

// Publish delivers msg to every subscriber of topic. Messages to subscribers
// with a full buffer are dropped.
func (b *Bus) Publish(topic string, msg []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}
	for _, sub := range b.topics[topic] {
		select {
		case sub.ch <- msg:
		default:
		}
	}
	return nil
}

// Close shuts down the bus and every subscription.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	b.closed = true
	for _, subs := range b.topics {
		for _, sub := range subs {
			sub.close()
		}
	}
	b.topics = make(map[string]map[string]*subscriber)
	return nil
}

type busSubscription struct {
	bus   *Bus
	topic string
	id    string
	once  sync.Once
}

func (s *busSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		if subs, ok := s.bus.topics[s.topic]; ok {
			if sub, ok := subs[s.id]; ok {
				sub.close()
				delete(subs, s.id)
			}
			if len(subs) == 0 {
				delete(s.bus.topics, s.topic)
			}
		}
	})
}

func (s *busSubscription) Topic() string {
	return s.topic
}
