package ws

import (
	"sync"

	"golang.org/x/net/websocket"
)

type Subscriber struct {
	conn *websocket.Conn
	out  chan []byte

	mu     sync.RWMutex
	closed bool
	topics map[string]struct{}
}

func NewSubscriber(conn *websocket.Conn) *Subscriber {
	return &Subscriber{
		conn:   conn,
		out:    make(chan []byte, 64),
		topics: map[string]struct{}{},
	}
}

// send drops the connection instead of blocking when the subscriber cannot
// keep up. The lock orders send against closeOut: once closeOut has run, a
// late publish is a no-op rather than a send on a closed channel.
func (s *Subscriber) send(payload []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.out <- payload:
	default:
		_ = s.conn.Close()
	}
}

// closeOut stops the writer goroutine. Safe to call more than once.
func (s *Subscriber) closeOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.out)
}

func (s *Subscriber) addTopic(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics[topic] = struct{}{}
}

func (s *Subscriber) listTopics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.topics))
	for topic := range s.topics {
		out = append(out, topic)
	}
	return out
}

type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: map[string]map[*Subscriber]struct{}{}}
}

func (h *Hub) Subscribe(topic string, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[topic]; !ok {
		h.subscribers[topic] = map[*Subscriber]struct{}{}
	}
	h.subscribers[topic][sub] = struct{}{}
	sub.addTopic(topic)
}

func (h *Hub) UnsubscribeAll(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range sub.listTopics() {
		if subs, ok := h.subscribers[topic]; ok {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(h.subscribers, topic)
			}
		}
	}
}

// Publish snapshots the subscriber set under the lock and delivers outside
// it, so a concurrent unsubscribe cannot mutate the map mid-iteration.
func (h *Hub) Publish(topic string, payload []byte) {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subscribers[topic]))
	for s := range h.subscribers[topic] {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		s.send(payload)
	}
}
