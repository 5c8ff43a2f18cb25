// bus.go
package bus

import (
	"sync"
)

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

// Topic is a sequence of path tokens. Subscriptions may use "+" to match
// exactly one token and a trailing "#" to match zero or more tokens.
type Topic []string

const (
	wildOne  = "+"
	wildRest = "#"
)

// T builds a Topic from tokens.
func T(tokens ...string) Topic { return Topic(tokens) }

// Append returns a new Topic with extra tokens.
func (t Topic) Append(tokens ...string) Topic {
	out := make(Topic, 0, len(t)+len(tokens))
	out = append(out, t...)
	return append(out, tokens...)
}

// Match reports whether a concrete topic matches this (possibly wildcard) filter.
func (t Topic) Match(concrete Topic) bool {
	for i, tok := range t {
		if tok == wildRest {
			return true
		}
		if i >= len(concrete) {
			return false
		}
		if tok != wildOne && tok != concrete[i] {
			return false
		}
	}
	return len(t) == len(concrete)
}

func (t Topic) key() string {
	n := 0
	for _, s := range t {
		n += len(s) + 1
	}
	b := make([]byte, 0, n)
	for i, s := range t {
		if i > 0 {
			b = append(b, '/')
		}
		b = append(b, s...)
	}
	return string(b)
}

// String renders the topic slash-separated.
func (t Topic) String() string { return t.key() }

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	filter Topic
	ch     chan *Message
	conn   *Connection
}

func (s *Subscription) Topic() Topic             { return s.filter }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu       sync.Mutex
	subs     []*Subscription
	retained map[string]*Message
	qLen     int
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{
		retained: map[string]*Message{},
		qLen:     queueLen,
	}
}

// NewMessage is a convenience constructor.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// Publish delivers a message to every matching subscriber. Delivery never
// blocks the publisher: a full subscriber queue loses its oldest message.
// A retained message with a nil payload clears the retained slot.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Retained {
		k := msg.Topic.key()
		if msg.Payload == nil {
			delete(b.retained, k)
		} else {
			b.retained[k] = msg
		}
	}
	for _, sub := range b.subs {
		if sub.filter.Match(msg.Topic) {
			deliver(sub.ch, msg)
		}
	}
}

func deliver(ch chan *Message, msg *Message) {
	select {
	case ch <- msg:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- msg:
	default:
	}
}

func (b *Bus) add(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, sub)
	for _, m := range b.retained {
		if sub.filter.Match(m.Topic) {
			deliver(sub.ch, m)
		}
	}
}

// remove detaches sub; it reports false if sub was already gone.
func (b *Bus) remove(sub *Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	id   string
	mu   sync.Mutex
	subs []*Subscription
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

// Subscribe registers a subscription owned by this connection. Retained
// messages matching the filter are delivered immediately.
func (c *Connection) Subscribe(filter Topic) *Subscription {
	sub := &Subscription{
		filter: filter,
		ch:     make(chan *Message, c.bus.qLen),
		conn:   c,
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	c.bus.add(sub)
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (c *Connection) Unsubscribe(sub *Subscription) {
	if !c.bus.remove(sub) {
		return
	}
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Disconnect closes all subscriptions owned by the connection.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, sub := range subs {
		if c.bus.remove(sub) {
			close(sub.ch)
		}
	}
}
