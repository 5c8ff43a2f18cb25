package charger

import (
	"context"
	"sync"
	"time"

	"chargerd-go/errcode"
	"chargerd-go/x/timex"

	"github.com/sirupsen/logrus"
)

// Serializer runs delayed tasks one at a time in posting order. Each
// event domain owns one so its handlers never overlap.
type Serializer struct {
	name string
	log  *logrus.Entry

	mu     sync.Mutex
	q      []*task
	closed bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

type task struct {
	key string
	due time.Time
	fn  func()
}

func NewSerializer(name string, log *logrus.Entry) *Serializer {
	s := &Serializer{
		name: name,
		log:  log.WithField("queue", name),
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

// Post enqueues fn to run after delay. It reports false once the
// serializer is closed; the task is then dropped.
func (s *Serializer) Post(delay time.Duration, fn func()) bool {
	return s.post("", delay, fn)
}

// PostCoalesced is Post, except that while a task with the same key is
// still pending the call is absorbed and the pending deadline kept.
func (s *Serializer) PostCoalesced(key string, delay time.Duration, fn func()) bool {
	return s.post(key, delay, fn)
}

func (s *Serializer) post(key string, delay time.Duration, fn func()) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.log.Debug("post after close dropped")
		return false
	}
	if key != "" {
		for _, t := range s.q {
			if t.key == key {
				s.mu.Unlock()
				return true
			}
		}
	}
	s.q = append(s.q, &task{key: key, due: time.Now().Add(delay), fn: fn})
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// Pending returns the number of queued tasks not yet started.
func (s *Serializer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.q)
}

// Flush waits until every task posted before the call has run.
func (s *Serializer) Flush(ctx context.Context) error {
	ch := make(chan struct{})
	if !s.Post(0, func() { close(ch) }) {
		return errcode.Closed
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close discards pending tasks, waits for a running one to finish and
// makes later posts no-ops. It must not be called from a task of the
// same serializer.
func (s *Serializer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	dropped := len(s.q)
	s.q = nil
	s.mu.Unlock()

	close(s.stop)
	<-s.done
	if dropped > 0 {
		s.log.WithField("dropped", dropped).Debug("closed with pending tasks")
	}
}

func (s *Serializer) run() {
	defer close(s.done)

	t := time.NewTimer(time.Hour)
	t.Stop()
	defer t.Stop()

	for {
		s.mu.Lock()
		var head *task
		if len(s.q) > 0 {
			head = s.q[0]
		}
		s.mu.Unlock()

		if head == nil {
			select {
			case <-s.stop:
				return
			case <-s.wake:
			}
			continue
		}

		if wait := time.Until(head.due); wait > 0 {
			timex.ResetTimer(t, wait)
			select {
			case <-s.stop:
				return
			case <-s.wake:
			case <-t.C:
			}
			continue
		}

		s.mu.Lock()
		if s.closed || len(s.q) == 0 || s.q[0] != head {
			s.mu.Unlock()
			continue
		}
		s.q[0] = nil
		s.q = s.q[1:]
		s.mu.Unlock()

		head.fn()
	}
}
