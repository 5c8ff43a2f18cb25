// Package irq moves GPIO interrupts out of interrupt context: handlers
// registered here run on the worker goroutine after debounce and edge
// filtering.
package irq

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

// Pin is an input line able to call back on edges. The callback may run
// in interrupt context and must not block.
type Pin interface {
	Get() bool
	SetIRQ(edge Edge, h func()) error
	ClearIRQ() error
}

// Event is delivered to a line's handler.
type Event struct {
	Line  string
	Level bool // after inversion
	Edge  Edge
	TS    time.Time
}

type Handler func(Event)

type Worker struct {
	// Written by ISR; MUST NOT block the ISR:
	isrQ    chan isrEvent
	stopped chan struct{}
	log     *logrus.Entry

	mu    sync.RWMutex
	lines map[string]*watch

	drops uint32 // ISR drop counter
}

type isrEvent struct {
	line  string
	level bool // captured in ISR
}

type watch struct {
	line      string
	pin       Pin
	edge      Edge
	debounce  time.Duration
	invert    bool
	handler   Handler
	lastLevel bool
	lastEvent time.Time
}

func New(isrBuf int, log *logrus.Entry) *Worker {
	if isrBuf <= 0 {
		isrBuf = 64
	}
	return &Worker{
		isrQ:    make(chan isrEvent, isrBuf),
		stopped: make(chan struct{}),
		log:     log.WithField("svc", "irq"),
		lines:   map[string]*watch{},
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		defer close(w.stopped)
		for {
			select {
			case <-ctx.Done():
				w.clearAll()
				return
			case ev := <-w.isrQ:
				w.handleISR(ev)
			}
		}
	}()
}

// Done is closed once the worker has stopped.
func (w *Worker) Done() <-chan struct{} { return w.stopped }

// Register watches pin and calls h for each accepted edge. edge is logical:
// with invert set it is armed on the opposite physical edge. The returned
// func detaches the line.
func (w *Worker) Register(line string, pin Pin, edge Edge, debounce time.Duration, invert bool, h Handler) (func(), error) {
	if edge == EdgeNone {
		return func() {}, nil
	}

	// Initial logical level so edge detection compares like with like.
	init := pin.Get()
	if invert {
		init = !init
	}
	wh := &watch{
		line:      line,
		pin:       pin,
		edge:      edge,
		debounce:  debounce,
		invert:    invert,
		handler:   h,
		lastLevel: init,
	}

	isr := func() {
		l := pin.Get()
		select {
		case w.isrQ <- isrEvent{line: line, level: l}:
		default:
			atomic.AddUint32(&w.drops, 1)
		}
	}
	if err := pin.SetIRQ(physicalEdge(edge, invert), isr); err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.lines[line] = wh
	w.mu.Unlock()
	w.log.WithFields(logrus.Fields{"line": line, "edge": edge, "debounce": debounce}).Debug("line registered")

	return func() { w.unregister(line) }, nil
}

// physicalEdge maps a logical edge onto the line: on an inverted line the
// logical rising edge is the physical falling one.
func physicalEdge(e Edge, invert bool) Edge {
	if !invert {
		return e
	}
	switch e {
	case EdgeRising:
		return EdgeFalling
	case EdgeFalling:
		return EdgeRising
	}
	return e
}

func (w *Worker) unregister(line string) {
	w.mu.Lock()
	wh, ok := w.lines[line]
	delete(w.lines, line)
	w.mu.Unlock()
	if ok {
		_ = wh.pin.ClearIRQ()
	}
}

func (w *Worker) clearAll() {
	w.mu.Lock()
	lines := w.lines
	w.lines = map[string]*watch{}
	w.mu.Unlock()
	for _, wh := range lines {
		_ = wh.pin.ClearIRQ()
	}
}

func (w *Worker) handleISR(ev isrEvent) {
	w.mu.RLock()
	wh := w.lines[ev.line]
	w.mu.RUnlock()
	if wh == nil {
		return
	}
	raw := ev.level
	if wh.invert {
		raw = !raw
	}
	now := time.Now()

	if !wh.lastEvent.IsZero() && now.Sub(wh.lastEvent) < wh.debounce {
		return
	}

	var e Edge
	if wh.edge == EdgeBoth {
		switch {
		case !wh.lastLevel && raw:
			e = EdgeRising
		case wh.lastLevel && !raw:
			e = EdgeFalling
		}
	} else {
		// Only the configured edge fires the callback.
		e = wh.edge
	}

	if e != EdgeNone && wh.handler != nil {
		wh.handler(Event{Line: ev.line, Level: raw, Edge: e, TS: now})
	}

	wh.lastLevel = raw
	wh.lastEvent = now
}

func (w *Worker) ISRDrops() uint32 { return atomic.LoadUint32(&w.drops) }
