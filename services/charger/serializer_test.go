package charger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chargerd-go/errcode"
)

func flushCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSerializerFIFO(t *testing.T) {
	s := NewSerializer("t", discardLogger().WithField("t", t.Name()))
	defer s.Close()

	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 20; i++ {
		i := i
		delay := time.Duration(20-i) * time.Millisecond / 10
		s.Post(delay, func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	if err := s.Flush(flushCtx(t)); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Fatalf("out of order: %v", got)
		}
	}
	if len(got) != 20 {
		t.Fatalf("ran %d tasks", len(got))
	}
}

func TestSerializerNoOverlap(t *testing.T) {
	s := NewSerializer("t", discardLogger().WithField("t", t.Name()))
	defer s.Close()

	var running, overlap atomic.Int32
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				s.Post(0, func() {
					if running.Add(1) > 1 {
						overlap.Add(1)
					}
					time.Sleep(100 * time.Microsecond)
					running.Add(-1)
				})
			}
		}()
	}
	wg.Wait()
	if err := s.Flush(flushCtx(t)); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if overlap.Load() != 0 {
		t.Fatalf("handlers overlapped %d times", overlap.Load())
	}
}

func TestSerializerCoalesced(t *testing.T) {
	s := NewSerializer("t", discardLogger().WithField("t", t.Name()))
	defer s.Close()

	var n atomic.Int32
	for i := 0; i < 5; i++ {
		s.PostCoalesced("k", 20*time.Millisecond, func() { n.Add(1) })
	}
	if err := s.Flush(flushCtx(t)); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n.Load() != 1 {
		t.Fatalf("coalesced task ran %d times", n.Load())
	}
	s.PostCoalesced("k", 0, func() { n.Add(1) })
	_ = s.Flush(flushCtx(t))
	if n.Load() != 2 {
		t.Fatalf("key not released after run, n=%d", n.Load())
	}
}

func TestSerializerCloseDiscards(t *testing.T) {
	s := NewSerializer("t", discardLogger().WithField("t", t.Name()))

	var ran atomic.Bool
	s.Post(time.Hour, func() { ran.Store(true) })
	if s.Pending() != 1 {
		t.Fatalf("Pending=%d", s.Pending())
	}
	s.Close()
	s.Close()

	if s.Post(0, func() { ran.Store(true) }) {
		t.Fatal("Post after Close must report false")
	}
	if err := s.Flush(flushCtx(t)); errcode.Of(err) != errcode.Closed {
		t.Fatalf("Flush after Close: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if ran.Load() {
		t.Fatal("discarded task ran")
	}
}

func TestSerializerCloseWaitsForRunning(t *testing.T) {
	s := NewSerializer("t", discardLogger().WithField("t", t.Name()))

	started := make(chan struct{})
	var finished atomic.Bool
	s.Post(0, func() {
		close(started)
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	})
	<-started
	s.Close()
	if !finished.Load() {
		t.Fatal("Close returned before the running task finished")
	}
}
