package timex

import (
	"sync"
	"time"
)

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// Clock yields monotonic time since an arbitrary fixed origin.
type Clock interface {
	Monotonic() time.Duration
}

type sysClock struct{ origin time.Time }

// System returns a Clock backed by the runtime monotonic reading.
func System() Clock { return sysClock{origin: time.Now()} }

func (c sysClock) Monotonic() time.Duration { return time.Since(c.origin) }

// Fake is a manually advanced Clock for tests.
type Fake struct {
	mu  sync.Mutex
	now time.Duration
}

func (f *Fake) Monotonic() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now += d
	f.mu.Unlock()
}

// ResetTimer stops t, drains a pending fire, and rearms it for d.
func ResetTimer(t *time.Timer, d time.Duration) {
	if d < 0 {
		d = 0
	}
	if !t.Stop() {
		DrainTimer(t)
	}
	t.Reset(d)
}

func DrainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}
