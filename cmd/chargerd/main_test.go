package main

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"chargerd-go/drivers/rk818"
	"chargerd-go/services/charger"
	"chargerd-go/services/irq"
)

// line is a GPIO that only interrupts on the physical edge it was armed for.
type line struct {
	mu    sync.Mutex
	level bool
	edge  irq.Edge
	h     func()
}

func (l *line) Get() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *line) SetIRQ(e irq.Edge, h func()) error {
	l.mu.Lock()
	l.edge, l.h = e, h
	l.mu.Unlock()
	return nil
}

func (l *line) ClearIRQ() error {
	l.mu.Lock()
	l.h = nil
	l.mu.Unlock()
	return nil
}

func (l *line) drive(level bool) {
	l.mu.Lock()
	changed := l.level != level
	l.level = level
	h, e := l.h, l.edge
	l.mu.Unlock()
	if !changed || h == nil {
		return
	}
	if e == irq.EdgeBoth || (e == irq.EdgeRising && level) || (e == irq.EdgeFalling && !level) {
		h()
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func startWired(t *testing.T, dc, intr *line) (*rk818.Sim, *charger.Charger) {
	t.Helper()
	sim := rk818.NewSim()
	sim.Set(rk818.RegSupSts, rk818.BatExists)
	cfg := charger.DefaultConfig()
	cfg.DCDetect = true
	cfg.FinishSigDelay = time.Millisecond
	hw := &hardware{regs: rk818.New(sim, rk818.Config{}), dc: dc, dcIRQ: dc, intIRQ: intr}
	ch, err := charger.Attach(cfg, charger.Options{Regs: hw.regs, DCPin: hw.dc})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(func() { _ = ch.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	w := irq.New(16, quietLogger().WithField("svc", "irq"))
	w.Start(ctx)
	if err := wireIRQ(w, hw, cfg, ch); err != nil {
		t.Fatalf("wireIRQ: %v", err)
	}
	return sim, ch
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestPMICIntServicedOnAssertion(t *testing.T) {
	intr := &line{level: true} // idle high
	sim, _ := startWired(t, &line{}, intr)
	if intr.edge != irq.EdgeFalling {
		t.Fatalf("pmic_int armed on %v, want falling", intr.edge)
	}

	sim.RaisePlugIRQ(true)
	intr.drive(false)
	eventually(t, "INT_STS2 drained", func() bool { return sim.Get(rk818.RegIntSts2) == 0 })

	// Release must not trigger a second service.
	sim.RaisePlugIRQ(false)
	intr.drive(true)
	time.Sleep(20 * time.Millisecond)
	if sim.Get(rk818.RegIntSts2) == 0 {
		t.Fatal("INT_STS2 drained on release edge")
	}
}

func TestDCBounceSettlesOnLastLevel(t *testing.T) {
	dc := &line{level: true}
	_, ch := startWired(t, dc, &line{level: true})
	if !ch.Value().DC {
		t.Fatal("dc not reported at attach")
	}

	dc.drive(false)
	time.Sleep(8 * time.Millisecond)
	dc.drive(true)
	time.Sleep(7 * time.Millisecond)
	dc.drive(false)

	eventually(t, "dc out", func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_ = ch.Flush(ctx)
		return !ch.Value().DC
	})
	// Stays out once the settle window has passed.
	time.Sleep(30 * time.Millisecond)
	if ch.Value().DC {
		t.Fatal("dc reported present after the line settled low")
	}
}
