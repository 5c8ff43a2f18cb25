package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"chargerd-go/bus"
	"chargerd-go/types"
)

type fakeSource struct {
	mu    sync.Mutex
	usb   types.SupplyValue
	polls int
}

func (f *fakeSource) Supply(k types.SupplyKind) types.SupplyValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	if k == types.SupplyUSB {
		f.polls++
		return f.usb
	}
	return types.SupplyValue{}
}

func (f *fakeSource) Battery() types.BatteryValue {
	return types.BatteryValue{Present: true, Gauge: true, SOC: 42, AvgMilliA: -120}
}

func (f *fakeSource) setUSB(v types.SupplyValue) {
	f.mu.Lock()
	f.usb = v
	f.mu.Unlock()
}

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestMonitorPublishesBatteryAndSupplyChanges(t *testing.T) {
	b := bus.NewBus(32)
	conn := b.NewConnection("test")
	src := &fakeSource{usb: types.SupplyValue{Online: true, Status: types.StatusCharging}}

	usbSub := conn.Subscribe(topicSupply.Append("usb", "value"))
	batSub := conn.Subscribe(TopicBattery)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	New(src, quiet()).Start(ctx, conn, 5*time.Millisecond)

	m := next(t, batSub)
	if v, ok := m.Payload.(types.BatteryValue); !ok || v.SOC != 42 || v.AvgMilliA != -120 {
		t.Fatalf("battery payload %#v", m.Payload)
	}
	if v := next(t, usbSub).Payload.(types.SupplyValue); !v.Online {
		t.Fatalf("usb %+v", v)
	}

	// Unchanged views are not republished.
	select {
	case m := <-usbSub.Channel():
		t.Fatalf("unexpected republish %#v", m.Payload)
	case <-time.After(30 * time.Millisecond):
	}

	src.setUSB(types.SupplyValue{Online: false, Status: types.StatusDischarging})
	if v := next(t, usbSub).Payload.(types.SupplyValue); v.Online || v.Status != types.StatusDischarging {
		t.Fatalf("usb %+v", v)
	}
}

func TestMonitorIntervalFromConfig(t *testing.T) {
	b := bus.NewBus(32)
	conn := b.NewConnection("test")
	src := &fakeSource{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	New(src, quiet()).Start(ctx, conn, time.Hour)

	// Bad payloads are ignored, the good one speeds polling up.
	conn.Publish(conn.NewMessage(topicConfigMonitor, `{"interval_ms":0}`, true))
	conn.Publish(conn.NewMessage(topicConfigMonitor, map[string]any{"interval_ms": 2}, true))

	deadline := time.Now().Add(time.Second)
	for {
		src.mu.Lock()
		n := src.polls
		src.mu.Unlock()
		if n >= 5 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("only %d polls after reconfigure", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func next(t *testing.T, sub *bus.Subscription) *bus.Message {
	t.Helper()
	select {
	case m := <-sub.Channel():
		return m
	case <-time.After(time.Second):
		t.Fatalf("timeout on %v", sub.Topic())
		return nil
	}
}
