package charger

import (
	"context"
	"testing"
	"time"

	"chargerd-go/bus"
	"chargerd-go/drivers/rk818"
	"chargerd-go/types"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestServeControl(t *testing.T) {
	b := bus.NewBus(32)
	conn := b.NewConnection("test")
	sim := newSim()
	c := attach(t, testConfig(), sim, Options{Conn: conn})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.ServeControl(ctx, conn)

	events := conn.Subscribe(TopicEvent)
	ctl := func(verb string, p any) {
		conn.Publish(conn.NewMessage(TopicControl.Append(verb), p, false))
	}

	// The subscription is made on the serving goroutine; retry until seen.
	waitFor(t, "bc dcp", func() bool {
		ctl("bc", "dcp")
		flush(t, c)
		return c.Value().AC
	})

	ctl("bc", []byte(`"sdp"`))
	waitFor(t, "bc sdp", func() bool { flush(t, c); v := c.Value(); return v.USB && !v.AC })

	ctl("otg", true)
	waitFor(t, "otg on", func() bool { flush(t, c); return c.Value().OTG })
	expectEvent(t, events, "otg_on")

	sim.Set(rk818.RegSleepSetOffReg, rk818.OTGBoostSleepOffMask)
	ctl("suspend", true)
	waitFor(t, "suspend", func() bool {
		return sim.Get(rk818.RegSleepSetOffReg)&rk818.OTGBoostSleepOffMask == 0
	})
	ctl("suspend", false)
	waitFor(t, "resume", func() bool {
		return sim.Get(rk818.RegSleepSetOffReg)&rk818.OTGBoostSleepOffMask == rk818.OTGBoostSleepOffMask
	})

	ctl("bc", "bogus")
	expectEvent(t, events, "ctl_error")
	ctl("reboot", nil)
	expectEvent(t, events, "ctl_error")
	ctl("otg", "yes please")
	expectEvent(t, events, "ctl_error")
}

func TestControlCableVerbs(t *testing.T) {
	cable := &fakeCable{}
	cfg := testConfig()
	cfg.TypeC = true
	sim := newSim()
	c := attach(t, cfg, sim, Options{Cable: cable})

	cable.set(types.CableDCP, true)
	if err := c.control("cable", "charger"); err != nil {
		t.Fatal(err)
	}
	flush(t, c)
	if !c.Value().AC {
		t.Fatalf("state %+v", c.Value())
	}

	cable.set(types.CableDCP, false)
	if err := c.control("cable", "usb"); err != nil {
		t.Fatal(err)
	}
	flush(t, c)
	if v := c.Value(); v.AC || v.USB {
		t.Fatalf("state %+v", v)
	}

	if err := c.control("cable", "audio"); err == nil {
		t.Fatal("unknown cable must be rejected")
	}
}

func TestBatteryTelemetry(t *testing.T) {
	sim := newSim()
	sim.Set(rk818.RegTSCtrl, rk818.GaugeEn)
	sim.Set(rk818.RegSOC, 77)
	sim.SetAvgCurrentRaw(100)
	sim.Plug(true)
	c := attach(t, testConfig(), sim, Options{})

	v := c.Battery()
	if !v.Present || !v.Gauge || !v.Plugged || v.SOC != 77 || v.AvgMilliA != 150 || v.Err != "" {
		t.Fatalf("battery %+v", v)
	}

	sim.FailRead(rk818.RegSOC, true)
	before := c.Diagnostics().IOErrors
	v = c.Battery()
	if v.Err != "io_error" || v.SOC != 0 || !v.Present {
		t.Fatalf("battery under fault %+v", v)
	}
	if c.Diagnostics().IOErrors <= before {
		t.Fatal("fault not counted")
	}
}
