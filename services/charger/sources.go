package charger

import (
	"chargerd-go/drivers/rk818"
	"chargerd-go/types"
)

// Producers below only post to a serializer and return; they are safe to
// call from interrupt-delivery goroutines and become no-ops after Close.

// BCEvent delivers a USB battery-charging detection result.
func (c *Charger) BCEvent(ev types.BCEvent) {
	c.usbQ.Post(c.cfg.SettleDelay, func() { c.bcWork(ev) })
}

// RequestOTG asks for the OTG boost to be switched on or off.
func (c *Charger) RequestOTG(on bool) {
	ev := types.BCOtgOff
	if on {
		ev = types.BCOtgOn
	}
	c.BCEvent(ev)
}

// ChargerCableChanged signals a Type-C SDP/DCP/CDP cable notification.
func (c *Charger) ChargerCableChanged() { c.usbQ.Post(c.cfg.SettleDelay, c.chargerWork) }

// HostCableChanged signals a Type-C VBUS-enable notification.
func (c *Charger) HostCableChanged() { c.usbQ.Post(c.cfg.SettleDelay, c.hostWork) }

// USBCableChanged signals a Type-C USB presence notification.
func (c *Charger) USBCableChanged() { c.usbQ.Post(c.cfg.SettleDelay, c.discntWork) }

// DCChanged signals an edge on the DC-detect line.
func (c *Charger) DCChanged() { c.dcQ.Post(c.cfg.SettleDelay, c.dcWork) }

// PlugIn and PlugOut signal the PMIC plug interrupts. While the OTG boost
// has them masked, stray edges are counted and dropped.
func (c *Charger) PlugIn()  { c.plugIRQ(true) }
func (c *Charger) PlugOut() { c.plugIRQ(false) }

func (c *Charger) plugIRQ(in bool) {
	if c.closed.Load() {
		return
	}
	if c.otgMasked.Load() {
		c.irqDrops.Add(1)
		return
	}
	c.usbQ.Post(c.cfg.SettleDelay, func() { c.plugWork(in) })
}

// ServicePMICInt drains the PMIC plug interrupt status after an edge on
// the PMIC INT line and forwards what was pending.
func (c *Charger) ServicePMICInt() {
	if c.closed.Load() {
		return
	}
	c.mu.Lock()
	p, err := rk818.DrainPlugIRQ(c.regs)
	if err != nil {
		c.ioFail("drain_irq", rk818.RegIntSts2, err)
	}
	c.mu.Unlock()
	if p.In {
		c.PlugIn()
	}
	if p.Out {
		c.PlugOut()
	}
}

func initialBCSource(ev types.BCEvent) Source {
	switch ev {
	case types.BCSDP, types.BCCDP:
		return SourceUSB
	case types.BCDCP:
		return SourceAC
	default:
		return NoSource
	}
}

// ---------------- Workers ----------------

func (c *Charger) bcWork(ev types.BCEvent) {
	c.handle("bc", func(n *notes) {
		switch ev {
		case types.BCDisconnected:
			c.apply(NoSource, n)
		case types.BCSDP:
			c.apply(SourceUSB, n)
		case types.BCDCP:
			c.apply(SourceAC, n)
		case types.BCCDP:
			c.apply(SourceCDP, n)
		case types.BCOtgOn:
			c.requestOTG(true, n)
		case types.BCOtgOff:
			c.requestOTG(false, n)
		}
		c.log.WithField("bc", ev).Info("bc notifier event")
	})
}

// Cable queries run under the lock: the cable source may share the
// register transport.

func (c *Charger) chargerWork() {
	if c.cable == nil {
		return
	}
	c.handle("typec_charger", func(n *notes) {
		var src Source
		switch {
		case c.cable.CableState(types.CableSDP):
			src = SourceUSB
		case c.cable.CableState(types.CableDCP):
			src = SourceAC
		case c.cable.CableState(types.CableCDP):
			src = SourceCDP
		default:
			return
		}
		c.log.WithField("charger", src).Info("type-c charger event")
		c.apply(src, n)
	})
}

func (c *Charger) hostWork() {
	if c.cable == nil {
		return
	}
	c.handle("typec_host", func(n *notes) {
		on := c.cable.CableState(types.CableVBUSEn)
		c.log.WithField("vbus_en", on).Info("type-c host event")
		c.requestOTG(on, n)
		n.changed = true
	})
}

func (c *Charger) discntWork() {
	if c.cable == nil {
		return
	}
	c.handle("typec_discnt", func(n *notes) {
		if c.cable.CableState(types.CableUSB) {
			return
		}
		c.log.Info("type-c disconnect event")
		c.apply(NoSource, n)
	})
}

func (c *Charger) dcWork() {
	c.handle("dc", func(n *notes) {
		if c.dcPresent() {
			c.log.Info("dc charger in")
			c.apply(SourceDC, n)
			if c.st.otg && c.cfg.PowerDC2OTG {
				c.log.Info("otg power from dc adapter")
				c.setOTG(false, n)
			}
		} else {
			c.log.Info("dc charger out")
			c.apply(SourceDCNone, n)
			if c.st.otgWanted {
				c.setOTG(true, n)
			}
		}
		n.event("wakeup", "dc")
	})
}

func (c *Charger) plugWork(in bool) {
	c.handle("plug", func(n *notes) {
		if in {
			c.log.Info("pmic plug in")
			n.event("wakeup", "plug_in")
			return
		}
		c.log.Info("pmic plug out")
		c.apply(NoSource, n)
		c.apply(SourceDCNone, n)
		n.event("wakeup", "plug_out")
	})
}
